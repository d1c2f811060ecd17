package maths

// Epsilon 主元判零阈值
const Epsilon = 1e-16

// Vector 向量接口定义
type Vector interface {
	Length() int    // 获取向量长度
	String() string // 格式化字符串输出

	Get(index int) float64              // 获取指定索引元素值
	Set(index int, value float64)       // 设置指定索引元素值
	Increment(index int, value float64) // 增量更新元素（value累加）

	ToDense() []float64     // 转换为稠密切片（副本）
	RawData() []float64     // 底层切片引用（直接操作底层数据）
	Zero()                  // 清空向量为零向量
	Copy(a Vector)          // 复制自身数据到目标向量a
	MaxAbs() float64        // 绝对值最大元素（无穷范数）
	Scale(scalar float64)   // 向量缩放
	Add(other Vector)       // 向量加法（自身 += other）
	Dot(other Vector) float64
}

// Matrix 矩阵接口定义
type Matrix interface {
	Rows() int      // 获取矩阵行数
	Cols() int      // 获取矩阵列数
	String() string // 格式化字符串输出
	IsSquare() bool // 判断是否为方阵

	Get(row, col int) float64              // 获取指定行列元素值
	Set(row, col int, value float64)       // 设置指定行列元素值
	Increment(row, col int, value float64) // 增量更新元素
	GetRow(row int) ([]int, []float64)     // 获取指定行非零元素（列索引+值）

	Zero()                   // 清空矩阵（保留稀疏结构）
	Copy(a Matrix)           // 复制自身数据到目标矩阵a
	SwapRows(row1, row2 int) // 交换两行
	NonZeroCount() int       // 统计非零元素数量

	MulVec(x Vector) Vector // 矩阵向量乘法（返回A*x）
}

// UpdateMatrix 可更新矩阵接口（支持提交与回溯）
type UpdateMatrix interface {
	Matrix
	Update()   // 将当前值提交为基准
	Rollback() // 恢复到上次提交的基准
}

// LU 接口定义了 LU 分解和求解线性方程组的操作。
type LU interface {
	Decompose(matrix Matrix) error // 对输入方阵执行LU分解（PA=LU）
	SolveReuse(b, x Vector) error  // 重用分解结果求解Ax=b
}
