package maths

import (
	"errors"
	"math"
)

// ErrSingular 矩阵奇异或接近奇异
var ErrSingular = errors.New("matrix is singular or nearly singular")

// NewLUSparse 创建稀疏矩阵LU分解器（输入矩阵维度n）
func NewLUSparse(n int) (LU, error) {
	if n < 1 {
		return nil, errors.New("lu sparse dimension must be positive")
	}
	return &luSparse{
		baseLU: baseLU{
			n:        n,
			L:        NewSparseMatrix(n, n),
			U:        NewSparseMatrix(n, n),
			Y:        NewDenseVector(n), // 中间向量用稠密更高效
			P:        make([]int, n),
			pinverse: make([]int, n),
		},
	}, nil
}

// baseLU 公共LU分解结构体
// 实现PA = LU分解，其中：
//
//	P - 置换矩阵（用向量表示）
//	L - 单位下三角矩阵（对角线为1）
//	U - 上三角矩阵
type baseLU struct {
	n        int    // 矩阵维度（方阵n×n）
	L        Matrix // 下三角矩阵L（严格下三角存储消元因子）
	U        Matrix // 上三角矩阵U
	Y        Vector // 中间变量：前向替换结果Ly=Pb
	P        []int  // 置换向量：P[i] = 分解后第i行对应的原始行索引
	pinverse []int  // 逆置换向量
}

// Dim 获取矩阵维度
func (lu *baseLU) Dim() int { return lu.n }

// init 清零L和U，拷贝A到U，初始化置换向量与L对角线
func (lu *baseLU) init(matrix Matrix) {
	lu.L.Zero()
	lu.U.Zero()
	matrix.Copy(lu.U)
	for i := 0; i < lu.n; i++ {
		lu.P[i] = i
		lu.pinverse[i] = i
		lu.L.Set(i, i, 1.0)
	}
}

// updatePermutation 交换置换向量并同步逆置换
func (lu *baseLU) updatePermutation(k, maxRow int) {
	lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
	lu.pinverse[lu.P[k]] = k
	lu.pinverse[lu.P[maxRow]] = maxRow
}

// check 输入合法性校验
func (lu *baseLU) check(matrix Matrix, tag string) error {
	if !matrix.IsSquare() {
		return errors.New(tag + ": input must be square matrix")
	}
	if matrix.Rows() != lu.n {
		return errors.New(tag + ": matrix dimension mismatch")
	}
	return nil
}

// pivot 部分主元选择：在U的列k中找[k, n-1]行的最大值
func (lu *baseLU) pivot(k int) (int, float64) {
	maxRow := k
	maxAbsVal := math.Abs(lu.U.Get(k, k))
	for i := k + 1; i < lu.n; i++ {
		if v := math.Abs(lu.U.Get(i, k)); v > maxAbsVal {
			maxAbsVal = v
			maxRow = i
		}
	}
	return maxRow, maxAbsVal
}

// luSparse 稀疏矩阵LU分解实现（带部分主元+稀疏优化）
type luSparse struct {
	baseLU
}

// Decompose 执行稀疏矩阵LU分解
//
// 稀疏优化:
//  1. 使用GetRow获取主元行非零列，减少内层循环次数
//  2. 新值接近零时删除元素，维持矩阵稀疏性
func (lu *luSparse) Decompose(matrix Matrix) error {
	if err := lu.check(matrix, "lu sparse decompose"); err != nil {
		return err
	}
	lu.init(matrix)
	for k := 0; k < lu.n; k++ {
		maxRow, maxAbsVal := lu.pivot(k)
		if maxAbsVal < Epsilon || math.IsNaN(maxAbsVal) {
			return ErrSingular
		}
		if maxRow != k {
			lu.U.SwapRows(k, maxRow)
			// L 的 j>=k 列仍为零（对角线除外），整行交换后修正对角线
			lu.L.SwapRows(k, maxRow)
			lu.L.Set(k, maxRow, 0)
			lu.L.Set(maxRow, k, 0)
			lu.L.Set(k, k, 1)
			lu.L.Set(maxRow, maxRow, 1)
			lu.updatePermutation(k, maxRow)
		}
		pivotVal := lu.U.Get(k, k)
		pivotCols, pivotVals := lu.U.GetRow(k)
		for i := k + 1; i < lu.n; i++ {
			valIK := lu.U.Get(i, k)
			if valIK == 0 {
				continue
			}
			factor := valIK / pivotVal
			lu.L.Set(i, k, factor)
			lu.U.Set(i, k, 0.0)
			for idx, j := range pivotCols {
				if j <= k {
					continue
				}
				updated := lu.U.Get(i, j) - factor*pivotVals[idx]
				if math.Abs(updated) < Epsilon {
					updated = 0
				}
				lu.U.Set(i, j, updated)
			}
		}
	}
	return nil
}

// SolveReuse 稀疏矩阵LU分解结果求解Ax=b
func (lu *luSparse) SolveReuse(b, x Vector) error {
	if b.Length() != lu.n || x.Length() != lu.n {
		return errors.New("lu sparse solve: vector dimension mismatch")
	}
	lu.Y.Zero()
	for i := 0; i < lu.n; i++ {
		sum := b.Get(lu.P[i])
		cols, vals := lu.L.GetRow(i)
		for idx, j := range cols {
			if j < i {
				sum -= vals[idx] * lu.Y.Get(j)
			}
		}
		lu.Y.Set(i, sum)
	}
	x.Zero()
	for i := lu.n - 1; i >= 0; i-- {
		sum := lu.Y.Get(i)
		diag := lu.U.Get(i, i)
		if math.Abs(diag) < Epsilon {
			return errors.New("lu sparse solve: division by zero (U diagonal is zero)")
		}
		cols, vals := lu.U.GetRow(i)
		for idx, j := range cols {
			if j > i {
				sum -= vals[idx] * x.Get(j)
			}
		}
		x.Set(i, sum/diag)
	}
	return nil
}
