package maths

// updateMatrix 带基准快照的矩阵（支持提交+回溯）
// 装配时线性贡献提交为基准，每次非线性迭代先回溯再叠加
type updateMatrix struct {
	Matrix        // 当前工作矩阵
	base   Matrix // 上次提交的基准
}

// NewUpdateMatrix 包装矩阵，初始基准为当前值
func NewUpdateMatrix(m Matrix) UpdateMatrix {
	var base Matrix
	switch m.(type) {
	case *sparseMatrix:
		base = NewSparseMatrix(m.Rows(), m.Cols())
	default:
		base = NewDenseMatrix(m.Rows(), m.Cols())
	}
	m.Copy(base)
	return &updateMatrix{Matrix: m, base: base}
}

// Update 将当前值提交为基准
func (um *updateMatrix) Update() { um.Matrix.Copy(um.base) }

// Rollback 丢弃提交后的修改
func (um *updateMatrix) Rollback() { um.base.Copy(um.Matrix) }

// Zero 清空工作矩阵与基准
func (um *updateMatrix) Zero() {
	um.Matrix.Zero()
	um.base.Zero()
}

// Copy 复制工作矩阵
func (um *updateMatrix) Copy(a Matrix) {
	if target, ok := a.(*updateMatrix); ok {
		um.Matrix.Copy(target.Matrix)
		return
	}
	um.Matrix.Copy(a)
}
