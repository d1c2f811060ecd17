package maths

import (
	"fmt"
	"strings"
)

// denseMatrix 稠密矩阵实现（行优先，全量存储所有元素）
type denseMatrix struct {
	rows, cols int
	data       []float64
}

// NewDenseMatrix 创建指定维度的空稠密矩阵
func NewDenseMatrix(rows, cols int) Matrix {
	return &denseMatrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *denseMatrix) check(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("matrix index out of range: row=%d, col=%d (rows=%d, cols=%d)", row, col, m.rows, m.cols))
	}
}

func (m *denseMatrix) Rows() int      { return m.rows }
func (m *denseMatrix) Cols() int      { return m.cols }
func (m *denseMatrix) IsSquare() bool { return m.rows == m.cols }

// Get 获取指定行列元素值（越界panic）
func (m *denseMatrix) Get(row, col int) float64 {
	m.check(row, col)
	return m.data[row*m.cols+col]
}

// Set 设置指定行列元素值（越界panic）
func (m *denseMatrix) Set(row, col int, value float64) {
	m.check(row, col)
	m.data[row*m.cols+col] = value
}

// Increment 增量更新矩阵元素
func (m *denseMatrix) Increment(row, col int, value float64) {
	m.check(row, col)
	m.data[row*m.cols+col] += value
}

// GetRow 获取指定行的非零元素
func (m *denseMatrix) GetRow(row int) ([]int, []float64) {
	cols := make([]int, 0, m.cols)
	vals := make([]float64, 0, m.cols)
	for j, v := range m.data[row*m.cols : (row+1)*m.cols] {
		if v != 0 {
			cols = append(cols, j)
			vals = append(vals, v)
		}
	}
	return cols, vals
}

// Zero 清空矩阵为零矩阵
func (m *denseMatrix) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Copy 复制自身数据到目标矩阵（支持稠密/稀疏等类型）
func (m *denseMatrix) Copy(a Matrix) {
	if a.Rows() != m.rows || a.Cols() != m.cols {
		panic(fmt.Sprintf("dimension mismatch: source %dx%d, target %dx%d", m.rows, m.cols, a.Rows(), a.Cols()))
	}
	if target, ok := a.(*denseMatrix); ok {
		copy(target.data, m.data)
		return
	}
	a.Zero()
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if v := m.data[i*m.cols+j]; v != 0 {
				a.Set(i, j, v)
			}
		}
	}
}

// SwapRows 交换两行
func (m *denseMatrix) SwapRows(row1, row2 int) {
	if row1 == row2 {
		return
	}
	r1 := m.data[row1*m.cols : (row1+1)*m.cols]
	r2 := m.data[row2*m.cols : (row2+1)*m.cols]
	for j := range r1 {
		r1[j], r2[j] = r2[j], r1[j]
	}
}

// NonZeroCount 统计非零元素数量
func (m *denseMatrix) NonZeroCount() int {
	n := 0
	for _, v := range m.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// MulVec 矩阵向量乘法（A*x，返回新向量）
func (m *denseMatrix) MulVec(x Vector) Vector {
	if x.Length() != m.cols {
		panic(fmt.Sprintf("vector dimension mismatch: x length=%d, matrix cols=%d", x.Length(), m.cols))
	}
	result := NewDenseVector(m.rows)
	for i := 0; i < m.rows; i++ {
		sum := 0.0
		for j := 0; j < m.cols; j++ {
			sum += m.data[i*m.cols+j] * x.Get(j)
		}
		result.Set(i, sum)
	}
	return result
}

// String 格式化输出矩阵
func (m *denseMatrix) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			fmt.Fprintf(&b, "%10.4g ", m.data[i*m.cols+j])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
