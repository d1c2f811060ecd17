package maths

import (
	"fmt"
	"sort"
	"strings"
)

// sparseMatrix 稀疏矩阵数据结构
// 使用CSR (Compressed Sparse Row) 格式存储
type sparseMatrix struct {
	rows, cols int
	rowPtr     []int     // 行指针数组
	colInd     []int     // 列索引数组
	values     []float64 // 非零元素值
}

// NewSparseMatrix 创建新的稀疏矩阵
func NewSparseMatrix(rows, cols int) Matrix {
	return &sparseMatrix{
		rows:   rows,
		cols:   cols,
		rowPtr: make([]int, rows+1), // 多一个元素用于存储结束位置
	}
}

func (m *sparseMatrix) check(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("sparse index out of range: row=%d, col=%d (rows=%d, cols=%d)", row, col, m.rows, m.cols))
	}
}

// search 二分查找列索引，返回位置与是否存在
func (m *sparseMatrix) search(row, col int) (int, bool) {
	start, end := m.rowPtr[row], m.rowPtr[row+1]
	pos := sort.Search(end-start, func(i int) bool {
		return m.colInd[start+i] >= col
	}) + start
	return pos, pos < end && m.colInd[pos] == col
}

// Set 设置矩阵元素，零值删除元素
func (m *sparseMatrix) Set(row, col int, value float64) {
	m.check(row, col)
	pos, ok := m.search(row, col)
	switch {
	case ok && value == 0:
		m.deleteElement(row, pos)
	case ok:
		m.values[pos] = value
	case value != 0:
		m.insertElement(row, col, value, pos)
	}
}

// Increment 增量设置矩阵元素
func (m *sparseMatrix) Increment(row, col int, value float64) {
	m.check(row, col)
	if value == 0 {
		return
	}
	pos, ok := m.search(row, col)
	if ok {
		m.values[pos] += value
		return
	}
	m.insertElement(row, col, value, pos)
}

// Get 获取矩阵元素
func (m *sparseMatrix) Get(row, col int) float64 {
	m.check(row, col)
	if pos, ok := m.search(row, col); ok {
		return m.values[pos]
	}
	return 0
}

// deleteElement 删除指定位置的元素
func (m *sparseMatrix) deleteElement(row, pos int) {
	m.colInd = append(m.colInd[:pos], m.colInd[pos+1:]...)
	m.values = append(m.values[:pos], m.values[pos+1:]...)
	for i := row + 1; i <= m.rows; i++ {
		m.rowPtr[i]--
	}
}

// insertElement 在指定位置插入元素
func (m *sparseMatrix) insertElement(row, col int, value float64, pos int) {
	m.colInd = append(m.colInd, 0)
	copy(m.colInd[pos+1:], m.colInd[pos:])
	m.colInd[pos] = col
	m.values = append(m.values, 0)
	copy(m.values[pos+1:], m.values[pos:])
	m.values[pos] = value
	for i := row + 1; i <= m.rows; i++ {
		m.rowPtr[i]++
	}
}

func (m *sparseMatrix) Rows() int      { return m.rows }
func (m *sparseMatrix) Cols() int      { return m.cols }
func (m *sparseMatrix) IsSquare() bool { return m.rows == m.cols }

// NonZeroCount 返回存储元素数量
func (m *sparseMatrix) NonZeroCount() int { return len(m.values) }

// GetRow 获取行非零元素（返回副本）
func (m *sparseMatrix) GetRow(row int) ([]int, []float64) {
	start, end := m.rowPtr[row], m.rowPtr[row+1]
	return append([]int(nil), m.colInd[start:end]...), append([]float64(nil), m.values[start:end]...)
}

// Zero 清空矩阵
func (m *sparseMatrix) Zero() {
	for i := range m.rowPtr {
		m.rowPtr[i] = 0
	}
	m.colInd = m.colInd[:0]
	m.values = m.values[:0]
}

// Copy 复制到目标矩阵
func (m *sparseMatrix) Copy(a Matrix) {
	if a.Rows() != m.rows || a.Cols() != m.cols {
		panic(fmt.Sprintf("dimension mismatch: source %dx%d, target %dx%d", m.rows, m.cols, a.Rows(), a.Cols()))
	}
	if target, ok := a.(*sparseMatrix); ok {
		target.rowPtr = append(target.rowPtr[:0], m.rowPtr...)
		target.colInd = append(target.colInd[:0], m.colInd...)
		target.values = append(target.values[:0], m.values...)
		return
	}
	a.Zero()
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			a.Set(i, m.colInd[k], m.values[k])
		}
	}
}

// SwapRows 交换两行（重建两行所在区段）
func (m *sparseMatrix) SwapRows(row1, row2 int) {
	if row1 == row2 {
		return
	}
	if row1 > row2 {
		row1, row2 = row2, row1
	}
	c1, v1 := m.GetRow(row1)
	c2, v2 := m.GetRow(row2)
	// 行1与行2之间（含）的区段整体重排
	start, end := m.rowPtr[row1], m.rowPtr[row2+1]
	midCols := append([]int(nil), m.colInd[m.rowPtr[row1+1]:m.rowPtr[row2]]...)
	midVals := append([]float64(nil), m.values[m.rowPtr[row1+1]:m.rowPtr[row2]]...)
	cols := make([]int, 0, end-start)
	vals := make([]float64, 0, end-start)
	cols = append(append(append(cols, c2...), midCols...), c1...)
	vals = append(append(append(vals, v2...), midVals...), v1...)
	copy(m.colInd[start:end], cols)
	copy(m.values[start:end], vals)
	delta := len(c2) - len(c1)
	for i := row1 + 1; i <= row2; i++ {
		m.rowPtr[i] += delta
	}
}

// MulVec 矩阵向量乘法
func (m *sparseMatrix) MulVec(x Vector) Vector {
	if x.Length() != m.cols {
		panic(fmt.Sprintf("vector dimension mismatch: x length=%d, matrix cols=%d", x.Length(), m.cols))
	}
	result := NewDenseVector(m.rows)
	for i := 0; i < m.rows; i++ {
		sum := 0.0
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sum += m.values[k] * x.Get(m.colInd[k])
		}
		result.Set(i, sum)
	}
	return result
}

// String 字符串表示
func (m *sparseMatrix) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			fmt.Fprintf(&b, "%10.4g ", m.Get(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
