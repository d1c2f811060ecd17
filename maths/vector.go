package maths

import (
	"fmt"
	"math"
	"strings"
)

// denseVector 稠密向量实现
type denseVector struct {
	data []float64
}

// NewDenseVector 创建新的稠密向量
func NewDenseVector(length int) Vector {
	return &denseVector{data: make([]float64, length)}
}

// NewDenseVectorWithData 从现有数据创建稠密向量（共享底层切片）
func NewDenseVectorWithData(data []float64) Vector {
	return &denseVector{data: data}
}

func (v *denseVector) Length() int { return len(v.data) }

func (v *denseVector) Get(index int) float64 { return v.data[index] }

func (v *denseVector) Set(index int, value float64) { v.data[index] = value }

func (v *denseVector) Increment(index int, value float64) { v.data[index] += value }

func (v *denseVector) RawData() []float64 { return v.data }

// ToDense 返回数据副本
func (v *denseVector) ToDense() []float64 {
	return append([]float64(nil), v.data...)
}

// Zero 清空向量，重置为零向量
func (v *denseVector) Zero() {
	for i := range v.data {
		v.data[i] = 0
	}
}

// Copy 将自身值复制到 a 向量
func (v *denseVector) Copy(a Vector) {
	if a.Length() != v.Length() {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", v.Length(), a.Length()))
	}
	if target, ok := a.(*denseVector); ok {
		copy(target.data, v.data)
		return
	}
	for i, x := range v.data {
		a.Set(i, x)
	}
}

// MaxAbs 获取向量中绝对值最大的元素
func (v *denseVector) MaxAbs() float64 {
	m := 0.0
	for _, x := range v.data {
		if a := math.Abs(x); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}

// Scale 向量缩放（所有元素乘scalar）
func (v *denseVector) Scale(scalar float64) {
	for i := range v.data {
		v.data[i] *= scalar
	}
}

// Add 向量加法
func (v *denseVector) Add(other Vector) {
	if other.Length() != v.Length() {
		panic("vector dimension mismatch")
	}
	for i := range v.data {
		v.data[i] += other.Get(i)
	}
}

// Dot 计算与另一个向量的点积
func (v *denseVector) Dot(other Vector) float64 {
	if other.Length() != v.Length() {
		panic("vector dimension mismatch")
	}
	sum := 0.0
	for i, x := range v.data {
		sum += x * other.Get(i)
	}
	return sum
}

func (v *denseVector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v.data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.6g", x)
	}
	b.WriteByte(']')
	return b.String()
}
