package maths

import (
	"math"
	"testing"
)

// TestDenseVectorOperations 测试稠密向量的基本操作
func TestDenseVectorOperations(t *testing.T) {
	v1 := NewDenseVectorWithData([]float64{1, 2, 3})
	if v1.Length() != 3 {
		t.Errorf("Expected length 3, got %d", v1.Length())
	}
	v2 := NewDenseVectorWithData([]float64{4, -5, 6})
	if dot := v1.Dot(v2); dot != 1*4-2*5+3*6 {
		t.Errorf("Expected dot product 12, got %f", dot)
	}
	v1.Add(v2)
	if v1.Get(0) != 5 || v1.Get(1) != -3 || v1.Get(2) != 9 {
		t.Errorf("Vector Add failed. Got %v", v1)
	}
	v1.Scale(2)
	if v1.MaxAbs() != 18 {
		t.Errorf("MaxAbs failed. Got %f", v1.MaxAbs())
	}
	c := NewDenseVector(3)
	v1.Copy(c)
	v1.Zero()
	if c.Get(2) != 18 || v1.Get(2) != 0 {
		t.Errorf("Copy/Zero failed: %v %v", c, v1)
	}
}

// TestVectorMaxAbsNaN NaN 必须传播到范数
func TestVectorMaxAbsNaN(t *testing.T) {
	v := NewDenseVectorWithData([]float64{1, math.NaN(), 3})
	if !math.IsNaN(v.MaxAbs()) {
		t.Errorf("期望 NaN, 实际 %v", v.MaxAbs())
	}
}
