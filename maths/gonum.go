package maths

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// luGonum 基于 gonum mat.LU 的稠密分解
type luGonum struct {
	n  int
	a  *mat.Dense
	lu mat.LU
	x  *mat.VecDense
	b  *mat.VecDense
}

// NewDenseLU 创建 gonum 稠密LU分解器
func NewDenseLU(n int) (LU, error) {
	if n < 1 {
		return nil, errors.New("lu gonum dimension must be positive")
	}
	return &luGonum{
		n: n,
		a: mat.NewDense(n, n, nil),
		x: mat.NewVecDense(n, nil),
		b: mat.NewVecDense(n, nil),
	}, nil
}

// Decompose 拷贝为 gonum 稠密矩阵后分解
func (g *luGonum) Decompose(matrix Matrix) error {
	if !matrix.IsSquare() || matrix.Rows() != g.n {
		return errors.New("lu gonum decompose: matrix dimension mismatch")
	}
	g.a.Zero()
	for i := 0; i < g.n; i++ {
		cols, vals := matrix.GetRow(i)
		for k, j := range cols {
			g.a.Set(i, j, vals[k])
		}
	}
	g.lu.Factorize(g.a)
	if g.lu.Det() == 0 {
		return ErrSingular
	}
	return nil
}

// SolveReuse 求解Ax=b
func (g *luGonum) SolveReuse(b, x Vector) error {
	if b.Length() != g.n || x.Length() != g.n {
		return errors.New("lu gonum solve: vector dimension mismatch")
	}
	for i := 0; i < g.n; i++ {
		g.b.SetVec(i, b.Get(i))
	}
	if err := g.lu.SolveVecTo(g.x, false, g.b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("lu gonum solve: %w", err)
		}
		if math.IsInf(float64(cond), 1) {
			return ErrSingular
		}
		// 病态但可解，结果仍写出
	}
	for i := 0; i < g.n; i++ {
		x.Set(i, g.x.AtVec(i))
	}
	return nil
}
