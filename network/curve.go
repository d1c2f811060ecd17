package network

import (
	"errors"
	"fmt"
	"math"
)

// PumpCurve 水泵扬程曲线 H = A - B·Q^C
type PumpCurve struct {
	A, B, C float64
}

// FitPumpCurve 由 1 点或 3 点拟合扬程曲线
//
//	1 点 (Q1,H1)：A = 4/3·H1，B = H1/(3·Q1²)，C = 2
//	3 点 (0,H0),(Q1,H1),(Q2,H2)：A = H0，C = ln((H0-H2)/(H0-H1))/ln(Q2/Q1)，B = (H0-H1)/Q1^C
func FitPumpCurve(points []Point) (PumpCurve, error) {
	switch len(points) {
	case 1:
		q, h := points[0].X, points[0].Y
		if !(q > 0) || !(h > 0) {
			return PumpCurve{}, fmt.Errorf("pump design point must be positive, got (%v, %v)", q, h)
		}
		return PumpCurve{A: 4.0 / 3.0 * h, B: h / 3.0 / (q * q), C: 2}, nil
	case 3:
		h0 := points[0].Y
		q1, h1 := points[1].X, points[1].Y
		q2, h2 := points[2].X, points[2].Y
		if points[0].X != 0 || !(q1 > 0) || !(q2 > q1) || !(h0 > h1) || !(h1 > h2) {
			return PumpCurve{}, errors.New("pump curve must start at zero flow with increasing flows and decreasing heads")
		}
		c := math.Log((h0-h2)/(h0-h1)) / math.Log(q2/q1)
		if !(c > 0) || math.IsInf(c, 0) {
			return PumpCurve{}, fmt.Errorf("pump curve exponent %v is invalid", c)
		}
		return PumpCurve{A: h0, B: (h0 - h1) / math.Pow(q1, c), C: c}, nil
	}
	return PumpCurve{}, fmt.Errorf("pump curve needs 1 or 3 points, got %d", len(points))
}

// Gain 转速比 s 下流量 q 的扬程（q 已为正向）
func (c PumpCurve) Gain(q, s float64) float64 {
	return s*s*c.A - c.B*math.Pow(s, 2-c.C)*math.Pow(q, c.C)
}

// Shutoff 转速比 s 下的关死扬程
func (c PumpCurve) Shutoff(s float64) float64 { return s * s * c.A }

// checkVolumeCurve 液位-容积曲线：液位严格递增，容积非减
func checkVolumeCurve(points []Point) error {
	if len(points) < 2 {
		return errors.New("volume curve needs at least 2 points")
	}
	for i := 1; i < len(points); i++ {
		if !(points[i].X > points[i-1].X) {
			return fmt.Errorf("volume curve levels must increase (point %d)", i)
		}
		if points[i].Y < points[i-1].Y {
			return fmt.Errorf("volume curve volumes must not decrease (point %d)", i)
		}
	}
	if points[len(points)-1].Y <= points[0].Y {
		return errors.New("volume curve is flat")
	}
	return nil
}
