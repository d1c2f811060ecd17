package base

import (
	"math"

	"hydraulic/element"
	"hydraulic/types"
)

// PumpType 定义元件
var PumpType = element.AddElement(types.Pump, Pump{})

// 扬程曲线延拓
var (
	PumpQ1           = 1e-6 // 小流量沿切线外推的起点 (m³/s)
	PumpReverseSlope = 1e4  // 反向流线性阻力 (m·s/m³)
)

// Pump 水泵：起点至终点为正向，He - Hs = gain(Q)
type Pump struct{}

// Equation Hs - He + gain(Q) = 0
func (Pump) Equation(l *element.Link, hs, he, q float64) element.Row {
	g, dg := PumpGain(l.Curve.A, l.Curve.B, l.Curve.C, l.Setting, q)
	return element.Row{R: hs - he + g, DStart: 1, DEnd: -1, DFlow: dg}
}

// CheckStatus 扬程需求超过关死扬程时关闭，回落后重新开启；转速为 0 视为关闭
func (Pump) CheckStatus(l *element.Link, hs, he, q float64) types.Status {
	if l.Setting <= 0 {
		return types.Closed
	}
	shutoff := l.Curve.Shutoff(l.Setting)
	if l.Status == types.Closed {
		if he-hs < shutoff-types.StatusHeadTol {
			return types.Open
		}
		return types.Closed
	}
	if he-hs > shutoff+types.StatusHeadTol || q < -types.StatusFlowTol {
		return types.Closed
	}
	return types.Open
}

// PumpGain 转速比 s 下的扬程及导数
func PumpGain(a, b, c, s, q float64) (g, dg float64) {
	k := b * math.Pow(s, 2-c)
	if q <= PumpQ1 {
		g1 := s*s*a - k*math.Pow(PumpQ1, c)
		m := -c * k * math.Pow(PumpQ1, c-1)
		if q < 0 {
			return g1 - m*PumpQ1 - PumpReverseSlope*q, -PumpReverseSlope
		}
		return g1 + m*(q-PumpQ1), m
	}
	return s*s*a - k*math.Pow(q, c), -c * k * math.Pow(q, c-1)
}
