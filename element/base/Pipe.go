package base

import (
	"math"

	"hydraulic/element"
	"hydraulic/types"
)

// PipeType 定义元件
var PipeType = element.AddElement(types.Pipe, Pipe{})

// Hazen-Williams 低流量平滑区
var (
	HWQ1 = 0.0002 // 线性区上限 (m³/s)
	HWQ2 = 0.0004 // 三次过渡区上限 (m³/s)
)

// Pipe 管道：摩阻 + 局部损失，可带止回阀
type Pipe struct{}

// Equation Hs - He - hl(Q) = 0
func (Pipe) Equation(l *element.Link, hs, he, q float64) element.Row {
	p := l.Pipe
	var hl, dhl float64
	if l.Headloss == types.DarcyWeisbach {
		hl, dhl = DarcyWeisbach(p.Length, p.Diameter, p.Roughness, q)
	} else {
		hl, dhl = HazenWilliams(p.Length, p.Diameter, p.Roughness, q)
	}
	ml, dml := MinorLoss(p.MinorLoss, p.Diameter, q)
	return element.Row{R: hs - he - hl - ml, DStart: 1, DEnd: -1, DFlow: -dhl - dml}
}

// CheckStatus 止回阀：反向流关闭，正向压差恢复开启
func (Pipe) CheckStatus(l *element.Link, hs, he, q float64) types.Status {
	if !l.Pipe.CheckValve {
		return types.Open
	}
	if l.Status == types.Closed {
		if hs-he > types.StatusHeadTol {
			return types.Open
		}
		return types.Closed
	}
	if q < -types.StatusFlowTol {
		return types.Closed
	}
	return types.Open
}

// HWResistance Hazen-Williams 阻力系数 k，hl = k·|Q|^1.852
func HWResistance(length, diameter, c float64) float64 {
	return types.HWConst * math.Pow(c, -types.HWExpo) * math.Pow(diameter, -4.871) * length
}

// HazenWilliams 水头损失及导数
//
//	|Q| <= q1        线性 hl = k·q1^0.852·Q
//	q1 < |Q| < q2    三次 Hermite 连接两端值与斜率
//	|Q| >= q2        hl = k·|Q|^0.852·Q
func HazenWilliams(length, diameter, c, q float64) (hl, dhl float64) {
	k := HWResistance(length, diameter, c)
	a := math.Abs(q)
	sign := 1.0
	if q < 0 {
		sign = -1
	}
	switch {
	case a <= HWQ1:
		m := k * math.Pow(HWQ1, types.HWExpo-1)
		return m * q, m
	case a < HWQ2:
		x0, x1 := HWQ1, HWQ2
		y0 := k * math.Pow(x0, types.HWExpo)
		y1 := k * math.Pow(x1, types.HWExpo)
		m0 := k * math.Pow(x0, types.HWExpo-1)
		m1 := types.HWExpo * k * math.Pow(x1, types.HWExpo-1)
		y, dy := hermite(a, x0, x1, y0, y1, m0, m1)
		return sign * y, dy
	}
	return sign * k * math.Pow(a, types.HWExpo), types.HWExpo * k * math.Pow(a, types.HWExpo-1)
}

// hermite 三次 Hermite 插值及导数
func hermite(x, x0, x1, y0, y1, m0, m1 float64) (float64, float64) {
	h := x1 - x0
	s := (x - x0) / h
	s2, s3 := s*s, s*s*s
	y := (2*s3-3*s2+1)*y0 + (s3-2*s2+s)*h*m0 + (-2*s3+3*s2)*y1 + (s3-s2)*h*m1
	dy := ((6*s2-6*s)*y0+(3*s2-4*s+1)*h*m0+(-6*s2+6*s)*y1+(3*s2-2*s)*h*m1) / h
	return y, dy
}

// Darcy-Weisbach 流态界限
var (
	ReLaminar   = 2000.0
	ReTurbulent = 4000.0
)

// DarcyWeisbach 水头损失及导数，roughness 为绝对粗糙度 (mm)
// 层流 f = 64/Re，紊流 Swamee-Jain，过渡区按 Re 线性插值
func DarcyWeisbach(length, diameter, roughness, q float64) (hl, dhl float64) {
	a := math.Abs(q)
	sign := 1.0
	if q < 0 {
		sign = -1
	}
	area := math.Pi * diameter * diameter / 4
	dRe := diameter / (area * types.Viscosity) // Re = dRe·|Q|
	re := dRe * a
	if re <= ReLaminar {
		// hl = 32·ν·L·v/(g·d²)
		m := 32 * types.Viscosity * length / (types.Gravity * diameter * diameter * area)
		return m * q, m
	}
	c := 8 * length / (math.Pi * math.Pi * types.Gravity * math.Pow(diameter, 5)) // hl = f·c·Q²
	eps := roughness / 1000 / (3.7 * diameter)
	var f, df float64 // df = df/dRe
	if re >= ReTurbulent {
		f, df = swameeJain(eps, re)
	} else {
		f0 := 64 / ReLaminar
		f1, _ := swameeJain(eps, ReTurbulent)
		df = (f1 - f0) / (ReTurbulent - ReLaminar)
		f = f0 + df*(re-ReLaminar)
	}
	return sign * f * c * a * a, c * (2*f*a + a*a*df*dRe)
}

// swameeJain 摩阻系数及对 Re 的导数
func swameeJain(eps, re float64) (float64, float64) {
	arg := eps + 5.74*math.Pow(re, -0.9)
	lg := math.Log10(arg)
	f := 0.25 / (lg * lg)
	dArg := -0.9 * 5.74 * math.Pow(re, -1.9)
	return f, -0.5 / (lg * lg * lg) / (arg * math.Ln10) * dArg
}

// MinorLoss 局部损失 km·8/(π²·g·d⁴)·Q|Q|
func MinorLoss(km, diameter, q float64) (hl, dhl float64) {
	if km <= 0 || diameter <= 0 {
		return 0, 0
	}
	k := km * 8 / (math.Pi * math.Pi * types.Gravity * math.Pow(diameter, 4))
	return k * q * math.Abs(q), 2 * k * math.Abs(q)
}
