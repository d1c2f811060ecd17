// Package demand 需水模型：需求驱动与压力驱动两种公式，以及节点漏损。
//
// 压力驱动平滑：记 x = (H-Hmin)/(Hreq-Hmin)，宽度 w（归一化）。
//
//	x <= 0        D = 0
//	0 < x < w     D = Dfull·√w·(2.5s² - 1.5s³)，s = x/w
//	w <= x <= 1-w D = Dfull·√x
//	1-w < x < 1   从 (√(1-w), 1/(2√(1-w))) 到 (1, 0) 的三次 Hermite
//	x >= 1        D = Dfull
//
// 两段三次式在端点与 √x 值和斜率相同，整体一阶连续且单调。
package demand

import (
	"math"

	"hydraulic/network"
	"hydraulic/pattern"
	"hydraulic/types"
)

// Evaluate 按模式计算实际需水量及其对水头的导数
func Evaluate(mode types.Mode, full, head, hmin, hreq, width float64) (d, dd float64) {
	switch mode {
	case types.PressureDependent:
		return PressureDependent(full, head, hmin, hreq, width)
	default:
		return full, 0
	}
}

// PressureDependent 压力驱动需水量（hmin/hreq 为总水头）
func PressureDependent(full, head, hmin, hreq, width float64) (d, dd float64) {
	if full <= 0 || head <= hmin {
		return 0, 0
	}
	if head >= hreq {
		return full, 0
	}
	span := hreq - hmin
	f, df := smoothSqrt((head-hmin)/span, width)
	return full * f, full * df / span
}

// smoothSqrt 平滑后的 √x（x ∈ (0,1)），返回值与导数
func smoothSqrt(x, w float64) (float64, float64) {
	if w <= 0 {
		return math.Sqrt(x), 0.5 / math.Sqrt(x)
	}
	if w > 0.5 {
		w = 0.5
	}
	switch {
	case x < w:
		s := x / w
		rw := math.Sqrt(w)
		return rw * (2.5*s*s - 1.5*s*s*s), rw * (5*s - 4.5*s*s) / w
	case x > 1-w:
		x0 := 1 - w
		p0, p1 := math.Sqrt(x0), 1.0
		m0 := 0.5 / p0 * w // 斜率按区间长度缩放
		s := (x - x0) / w
		h00 := 2*s*s*s - 3*s*s + 1
		h10 := s*s*s - 2*s*s + s
		h01 := -2*s*s*s + 3*s*s
		d00 := 6*s*s - 6*s
		d10 := 3*s*s - 4*s + 1
		d01 := -6*s*s + 6*s
		return h00*p0 + h10*m0 + h01*p1, (d00*p0 + d10*m0 + d01*p1) / w
	}
	return math.Sqrt(x), 0.5 / math.Sqrt(x)
}

// Leak 漏损流量 Cd·A·√(2g·p)，p 为压力 (m)，低压区按 width (m) 平滑
func Leak(area, cd, pressure, width float64) (d, dd float64) {
	if area <= 0 || pressure <= 0 {
		return 0, 0
	}
	k := cd * area * math.Sqrt(2*types.Gravity)
	if width > 0 && pressure < width {
		s := pressure / width
		rw := math.Sqrt(width)
		return k * rw * (2.5*s*s - 1.5*s*s*s), k * rw * (5*s - 4.5*s*s) / width
	}
	return k * math.Sqrt(pressure), k * 0.5 / math.Sqrt(pressure)
}

// Full 节点满足需水：各项基础需水乘以各自模式乘子之和，再乘全局乘子
func Full(net *network.Network, j *network.Junction, t, multiplier float64) float64 {
	total := 0.0
	for _, d := range j.Demands {
		total += d.Base * multiplierAt(net.Pattern(d.Pattern), t)
	}
	return total * multiplier
}

// ByCategory 按类别汇总满足需水
func ByCategory(net *network.Network, j *network.Junction, t, multiplier float64) map[string]float64 {
	out := map[string]float64{}
	for _, d := range j.Demands {
		out[d.Category] += d.Base * multiplierAt(net.Pattern(d.Pattern), t) * multiplier
	}
	return out
}

func multiplierAt(p *pattern.Pattern, t float64) float64 {
	if p == nil {
		return 1
	}
	return p.At(t)
}
