// Package tank 水池液位积分：按步内恒定净流量更新容积，再换算回液位。
package tank

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"hydraulic/network"
	"hydraulic/types"
)

var ErrTankViolation = errors.New("tank level out of bounds")

// Geometry 液位与容积互换
type Geometry interface {
	Volume(level float64) float64
	Level(volume float64) float64
}

// Cylinder 圆柱水池
type Cylinder struct {
	Diameter float64
}

func (c Cylinder) area() float64 { return math.Pi * c.Diameter * c.Diameter / 4 }

func (c Cylinder) Volume(level float64) float64 { return c.area() * level }
func (c Cylinder) Level(volume float64) float64 { return volume / c.area() }

// Curve 分段线性液位-容积表，表外按端段斜率线性外推
type Curve struct {
	points []network.Point // X 液位，Y 容积
}

// NewCurve 创建容积曲线（液位严格递增，容积非减）
func NewCurve(points []network.Point) (*Curve, error) {
	if len(points) < 2 {
		return nil, errors.New("volume curve needs at least 2 points")
	}
	for i := 1; i < len(points); i++ {
		if !(points[i].X > points[i-1].X) || points[i].Y < points[i-1].Y {
			return nil, fmt.Errorf("volume curve must be increasing at point %d", i)
		}
	}
	return &Curve{points: append([]network.Point(nil), points...)}, nil
}

func (c *Curve) Volume(level float64) float64 {
	p := c.points
	i := sort.Search(len(p), func(i int) bool { return p[i].X >= level })
	i = min(max(i, 1), len(p)-1)
	a, b := p[i-1], p[i]
	return a.Y + (b.Y-a.Y)*(level-a.X)/(b.X-a.X)
}

func (c *Curve) Level(volume float64) float64 {
	p := c.points
	i := sort.Search(len(p), func(i int) bool { return p[i].Y >= volume })
	i = min(max(i, 1), len(p)-1)
	a, b := p[i-1], p[i]
	// 平段跳到下一个有斜率的区间
	for b.Y == a.Y && i < len(p)-1 {
		i++
		a, b = p[i-1], p[i]
	}
	if b.Y == a.Y {
		return b.X
	}
	return a.X + (b.X-a.X)*(volume-a.Y)/(b.Y-a.Y)
}

// Violation 越界记录
type Violation struct {
	Tank     types.NodeID
	Time     float64
	Level    float64 // 未截断的液位
	Clamped  float64 // 截断后的液位
	Overflow bool    // true 溢出，false 放空
}

func (v Violation) String() string {
	kind := "empty"
	if v.Overflow {
		kind = "overflow"
	}
	return fmt.Sprintf("tank[%d] %s at t=%g: level %.4g clamped to %.4g", v.Tank, kind, v.Time, v.Level, v.Clamped)
}

// Integrator 管网全部水池的积分器（构造后只读）
type Integrator struct {
	net      *network.Network
	geometry map[types.NodeID]Geometry
	policy   types.TankPolicy
}

// NewIntegrator 按水池属性创建几何
func NewIntegrator(net *network.Network, policy types.TankPolicy) (*Integrator, error) {
	it := &Integrator{net: net, geometry: map[types.NodeID]Geometry{}, policy: policy}
	for _, id := range net.Tanks() {
		t := net.Node(id).Tank
		if len(t.VolumeCurve) > 0 {
			c, err := NewCurve(t.VolumeCurve)
			if err != nil {
				return nil, fmt.Errorf("tank %q: %w", net.Node(id).Name, err)
			}
			it.geometry[id] = c
			continue
		}
		it.geometry[id] = Cylinder{Diameter: t.Diameter}
	}
	return it, nil
}

// Geometry 水池几何
func (it *Integrator) Geometry(id types.NodeID) Geometry { return it.geometry[id] }

// NetInflow 由管段流量计算各水池净流入 (m³/s)
func (it *Integrator) NetInflow(flows []float64) map[types.NodeID]float64 {
	out := make(map[types.NodeID]float64, len(it.geometry))
	for _, id := range it.net.Tanks() {
		sum := 0.0
		for _, lid := range it.net.Adjacency(id) {
			sum += it.net.Sign(id, lid) * flows[lid]
		}
		out[id] = sum
	}
	return out
}

// Advance 以恒定净流入推进 dt 秒，更新 st.Level
// Abort 策略越界时不修改状态并返回 ErrTankViolation
func (it *Integrator) Advance(st *network.State, inflow map[types.NodeID]float64, dt, t float64) ([]Violation, error) {
	next := make(map[types.NodeID]float64, len(inflow))
	var violations []Violation
	for _, id := range it.net.Tanks() {
		tk := it.net.Node(id).Tank
		g := it.geometry[id]
		level := g.Level(g.Volume(st.Level[id]) + inflow[id]*dt)
		clamped := math.Min(math.Max(level, tk.MinLevel), tk.MaxLevel)
		if clamped != level {
			violations = append(violations, Violation{Tank: id, Time: t, Level: level, Clamped: clamped, Overflow: level > tk.MaxLevel})
		}
		next[id] = clamped
	}
	if len(violations) > 0 && it.policy == types.TankAbort {
		return violations, fmt.Errorf("%w: %s", ErrTankViolation, violations[0])
	}
	for id, level := range next {
		st.Level[id] = level
	}
	return violations, nil
}
