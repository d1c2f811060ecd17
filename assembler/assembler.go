// Package assembler 方程装配：由管网与当前状态生成残差向量和稀疏雅可比矩阵。
//
// 未知量 x = [H_0 … H_{N-1}, Q_0 … Q_{L-1}]，前 N 行为节点方程，后 L 行为管段方程。
//
//	用水节点  Σ sign·Q - D(H) - leak(H) = 0
//	孤立节点  H - 高程 = 0
//	水库      H - 水头(t) = 0
//	水池      H - (高程 + 液位) = 0
//	关闭管段  Q = 0
//	其余管段  由元件注册表给出
package assembler

import (
	"math"

	"hydraulic/demand"
	"hydraulic/element"
	_ "hydraulic/element/base"
	"hydraulic/maths"
	"hydraulic/network"
	"hydraulic/types"
)

// Params 装配参数
type Params struct {
	Mode            types.Mode
	Headloss        types.Headloss
	MinPressure     float64 // PDD 最小压力 (m)
	NominalPressure float64 // PDD 额定压力 (m)
	PDDSmoothing    float64
	LeakSmoothing   float64
	Multiplier      float64 // 全局需水乘子
}

// Assembler 单次仿真独占的装配器
type Assembler struct {
	net    *network.Network
	params Params
	n, l   int
	jac    maths.UpdateMatrix

	// 以下在 Prepare 时刷新
	time     float64
	st       *network.State
	isoNodes []bool
	isoLinks []bool
	fixed    []float64 // 定水头节点水头，非定水头为 NaN
	full     []float64 // 用水节点满足需水
	hmin     []float64 // PDD 最小总水头
	hreq     []float64 // PDD 额定总水头
	links    []element.Link
}

// New 创建装配器
func New(net *network.Network, p Params) *Assembler {
	n, l := net.NumNodes(), net.NumLinks()
	a := &Assembler{
		net:    net,
		params: p,
		n:      n,
		l:      l,
		jac:    maths.NewUpdateMatrix(maths.NewSparseMatrix(n+l, n+l)),
		fixed:  make([]float64, n),
		full:   make([]float64, n),
		hmin:   make([]float64, n),
		hreq:   make([]float64, n),
		links:  make([]element.Link, l),
	}
	for i := range a.links {
		id := types.LinkID(i)
		link := net.Link(id)
		a.links[i] = element.Link{
			ID:        id,
			Link:      link,
			Headloss:  p.Headloss,
			StartElev: net.Node(link.Start).Elevation(),
			EndElev:   net.Node(link.End).Elevation(),
		}
		if link.Type == types.Pump {
			a.links[i].Curve = net.PumpCurve(id)
		}
	}
	for _, id := range net.Junctions() {
		j := net.Node(id).Junction
		pmin, pnom := j.Pressures(p.MinPressure, p.NominalPressure)
		a.hmin[id] = j.Elevation + pmin
		a.hreq[id] = j.Elevation + pnom
	}
	return a
}

// Size 方程维数
func (a *Assembler) Size() int { return a.n + a.l }

// NumNodes 节点数（未知量中水头的个数）
func (a *Assembler) NumNodes() int { return a.n }

// Prepare 按时刻与状态刷新边界条件，并加盖与流量无关的常数项
func (a *Assembler) Prepare(t float64, st *network.State) {
	a.time = t
	a.st = st
	a.isoNodes, a.isoLinks = a.net.Isolated(st)
	for i := 0; i < a.n; i++ {
		id := types.NodeID(i)
		node := a.net.Node(id)
		a.fixed[i] = math.NaN()
		a.full[i] = 0
		switch node.Type {
		case types.Reservoir:
			a.fixed[i] = node.Reservoir.Head
			if p := a.net.Pattern(node.Reservoir.Pattern); p != nil {
				a.fixed[i] *= p.At(t)
			}
		case types.Tank:
			a.fixed[i] = node.Tank.Elevation + st.Level[i]
		case types.Junction:
			if a.isoNodes[i] {
				a.fixed[i] = node.Junction.Elevation
			} else {
				a.full[i] = demand.Full(a.net, node.Junction, t, a.params.Multiplier)
			}
		}
	}
	for i := range a.links {
		a.links[i].Status = st.Effective[i]
		a.links[i].Setting = st.Setting[i]
	}

	a.jac.Zero()
	for i := 0; i < a.n; i++ {
		if !math.IsNaN(a.fixed[i]) {
			a.jac.Set(i, i, 1)
			continue
		}
		for _, lid := range a.net.Adjacency(types.NodeID(i)) {
			a.jac.Increment(i, a.n+int(lid), a.net.Sign(types.NodeID(i), lid))
		}
	}
	for i := range a.links {
		if a.closed(i) {
			a.jac.Set(a.n+i, a.n+i, 1)
		}
	}
	a.jac.Update()
}

// closed 管段按 Q = 0 处理
func (a *Assembler) closed(i int) bool {
	return a.isoLinks[i] || !a.st.Open(types.LinkID(i))
}

// Evaluate 计算残差 r(x)；jacobian 为真时同时装配并返回雅可比矩阵
func (a *Assembler) Evaluate(x, r maths.Vector, jacobian bool) maths.Matrix {
	if jacobian {
		a.jac.Rollback()
	}
	h := x.RawData()[:a.n]
	q := x.RawData()[a.n:]
	for i := 0; i < a.n; i++ {
		if !math.IsNaN(a.fixed[i]) {
			r.Set(i, h[i]-a.fixed[i])
			continue
		}
		id := types.NodeID(i)
		sum := 0.0
		for _, lid := range a.net.Adjacency(id) {
			sum += a.net.Sign(id, lid) * q[lid]
		}
		d, dd := a.demand(i, h[i])
		lk, dlk := a.leak(i, h[i])
		r.Set(i, sum-d-lk)
		if jacobian {
			a.jac.Increment(i, i, -dd-dlk)
		}
	}
	for i := range a.links {
		row := a.n + i
		if a.closed(i) {
			r.Set(row, q[i])
			continue
		}
		l := &a.links[i]
		eq := element.Get(l.Type).Equation(l, h[l.Start], h[l.End], q[i])
		r.Set(row, eq.R)
		if jacobian {
			a.jac.Increment(row, int(l.Start), eq.DStart)
			a.jac.Increment(row, int(l.End), eq.DEnd)
			a.jac.Increment(row, a.n+i, eq.DFlow)
		}
	}
	if !jacobian {
		return nil
	}
	return a.jac
}

// demand 用水节点实际需水及导数
func (a *Assembler) demand(i int, h float64) (float64, float64) {
	return demand.Evaluate(a.params.Mode, a.full[i], h, a.hmin[i], a.hreq[i], a.params.PDDSmoothing)
}

// leak 节点漏损流量及导数
func (a *Assembler) leak(i int, h float64) (float64, float64) {
	if !a.st.Leak[i] {
		return 0, 0
	}
	j := a.net.Node(types.NodeID(i)).Junction
	return demand.Leak(j.Leak.Area, j.Leak.Discharge, h-j.Elevation, a.params.LeakSmoothing)
}

// CheckStatus 依据收敛解判定元件状态，更新状态中的实际状态并返回变化的管段
// 用户关闭的管段不参与判定
func (a *Assembler) CheckStatus(x maths.Vector) []types.LinkID {
	h := x.RawData()[:a.n]
	q := x.RawData()[a.n:]
	var changed []types.LinkID
	for i := range a.links {
		if a.st.Status[i] == types.Closed {
			continue
		}
		l := &a.links[i]
		next := element.Get(l.Type).CheckStatus(l, h[l.Start], h[l.End], q[i])
		if next != a.st.Effective[i] {
			a.st.Effective[i] = next
			l.Status = next
			changed = append(changed, types.LinkID(i))
		}
	}
	return changed
}

// InitialGuess 冷启动初值：用水节点取定水头节点最高水头，开启管段取小正流量
// PDD 有需水的节点不高于 Hmin 与 Hreq 的中点，使需水对水头的导数非零
func (a *Assembler) InitialGuess(x maths.Vector) {
	top := math.Inf(-1)
	for i := 0; i < a.n; i++ {
		if !math.IsNaN(a.fixed[i]) && !a.isoNodes[i] {
			top = math.Max(top, a.fixed[i])
		}
	}
	for i := 0; i < a.n; i++ {
		switch {
		case !math.IsNaN(a.fixed[i]):
			x.Set(i, a.fixed[i])
		case a.params.Mode == types.PressureDependent && a.full[i] > 0 && a.hreq[i] > a.hmin[i]:
			h := math.Max(top, a.net.Node(types.NodeID(i)).Elevation())
			x.Set(i, math.Min(h, (a.hmin[i]+a.hreq[i])/2))
		default:
			x.Set(i, math.Max(top, a.net.Node(types.NodeID(i)).Elevation()))
		}
	}
	for i := range a.links {
		l := &a.links[i]
		switch {
		case a.closed(i):
			x.Set(a.n+i, 0)
		case l.Type == types.Valve && l.Valve.Kind == types.FCV && l.Status == types.Active:
			x.Set(a.n+i, l.Setting)
		default:
			x.Set(a.n+i, types.InitialFlow)
		}
	}
}

// Warm 以上一步解为初值：定水头节点与关闭管段按当前边界修正
func (a *Assembler) Warm(x maths.Vector) {
	for i := 0; i < a.n; i++ {
		if !math.IsNaN(a.fixed[i]) {
			x.Set(i, a.fixed[i])
		}
	}
	for i := range a.links {
		if a.closed(i) {
			x.Set(a.n+i, 0)
		} else if x.Get(a.n+i) == 0 {
			x.Set(a.n+i, types.InitialFlow)
		}
	}
}

// Solution 由收敛解导出的节点量
type Solution struct {
	Demand []float64 // 实际需水（用水节点）
	Leak   []float64 // 漏损流量
}

// Demands 计算各节点实际需水与漏损
func (a *Assembler) Demands(x maths.Vector) Solution {
	h := x.RawData()[:a.n]
	s := Solution{Demand: make([]float64, a.n), Leak: make([]float64, a.n)}
	for _, id := range a.net.Junctions() {
		if a.isoNodes[id] {
			continue
		}
		s.Demand[id], _ = a.demand(int(id), h[id])
		s.Leak[id], _ = a.leak(int(id), h[id])
	}
	return s
}

// FullDemand 当前时刻用水节点满足需水
func (a *Assembler) FullDemand(node types.NodeID) float64 { return a.full[node] }

// Isolated 最近一次 Prepare 的孤立节点与管段
func (a *Assembler) Isolated() (nodes, links []bool) { return a.isoNodes, a.isoLinks }
