package network

import (
	"errors"
	"fmt"
	"sort"

	"hydraulic/pattern"
	"hydraulic/types"
)

// Builder 管网构造器，错误累积到 Build 统一返回
type Builder struct {
	nodes     []Node
	links     []Link
	ends      [][2]string // 管段端点名，Build 时解析
	nodeIndex map[string]types.NodeID
	linkIndex map[string]types.LinkID
	patterns  map[string]*pattern.Pattern
	errs      []error
}

// NewBuilder 创建构造器
func NewBuilder() *Builder {
	return &Builder{
		nodeIndex: map[string]types.NodeID{},
		linkIndex: map[string]types.LinkID{},
		patterns:  map[string]*pattern.Pattern{},
	}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// AddPattern 注册时间模式
func (b *Builder) AddPattern(p *pattern.Pattern) {
	if p == nil {
		b.fail("nil pattern")
		return
	}
	if _, ok := b.patterns[p.Name()]; ok {
		b.fail("duplicate pattern %q", p.Name())
		return
	}
	b.patterns[p.Name()] = p
}

func (b *Builder) addNode(n Node) types.NodeID {
	if n.Name == "" {
		b.fail("node name is empty")
		return types.NoNode
	}
	if _, ok := b.nodeIndex[n.Name]; ok {
		b.fail("duplicate node %q", n.Name)
		return types.NoNode
	}
	id := types.NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	b.nodeIndex[n.Name] = id
	return id
}

// AddJunction 添加用水节点
func (b *Builder) AddJunction(name string, j Junction) types.NodeID {
	j.Demands = append([]Demand(nil), j.Demands...)
	return b.addNode(Node{Name: name, Type: types.Junction, Junction: &j})
}

// AddReservoir 添加水库
func (b *Builder) AddReservoir(name string, r Reservoir) types.NodeID {
	return b.addNode(Node{Name: name, Type: types.Reservoir, Reservoir: &r})
}

// AddTank 添加水池
func (b *Builder) AddTank(name string, t Tank) types.NodeID {
	t.VolumeCurve = append([]Point(nil), t.VolumeCurve...)
	return b.addNode(Node{Name: name, Type: types.Tank, Tank: &t})
}

func (b *Builder) addLink(l Link, start, end string) types.LinkID {
	if l.Name == "" {
		b.fail("link name is empty")
		return types.NoLink
	}
	if _, ok := b.linkIndex[l.Name]; ok {
		b.fail("duplicate link %q", l.Name)
		return types.NoLink
	}
	id := types.LinkID(len(b.links))
	l.Start, l.End = types.NoNode, types.NoNode
	b.links = append(b.links, l)
	b.ends = append(b.ends, [2]string{start, end})
	b.linkIndex[l.Name] = id
	return id
}

// AddPipe 添加管道
func (b *Builder) AddPipe(name, start, end string, p Pipe) types.LinkID {
	return b.addLink(Link{Name: name, Type: types.Pipe, Status: types.Open, Pipe: &p}, start, end)
}

// AddPump 添加水泵
func (b *Builder) AddPump(name, start, end string, p Pump) types.LinkID {
	p.Curve = append([]Point(nil), p.Curve...)
	return b.addLink(Link{Name: name, Type: types.Pump, Status: types.Open, Pump: &p}, start, end)
}

// AddValve 添加阀门，初始为调节状态
func (b *Builder) AddValve(name, start, end string, v Valve) types.LinkID {
	return b.addLink(Link{Name: name, Type: types.Valve, Status: types.Active, Valve: &v}, start, end)
}

// SetStatus 设置管段初始状态
func (b *Builder) SetStatus(link string, s types.Status) {
	id, ok := b.linkIndex[link]
	if !ok {
		b.fail("status for unknown link %q", link)
		return
	}
	b.links[id].Status = s
}

// Build 校验并生成只读管网
func (b *Builder) Build() (*Network, error) {
	net := &Network{
		nodes:      append([]Node(nil), b.nodes...),
		links:      append([]Link(nil), b.links...),
		nodeIndex:  make(map[string]types.NodeID, len(b.nodeIndex)),
		linkIndex:  make(map[string]types.LinkID, len(b.linkIndex)),
		patterns:   make(map[string]*pattern.Pattern, len(b.patterns)),
		adjacency:  make([][]types.LinkID, len(b.nodes)),
		pumpCurves: make([]PumpCurve, len(b.links)),
	}
	errs := append([]error(nil), b.errs...)
	for k, v := range b.nodeIndex {
		net.nodeIndex[k] = v
	}
	for k, v := range b.linkIndex {
		net.linkIndex[k] = v
	}
	for k, v := range b.patterns {
		net.patterns[k] = v
		net.patternNames = append(net.patternNames, k)
	}
	sort.Strings(net.patternNames)

	hasFixed := false
	for i := range net.nodes {
		n := &net.nodes[i]
		if err := b.checkNode(n); err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.Name, err))
		}
		switch n.Type {
		case types.Junction:
			net.junctions = append(net.junctions, types.NodeID(i))
		case types.Reservoir:
			net.reservoirs = append(net.reservoirs, types.NodeID(i))
			hasFixed = true
		case types.Tank:
			net.tanks = append(net.tanks, types.NodeID(i))
			hasFixed = true
		}
	}
	for i := range net.links {
		l := &net.links[i]
		start, okS := b.nodeIndex[b.ends[i][0]]
		end, okE := b.nodeIndex[b.ends[i][1]]
		if !okS || !okE {
			errs = append(errs, fmt.Errorf("link %q: dangling endpoint (%q -> %q)", l.Name, b.ends[i][0], b.ends[i][1]))
			continue
		}
		if start == end {
			errs = append(errs, fmt.Errorf("link %q: start and end are the same node %q", l.Name, b.ends[i][0]))
			continue
		}
		l.Start, l.End = start, end
		net.adjacency[start] = append(net.adjacency[start], types.LinkID(i))
		net.adjacency[end] = append(net.adjacency[end], types.LinkID(i))
		if err := net.checkLink(types.LinkID(i)); err != nil {
			errs = append(errs, fmt.Errorf("link %q: %w", l.Name, err))
		}
	}
	if len(net.nodes) > 0 && !hasFixed {
		errs = append(errs, errors.New("network has no reservoir or tank"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return net, nil
}

func (b *Builder) checkPattern(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := b.patterns[name]; !ok {
		return fmt.Errorf("missing pattern %q", name)
	}
	return nil
}

func (b *Builder) checkNode(n *Node) error {
	switch n.Type {
	case types.Junction:
		j := n.Junction
		for _, d := range j.Demands {
			if err := b.checkPattern(d.Pattern); err != nil {
				return err
			}
			if d.Base < 0 {
				return fmt.Errorf("negative base demand %v", d.Base)
			}
		}
		if j.MinPressure != nil && j.NominalPressure != nil && *j.NominalPressure < *j.MinPressure {
			return fmt.Errorf("nominal pressure %v below minimum pressure %v", *j.NominalPressure, *j.MinPressure)
		}
		if j.Leak != nil && (j.Leak.Area < 0 || !(j.Leak.Discharge > 0)) {
			return errors.New("leak needs non-negative area and positive discharge coefficient")
		}
	case types.Reservoir:
		return b.checkPattern(n.Reservoir.Pattern)
	case types.Tank:
		t := n.Tank
		if !(t.MinLevel <= t.InitLevel && t.InitLevel <= t.MaxLevel) {
			return fmt.Errorf("levels must satisfy min <= init <= max, got %v/%v/%v", t.MinLevel, t.InitLevel, t.MaxLevel)
		}
		if len(t.VolumeCurve) > 0 {
			return checkVolumeCurve(t.VolumeCurve)
		}
		if !(t.Diameter > 0) {
			return errors.New("tank diameter must be positive")
		}
	}
	return nil
}

func (net *Network) checkLink(id types.LinkID) error {
	l := &net.links[id]
	switch l.Type {
	case types.Pipe:
		p := l.Pipe
		if p.Length < 0 || !(p.Diameter > 0) || !(p.Roughness > 0) || p.MinorLoss < 0 {
			return fmt.Errorf("invalid pipe parameters L=%v D=%v R=%v K=%v", p.Length, p.Diameter, p.Roughness, p.MinorLoss)
		}
	case types.Pump:
		c, err := FitPumpCurve(l.Pump.Curve)
		if err != nil {
			return err
		}
		if l.Pump.Speed < 0 {
			return errors.New("pump speed must not be negative")
		}
		net.pumpCurves[id] = c
	case types.Valve:
		v := l.Valve
		if !(v.Diameter > 0) || v.Setting < 0 || v.MinorLoss < 0 {
			return fmt.Errorf("invalid valve parameters D=%v setting=%v K=%v", v.Diameter, v.Setting, v.MinorLoss)
		}
		if v.Kind == types.PRV || v.Kind == types.FCV {
			for _, n := range []types.NodeID{l.Start, l.End} {
				if net.nodes[n].Type != types.Junction {
					return fmt.Errorf("%s cannot connect to %s %q", v.Kind, net.nodes[n].Type, net.nodes[n].Name)
				}
			}
		}
	}
	return nil
}
