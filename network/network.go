// Package network 管网拓扑：以稳定整数索引存储节点与管段，构造后只读。
package network

import (
	"fmt"

	"hydraulic/pattern"
	"hydraulic/types"
)

// Network 只读管网，可在并发仿真间共享
type Network struct {
	nodes        []Node
	links        []Link
	nodeIndex    map[string]types.NodeID
	linkIndex    map[string]types.LinkID
	patterns     map[string]*pattern.Pattern
	patternNames []string
	adjacency    [][]types.LinkID // 节点 → 关联管段
	pumpCurves   []PumpCurve      // 按管段索引，仅水泵有效
	junctions    []types.NodeID
	reservoirs   []types.NodeID
	tanks        []types.NodeID
}

func (net *Network) NumNodes() int { return len(net.nodes) }
func (net *Network) NumLinks() int { return len(net.links) }

// Node 返回节点（只读指针，调用方不得修改）
func (net *Network) Node(id types.NodeID) *Node { return &net.nodes[id] }

// Link 返回管段（只读指针，调用方不得修改）
func (net *Network) Link(id types.LinkID) *Link { return &net.links[id] }

// NodeID 按名称查找节点
func (net *Network) NodeID(name string) (types.NodeID, error) {
	if id, ok := net.nodeIndex[name]; ok {
		return id, nil
	}
	return types.NoNode, fmt.Errorf("unknown node %q", name)
}

// LinkID 按名称查找管段
func (net *Network) LinkID(name string) (types.LinkID, error) {
	if id, ok := net.linkIndex[name]; ok {
		return id, nil
	}
	return types.NoLink, fmt.Errorf("unknown link %q", name)
}

// NodeNames 按索引顺序的节点名
func (net *Network) NodeNames() []string {
	names := make([]string, len(net.nodes))
	for i := range net.nodes {
		names[i] = net.nodes[i].Name
	}
	return names
}

// LinkNames 按索引顺序的管段名
func (net *Network) LinkNames() []string {
	names := make([]string, len(net.links))
	for i := range net.links {
		names[i] = net.links[i].Name
	}
	return names
}

// Adjacency 节点关联的管段
func (net *Network) Adjacency(node types.NodeID) []types.LinkID { return net.adjacency[node] }

// Sign 关联符号：管段流量在起点为 -1（流出），终点为 +1（流入）
func (net *Network) Sign(node types.NodeID, link types.LinkID) float64 {
	l := &net.links[link]
	switch node {
	case l.Start:
		return -1
	case l.End:
		return 1
	}
	return 0
}

// Pattern 按名称取模式，空名返回 nil
func (net *Network) Pattern(name string) *pattern.Pattern {
	if name == "" {
		return nil
	}
	return net.patterns[name]
}

// Patterns 全部模式（按名称排序）
func (net *Network) Patterns() []*pattern.Pattern {
	list := make([]*pattern.Pattern, 0, len(net.patternNames))
	for _, n := range net.patternNames {
		list = append(list, net.patterns[n])
	}
	return list
}

// PumpCurve 水泵拟合曲线
func (net *Network) PumpCurve(link types.LinkID) PumpCurve { return net.pumpCurves[link] }

func (net *Network) Junctions() []types.NodeID  { return net.junctions }
func (net *Network) Reservoirs() []types.NodeID { return net.reservoirs }
func (net *Network) Tanks() []types.NodeID      { return net.tanks }
