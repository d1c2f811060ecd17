package network

import "hydraulic/types"

// Isolated 从全部水池与水库出发沿未关闭管段广度搜索，
// 未到达的用水节点及其关联管段视为孤立
func (net *Network) Isolated(st *State) (nodes []bool, links []bool) {
	reached := make([]bool, len(net.nodes))
	queue := make([]types.NodeID, 0, len(net.nodes))
	for _, group := range [][]types.NodeID{net.tanks, net.reservoirs} {
		for _, id := range group {
			if !reached[id] {
				reached[id] = true
				queue = append(queue, id)
			}
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, lid := range net.adjacency[id] {
			if !st.Open(lid) {
				continue
			}
			l := &net.links[lid]
			next := l.Start
			if next == id {
				next = l.End
			}
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	nodes = make([]bool, len(net.nodes))
	links = make([]bool, len(net.links))
	for i := range net.nodes {
		if reached[i] {
			continue
		}
		nodes[i] = true
		for _, lid := range net.adjacency[i] {
			links[lid] = true
		}
	}
	return nodes, links
}
