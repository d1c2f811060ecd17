package network

import (
	"math"

	"hydraulic/types"
)

// State 单次仿真的可变状态（并行数组，按索引访问）
type State struct {
	Status    []types.Status // 用户/控制设定状态
	Effective []types.Status // 求解器判定的实际状态
	Setting   []float64      // 管段设定值（水泵转速、阀门设定）
	Level     []float64      // 水池液位，非水池为 NaN
	Leak      []bool         // 节点漏损开关
}

// NewState 由初始属性生成状态
func (net *Network) NewState() *State {
	st := &State{
		Status:    make([]types.Status, len(net.links)),
		Effective: make([]types.Status, len(net.links)),
		Setting:   make([]float64, len(net.links)),
		Level:     make([]float64, len(net.nodes)),
		Leak:      make([]bool, len(net.nodes)),
	}
	for i := range net.links {
		l := &net.links[i]
		st.Status[i] = l.Status
		st.Effective[i] = l.Status
		st.Setting[i] = l.InitialSetting()
	}
	for i := range net.nodes {
		n := &net.nodes[i]
		st.Level[i] = math.NaN()
		switch n.Type {
		case types.Tank:
			st.Level[i] = n.Tank.InitLevel
		case types.Junction:
			st.Leak[i] = n.Junction.Leak != nil && n.Junction.Leak.Active
		}
	}
	return st
}

// Clone 深拷贝
func (st *State) Clone() *State {
	return &State{
		Status:    append([]types.Status(nil), st.Status...),
		Effective: append([]types.Status(nil), st.Effective...),
		Setting:   append([]float64(nil), st.Setting...),
		Level:     append([]float64(nil), st.Level...),
		Leak:      append([]bool(nil), st.Leak...),
	}
}

// Open 管段在求解中是否过流
func (st *State) Open(link types.LinkID) bool {
	return st.Status[link] != types.Closed && st.Effective[link] != types.Closed
}
