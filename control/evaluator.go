package control

import (
	"fmt"
	"math"
	"sort"

	"hydraulic/network"
	"hydraulic/types"
)

// Change 一次实际生效的修改
type Change struct {
	Rule   string
	Action Action
	Old    float64 // 原值（状态按枚举值记录）
	New    float64
}

// Evaluator 规则评估器（构造后只读，可并发共享）
type Evaluator struct {
	net    *network.Network
	rules  []Rule // 按 (Priority, 注册顺序) 排序
	policy types.ConflictPolicy
}

// NewEvaluator 校验规则引用并排序
func NewEvaluator(net *network.Network, rules []Rule, policy types.ConflictPolicy) (*Evaluator, error) {
	sorted := append([]Rule(nil), rules...)
	for i := range sorted {
		if err := check(net, &sorted[i]); err != nil {
			return nil, fmt.Errorf("control %q: %w", sorted[i].Name, err)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Evaluator{net: net, rules: sorted, policy: policy}, nil
}

func check(net *network.Network, r *Rule) error {
	if r.Condition == nil {
		return fmt.Errorf("missing condition")
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("no actions")
	}
	validNode := func(id types.NodeID) bool { return id >= 0 && int(id) < net.NumNodes() }
	validLink := func(id types.LinkID) bool { return id >= 0 && int(id) < net.NumLinks() }
	switch c := r.Condition.(type) {
	case TankLevel:
		if !validNode(c.Tank) || net.Node(c.Tank).Type != types.Tank {
			return fmt.Errorf("condition references non-tank node %d", c.Tank)
		}
	case NodeValue:
		if !validNode(c.Node) {
			return fmt.Errorf("condition references unknown node %d", c.Node)
		}
	case AtTime:
		if c.Time < 0 || c.Every < 0 {
			return fmt.Errorf("negative control time")
		}
	}
	for _, a := range r.Actions {
		switch a.Kind {
		case SetLeak:
			if !validNode(a.Node) || net.Node(a.Node).Type != types.Junction || net.Node(a.Node).Junction.Leak == nil {
				return fmt.Errorf("leak action on node %d without leak", a.Node)
			}
		case SetSetting:
			if !validLink(a.Link) {
				return fmt.Errorf("action references unknown link %d", a.Link)
			}
			if net.Link(a.Link).Type == types.Pipe {
				return fmt.Errorf("setting action on pipe %q", net.Link(a.Link).Name)
			}
			if a.Setting < 0 {
				return fmt.Errorf("negative setting %v", a.Setting)
			}
		default:
			if !validLink(a.Link) {
				return fmt.Errorf("action references unknown link %d", a.Link)
			}
		}
	}
	return nil
}

// Rules 排序后的规则
func (e *Evaluator) Rules() []Rule { return e.rules }

// Apply 评估指定阶段的规则并写入状态，返回实际生效的修改
// 同一目标多条动作按冲突策略只保留一条
func (e *Evaluator) Apply(phase Phase, v View, st *network.State) []Change {
	type pending struct {
		rule   string
		action Action
	}
	var order [][2]int
	chosen := map[[2]int]pending{}
	for _, r := range e.rules {
		if r.Condition.Phase() != phase || !r.Condition.Satisfied(v) {
			continue
		}
		for _, a := range r.Actions {
			key := a.target()
			if _, ok := chosen[key]; !ok {
				order = append(order, key)
			} else if e.policy == types.FirstWins {
				continue
			}
			chosen[key] = pending{rule: r.Name, action: a}
		}
	}
	var changes []Change
	for _, key := range order {
		p := chosen[key]
		if c, ok := apply(p.action, st); ok {
			c.Rule = p.rule
			changes = append(changes, c)
		}
	}
	return changes
}

// apply 写入状态，值未变化时返回 false
func apply(a Action, st *network.State) (Change, bool) {
	switch a.Kind {
	case SetStatus:
		old := st.Status[a.Link]
		if old == a.Status {
			return Change{}, false
		}
		st.Status[a.Link] = a.Status
		st.Effective[a.Link] = a.Status
		return Change{Action: a, Old: float64(old), New: float64(a.Status)}, true
	case SetSetting:
		old := st.Setting[a.Link]
		if old == a.Setting {
			return Change{}, false
		}
		st.Setting[a.Link] = a.Setting
		return Change{Action: a, Old: old, New: a.Setting}, true
	default:
		old := st.Leak[a.Node]
		if old == a.Leak {
			return Change{}, false
		}
		st.Leak[a.Node] = a.Leak
		return Change{Action: a, Old: b2f(old), New: b2f(a.Leak)}, true
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NextBoundary 严格大于 t 的下一个时间规则触发时刻
func (e *Evaluator) NextBoundary(t float64) float64 {
	next := math.Inf(1)
	for _, r := range e.rules {
		next = math.Min(next, r.Condition.NextTime(t))
	}
	return next
}

// HasPhase 是否存在指定阶段的规则
func (e *Evaluator) HasPhase(phase Phase) bool {
	for _, r := range e.rules {
		if r.Condition.Phase() == phase {
			return true
		}
	}
	return false
}
