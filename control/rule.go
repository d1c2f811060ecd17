// Package control 控制规则：条件满足时修改管段状态、设定值或漏损开关。
package control

import (
	"fmt"
	"math"

	"hydraulic/types"
)

// Phase 规则评估时机
type Phase uint8

const (
	PreSolve  Phase = iota // 求解前（时间、水池液位）
	PostSolve              // 求解后（节点状态）
)

func (p Phase) String() string {
	if p == PostSolve {
		return "postsolve"
	}
	return "presolve"
}

// Comparison 比较方向
type Comparison uint8

const (
	Above Comparison = iota // >=
	Below                   // <=
)

func (c Comparison) holds(value, threshold float64) bool {
	if c == Below {
		return value <= threshold
	}
	return value >= threshold
}

func (c Comparison) String() string {
	if c == Below {
		return "<="
	}
	return ">="
}

// Attribute 节点属性
type Attribute uint8

const (
	Head Attribute = iota
	Pressure
	Demand
)

func (a Attribute) String() string {
	return [...]string{"head", "pressure", "demand"}[a]
}

// View 控制评估时可读的仿真量
type View interface {
	Time() float64
	TankLevel(node types.NodeID) float64
	NodeHead(node types.NodeID) float64
	NodePressure(node types.NodeID) float64
	NodeDemand(node types.NodeID) float64
}

// Condition 规则条件
type Condition interface {
	Phase() Phase
	Satisfied(v View) bool
	NextTime(t float64) float64 // 严格大于 t 的下一个触发时刻，无则 +Inf
	String() string
}

// AtTime 到达指定时刻触发，Every > 0 时周期重复
type AtTime struct {
	Time  float64
	Every float64
}

func (c AtTime) Phase() Phase { return PreSolve }

func (c AtTime) Satisfied(v View) bool {
	t := v.Time()
	if t < c.Time-types.TimeEpsilon {
		return false
	}
	if c.Every <= 0 {
		return math.Abs(t-c.Time) <= types.TimeEpsilon
	}
	r := math.Mod(t-c.Time, c.Every)
	return r <= types.TimeEpsilon || c.Every-r <= types.TimeEpsilon
}

func (c AtTime) NextTime(t float64) float64 {
	if t < c.Time-types.TimeEpsilon {
		return c.Time
	}
	if c.Every <= 0 {
		return math.Inf(1)
	}
	k := math.Floor((t-c.Time)/c.Every+types.TimeEpsilon/c.Every) + 1
	return c.Time + k*c.Every
}

func (c AtTime) String() string {
	if c.Every > 0 {
		return fmt.Sprintf("time = %g every %g", c.Time, c.Every)
	}
	return fmt.Sprintf("time = %g", c.Time)
}

// TankLevel 水池液位越过阈值
type TankLevel struct {
	Tank  types.NodeID
	Op    Comparison
	Level float64
}

func (c TankLevel) Phase() Phase             { return PreSolve }
func (c TankLevel) Satisfied(v View) bool    { return c.Op.holds(v.TankLevel(c.Tank), c.Level) }
func (c TankLevel) NextTime(float64) float64 { return math.Inf(1) }
func (c TankLevel) String() string {
	return fmt.Sprintf("tank[%d] level %s %g", c.Tank, c.Op, c.Level)
}

// NodeValue 节点求解结果越过阈值
type NodeValue struct {
	Node  types.NodeID
	Attr  Attribute
	Op    Comparison
	Value float64
}

func (c NodeValue) Phase() Phase             { return PostSolve }
func (c NodeValue) NextTime(float64) float64 { return math.Inf(1) }

func (c NodeValue) Satisfied(v View) bool {
	var x float64
	switch c.Attr {
	case Head:
		x = v.NodeHead(c.Node)
	case Pressure:
		x = v.NodePressure(c.Node)
	default:
		x = v.NodeDemand(c.Node)
	}
	return c.Op.holds(x, c.Value)
}

func (c NodeValue) String() string {
	return fmt.Sprintf("node[%d] %s %s %g", c.Node, c.Attr, c.Op, c.Value)
}

// ActionKind 动作类型
type ActionKind uint8

const (
	SetStatus  ActionKind = iota // 设置管段状态
	SetSetting                   // 设置管段设定值
	SetLeak                      // 开关节点漏损
)

// Action 规则动作
type Action struct {
	Kind    ActionKind
	Link    types.LinkID
	Node    types.NodeID
	Status  types.Status
	Setting float64
	Leak    bool
}

// target 冲突判定键
func (a Action) target() [2]int {
	if a.Kind == SetLeak {
		return [2]int{int(a.Kind), int(a.Node)}
	}
	return [2]int{int(a.Kind), int(a.Link)}
}

func (a Action) String() string {
	switch a.Kind {
	case SetStatus:
		return fmt.Sprintf("link[%d] status = %s", a.Link, a.Status)
	case SetSetting:
		return fmt.Sprintf("link[%d] setting = %g", a.Link, a.Setting)
	}
	return fmt.Sprintf("node[%d] leak = %t", a.Node, a.Leak)
}

// Rule 控制规则；Priority 小者先执行
type Rule struct {
	Name      string
	Priority  int
	Condition Condition
	Actions   []Action
}
