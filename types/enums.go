package types

import (
	"fmt"
	"strings"
)

// NodeType 节点类型
type NodeType uint8

const (
	Junction  NodeType = iota // 用水节点
	Reservoir                 // 水库（定水头）
	Tank                      // 水池（有限容积）
)

// LinkType 管段类型
type LinkType uint8

const (
	Pipe  LinkType = iota // 管道
	Pump                  // 水泵
	Valve                 // 阀门
)

// Status 管段状态
type Status uint8

const (
	Open   Status = iota // 开启
	Closed               // 关闭
	Active               // 调节中（阀门部分开启）
)

// ValveKind 阀门种类
type ValveKind uint8

const (
	PRV ValveKind = iota // 减压阀
	FCV                  // 流量控制阀
	TCV                  // 节流阀
)

// Mode 需水模型
type Mode uint8

const (
	DemandDriven      Mode = iota // 需求驱动
	PressureDependent             // 压力驱动
)

// TankPolicy 水池越限策略
type TankPolicy uint8

const (
	TankAbort        TankPolicy = iota // 直接终止
	TankClampAndFlag                   // 截断并记录
)

// FailurePolicy 单步求解失败策略
type FailurePolicy uint8

const (
	FailAbort      FailurePolicy = iota // 终止整个仿真
	FailReduceStep                      // 缩小步长重试
	FailSkipStep                        // 记录空洞并跳过
)

// Headloss 水头损失公式
type Headloss uint8

const (
	HazenWilliams Headloss = iota
	DarcyWeisbach
)

// ConflictPolicy 同一目标控制冲突的处理
type ConflictPolicy uint8

const (
	LastWins  ConflictPolicy = iota // 后执行规则生效
	FirstWins                       // 先执行规则生效
)

// LineSearch 牛顿步长策略
type LineSearch uint8

const (
	Backtracking    LineSearch = iota // 回溯线搜索
	AdaptiveDamping                   // 自适应阻尼
	FullStep                          // 完整牛顿步
)

// LinearSolver 线性求解器
type LinearSolver uint8

const (
	SparseLU LinearSolver = iota // 稀疏 LU
	DenseLU                      // gonum 稠密 LU
)

var (
	nodeTypeNames      = []string{"junction", "reservoir", "tank"}
	linkTypeNames      = []string{"pipe", "pump", "valve"}
	statusNames        = []string{"open", "closed", "active"}
	valveKindNames     = []string{"prv", "fcv", "tcv"}
	modeNames          = []string{"dd", "pdd"}
	tankPolicyNames    = []string{"abort", "clamp_and_flag"}
	failurePolicyNames = []string{"abort", "reduce_step", "skip_step"}
	headlossNames      = []string{"hw", "dw"}
	conflictNames      = []string{"last_wins", "first_wins"}
	lineSearchNames    = []string{"backtracking", "damping", "full"}
	linearSolverNames  = []string{"sparse", "dense"}
)

func name(list []string, i uint8) string {
	if int(i) < len(list) {
		return list[i]
	}
	return fmt.Sprintf("unknown(%d)", i)
}

func parse(list []string, kind, text string) (uint8, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	for i, n := range list {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, text, strings.Join(list, ", "))
}

func (t NodeType) String() string       { return name(nodeTypeNames, uint8(t)) }
func (t LinkType) String() string       { return name(linkTypeNames, uint8(t)) }
func (s Status) String() string         { return name(statusNames, uint8(s)) }
func (k ValveKind) String() string      { return name(valveKindNames, uint8(k)) }
func (m Mode) String() string           { return name(modeNames, uint8(m)) }
func (p TankPolicy) String() string     { return name(tankPolicyNames, uint8(p)) }
func (p FailurePolicy) String() string  { return name(failurePolicyNames, uint8(p)) }
func (h Headloss) String() string       { return name(headlossNames, uint8(h)) }
func (p ConflictPolicy) String() string { return name(conflictNames, uint8(p)) }
func (l LineSearch) String() string     { return name(lineSearchNames, uint8(l)) }
func (l LinearSolver) String() string   { return name(linearSolverNames, uint8(l)) }

// ------------------------------ 文本解析 ------------------------------

func (s *Status) UnmarshalText(b []byte) error {
	v, err := parse(statusNames, "status", string(b))
	*s = Status(v)
	return err
}

func (k *ValveKind) UnmarshalText(b []byte) error {
	v, err := parse(valveKindNames, "valve kind", string(b))
	*k = ValveKind(v)
	return err
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := parse(modeNames, "mode", string(b))
	*m = Mode(v)
	return err
}

func (p *TankPolicy) UnmarshalText(b []byte) error {
	v, err := parse(tankPolicyNames, "tank policy", string(b))
	*p = TankPolicy(v)
	return err
}

func (p *FailurePolicy) UnmarshalText(b []byte) error {
	v, err := parse(failurePolicyNames, "failure policy", string(b))
	*p = FailurePolicy(v)
	return err
}

func (h *Headloss) UnmarshalText(b []byte) error {
	v, err := parse(headlossNames, "headloss", string(b))
	*h = Headloss(v)
	return err
}

func (p *ConflictPolicy) UnmarshalText(b []byte) error {
	v, err := parse(conflictNames, "conflict policy", string(b))
	*p = ConflictPolicy(v)
	return err
}

func (l *LineSearch) UnmarshalText(b []byte) error {
	v, err := parse(lineSearchNames, "line search", string(b))
	*l = LineSearch(v)
	return err
}

func (l *LinearSolver) UnmarshalText(b []byte) error {
	v, err := parse(linearSolverNames, "linear solver", string(b))
	*l = LinearSolver(v)
	return err
}

// MarshalText 输出文本
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
