// Package results 仿真结果序列：按时间追加，定稿后只读。
package results

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"hydraulic/types"
)

var ErrFinalized = errors.New("result series is finalized")

// Flag 步状态标记
type Flag uint16

const (
	FlagConverged        Flag = 1 << iota // 求解收敛
	FlagReducedStep                       // 缩步后收敛
	FlagFailed                            // 求解失败，记录为空洞
	FlagTankViolation                     // 水池越界
	FlagNegativePressure                  // 出现负压
	FlagIsolated                          // 存在孤立节点
	FlagStatusChanged                     // 元件状态切换
	FlagControlTrials                     // 后处理控制重解次数超限
)

var flagNames = []string{"converged", "reduced_step", "failed", "tank_violation", "negative_pressure", "isolated", "status_changed", "control_trials"}

// Has 是否包含标记
func (f Flag) Has(o Flag) bool { return f&o != 0 }

func (f Flag) String() string {
	var parts []string
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Step 单步结果（节点量与管段量均按索引）
type Step struct {
	Time       float64
	Head       []float64
	Pressure   []float64
	Demand     []float64
	LeakDemand []float64
	Quality    []float64 // 水质占位，由外部水质引擎填写
	Flow       []float64
	Velocity   []float64
	Status     []types.Status
	Setting    []float64
	Flags      Flag
	Iterations int
}

// Gap 失败步的空洞记录：数值为 NaN，状态保持上一步
func Gap(t float64, nodes, links int, status []types.Status) Step {
	nan := func(n int) []float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = math.NaN()
		}
		return s
	}
	return Step{
		Time:       t,
		Head:       nan(nodes),
		Pressure:   nan(nodes),
		Demand:     nan(nodes),
		LeakDemand: nan(nodes),
		Quality:    nan(nodes),
		Flow:       nan(links),
		Velocity:   nan(links),
		Status:     append([]types.Status(nil), status...),
		Setting:    nan(links),
		Flags:      FlagFailed,
	}
}

// Event 仿真事件（控制动作、状态切换、越界、失败）
type Event struct {
	Time    float64
	Kind    string
	Message string
}

// Series 时间序列结果，可并发读取
type Series struct {
	mu        sync.RWMutex
	id        uuid.UUID
	nodeNames []string
	linkNames []string
	steps     []Step
	events    []Event
	errorCode int
	final     bool
}

// NewSeries 创建空序列
func NewSeries(nodeNames, linkNames []string) *Series {
	return &Series{
		id:        uuid.New(),
		nodeNames: append([]string(nil), nodeNames...),
		linkNames: append([]string(nil), linkNames...),
	}
}

// ID 运行标识
func (s *Series) ID() uuid.UUID { return s.id }

func (s *Series) NodeNames() []string { return append([]string(nil), s.nodeNames...) }
func (s *Series) LinkNames() []string { return append([]string(nil), s.linkNames...) }

// Append 追加一步，时间必须严格递增
func (s *Series) Append(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final {
		return ErrFinalized
	}
	if n := len(s.steps); n > 0 && !(step.Time > s.steps[n-1].Time) {
		return fmt.Errorf("step time %g not after %g", step.Time, s.steps[n-1].Time)
	}
	if len(step.Head) != len(s.nodeNames) || len(step.Flow) != len(s.linkNames) {
		return fmt.Errorf("step size mismatch: %d nodes, %d links", len(step.Head), len(step.Flow))
	}
	s.steps = append(s.steps, step)
	return nil
}

// AddEvent 记录事件
func (s *Series) AddEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final {
		return ErrFinalized
	}
	s.events = append(s.events, e)
	return nil
}

// Finalize 定稿，errorCode 0 正常，2 失败
func (s *Series) Finalize(errorCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final = true
	s.errorCode = errorCode
}

func (s *Series) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.final
}

func (s *Series) ErrorCode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCode
}

func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

// Step 第 i 步的副本
func (s *Series) Step(i int) Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[i].clone()
}

// Steps 全部步的副本
func (s *Series) Steps() []Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Step, len(s.steps))
	for i := range s.steps {
		out[i] = s.steps[i].clone()
	}
	return out
}

// Times 时间轴
func (s *Series) Times() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.steps))
	for i := range s.steps {
		out[i] = s.steps[i].Time
	}
	return out
}

// Events 事件副本
func (s *Series) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// NodeSeries 节点量时间序列，pick 选择字段
func (s *Series) NodeSeries(node types.NodeID, pick func(*Step) []float64) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.steps))
	for i := range s.steps {
		out[i] = pick(&s.steps[i])[node]
	}
	return out
}

// LinkSeries 管段量时间序列
func (s *Series) LinkSeries(link types.LinkID, pick func(*Step) []float64) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.steps))
	for i := range s.steps {
		out[i] = pick(&s.steps[i])[link]
	}
	return out
}

// 常用字段选择器
func HeadOf(s *Step) []float64     { return s.Head }
func PressureOf(s *Step) []float64 { return s.Pressure }
func DemandOf(s *Step) []float64   { return s.Demand }
func FlowOf(s *Step) []float64     { return s.Flow }
func VelocityOf(s *Step) []float64 { return s.Velocity }

func (st *Step) clone() Step {
	c := *st
	c.Head = append([]float64(nil), st.Head...)
	c.Pressure = append([]float64(nil), st.Pressure...)
	c.Demand = append([]float64(nil), st.Demand...)
	c.LeakDemand = append([]float64(nil), st.LeakDemand...)
	c.Quality = append([]float64(nil), st.Quality...)
	c.Flow = append([]float64(nil), st.Flow...)
	c.Velocity = append([]float64(nil), st.Velocity...)
	c.Status = append([]types.Status(nil), st.Status...)
	c.Setting = append([]float64(nil), st.Setting...)
	return c
}
