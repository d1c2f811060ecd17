// Package pattern 时间模式：按固定步长取乘子的分段常数序列。
package pattern

import (
	"errors"
	"fmt"
	"math"

	"hydraulic/types"
)

// Tail 超出序列末尾后的取值方式
type Tail uint8

const (
	Wrap Tail = iota // 循环
	Hold             // 保持末值
	Zero             // 取 0
)

func (t Tail) String() string {
	return [...]string{"wrap", "hold", "zero"}[t]
}

// Pattern 时间模式（构造后只读，可在并发仿真间共享）
type Pattern struct {
	name        string
	multipliers []float64
	step        float64 // 每个乘子持续时间 (s)
	start       float64 // 起始偏移 (s)
	tail        Tail
}

// New 创建模式
func New(name string, step float64, multipliers []float64, tail Tail) (*Pattern, error) {
	if name == "" {
		return nil, errors.New("pattern name is empty")
	}
	if len(multipliers) > 0 && !(step > 0) {
		return nil, fmt.Errorf("pattern %s: step must be positive, got %v", name, step)
	}
	if tail > Zero {
		return nil, fmt.Errorf("pattern %s: unknown tail mode %d", name, tail)
	}
	for i, m := range multipliers {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("pattern %s: multiplier %d is not finite", name, i)
		}
	}
	return &Pattern{
		name:        name,
		multipliers: append([]float64(nil), multipliers...),
		step:        step,
		tail:        tail,
	}, nil
}

// WithStart 返回带起始偏移的副本
func (p *Pattern) WithStart(start float64) *Pattern {
	c := *p
	c.start = start
	return &c
}

func (p *Pattern) Name() string  { return p.name }
func (p *Pattern) Len() int      { return len(p.multipliers) }
func (p *Pattern) Step() float64 { return p.step }

// index 计算时刻 t 的步序号（容许浮点误差）
func (p *Pattern) index(t float64) int {
	k := math.Floor((t-p.start)/p.step + types.TimeEpsilon/p.step)
	if k < 0 {
		return 0
	}
	return int(k)
}

// Tail 末尾取值方式
func (p *Pattern) Tail() Tail { return p.tail }

// At 返回时刻 t 的乘子
// 空模式恒为 1；超出末尾按 Tail 循环、保持末值或取 0
func (p *Pattern) At(t float64) float64 {
	n := len(p.multipliers)
	if n == 0 {
		return 1
	}
	k := p.index(t)
	if k >= n {
		switch p.tail {
		case Hold:
			k = n - 1
		case Zero:
			return 0
		default:
			k %= n
		}
	}
	return p.multipliers[k]
}

// NextBoundary 返回严格大于 t 的下一个乘子切换时刻，无切换返回 +Inf
func (p *Pattern) NextBoundary(t float64) float64 {
	n := len(p.multipliers)
	if n == 0 {
		return math.Inf(1)
	}
	if t < p.start-types.TimeEpsilon {
		return p.start
	}
	k := p.index(t)
	switch {
	case p.tail == Hold && k >= n-1:
		return math.Inf(1)
	case p.tail == Zero && k >= n:
		return math.Inf(1)
	}
	return p.start + float64(k+1)*p.step
}
