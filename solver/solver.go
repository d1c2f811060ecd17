// Package solver 牛顿求解器：带线搜索或自适应阻尼的状态机，处理元件状态切换后的重新装配。
package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"hydraulic/assembler"
	"hydraulic/logging"
	"hydraulic/maths"
	"hydraulic/network"
	"hydraulic/types"
)

// State 求解状态
type State uint8

const (
	Assembling          State = iota // 装配方程
	Iterating                        // 牛顿迭代
	Converged                        // 收敛
	Diverged                         // 发散（迭代超限、奇异、线搜索失败）
	StateChangeDetected              // 元件状态切换，需重新装配
)

func (s State) String() string {
	return [...]string{"assembling", "iterating", "converged", "diverged", "state-change"}[s]
}

var (
	ErrDiverged      = errors.New("newton iteration diverged")
	ErrSingular      = errors.New("singular jacobian")
	ErrStatusCycling = errors.New("element status cycling")
)

// 阻尼参数
var (
	MinDampingFactor = 0.01
	MaxDampingFactor = 1.0
)

// Options 求解参数
type Options struct {
	Tolerance        float64
	MaxIterations    int
	MaxStatusRetries int
	LineSearch       types.LineSearch
	LinearSolver     types.LinearSolver
	Logger           *slog.Logger
}

// DefaultOptions 默认求解参数
func DefaultOptions() Options {
	return Options{
		Tolerance:        types.Tolerance,
		MaxIterations:    types.MaxIterations,
		MaxStatusRetries: types.MaxStatusRetries,
	}
}

// Result 单次求解结果
type Result struct {
	State         State
	Iterations    int            // 累计牛顿迭代次数
	Assemblies    int            // 装配次数
	Residual      float64        // 最终残差无穷范数
	StatusChanges []types.LinkID // 本次求解中切换过状态的管段
}

// Solver 单次仿真独占的求解器
type Solver struct {
	asm  *assembler.Assembler
	opts Options
	log  *slog.Logger
	lu   maths.LU

	r, rhs, dx, trial, rt maths.Vector

	// 阻尼模式状态
	damping     float64
	oscillation int
}

// New 创建求解器
func New(asm *assembler.Assembler, opts Options) (*Solver, error) {
	n := asm.Size()
	var (
		lu  maths.LU
		err error
	)
	switch opts.LinearSolver {
	case types.DenseLU:
		lu, err = maths.NewDenseLU(n)
	default:
		lu, err = maths.NewLUSparse(n)
	}
	if err != nil {
		return nil, fmt.Errorf("linear solver: %v", err)
	}
	if opts.Tolerance <= 0 || opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("invalid solver options: tolerance %v, max iterations %d", opts.Tolerance, opts.MaxIterations)
	}
	return &Solver{
		asm:   asm,
		opts:  opts,
		log:   logging.OrDiscard(opts.Logger),
		lu:    lu,
		r:     maths.NewDenseVector(n),
		rhs:   maths.NewDenseVector(n),
		dx:    maths.NewDenseVector(n),
		trial: maths.NewDenseVector(n),
		rt:    maths.NewDenseVector(n),
	}, nil
}

// Size 未知量个数
func (s *Solver) Size() int { return s.asm.Size() }

// Solve 求解时刻 t 的稳态
// x 为初值并返回解；cold 为真时忽略 x 使用冷启动初值
// 状态切换写入 st.Effective，失败时由调用方决定是否回退
func (s *Solver) Solve(t float64, st *network.State, x maths.Vector, cold bool) (Result, error) {
	var (
		res     Result
		err     error
		retries int
		seen    = map[string]bool{statusKey(st.Effective): true}
		changed = map[types.LinkID]bool{}
	)
	state := Assembling
	for {
		switch state {
		case Assembling:
			s.asm.Prepare(t, st)
			if cold && res.Assemblies == 0 {
				s.asm.InitialGuess(x)
			} else {
				s.asm.Warm(x)
			}
			res.Assemblies++
			state = Iterating
		case Iterating:
			var iters int
			iters, res.Residual, err = s.newton(x)
			res.Iterations += iters
			if err != nil {
				state = Diverged
			} else {
				state = Converged
			}
		case Converged:
			flips := s.asm.CheckStatus(x)
			if len(flips) == 0 {
				res.State = Converged
				res.StatusChanges = sortedLinks(changed)
				return res, nil
			}
			for _, id := range flips {
				changed[id] = true
			}
			s.log.Debug("status change", "time", t, "links", flips)
			state = StateChangeDetected
		case StateChangeDetected:
			retries++
			key := statusKey(st.Effective)
			if seen[key] || retries > s.opts.MaxStatusRetries {
				res.State = Diverged
				res.StatusChanges = sortedLinks(changed)
				return res, fmt.Errorf("%w at t=%g after %d re-assemblies, links %v", ErrStatusCycling, t, retries, res.StatusChanges)
			}
			seen[key] = true
			state = Assembling
		case Diverged:
			res.State = Diverged
			res.StatusChanges = sortedLinks(changed)
			return res, err
		}
	}
}

// newton 牛顿迭代至残差无穷范数低于容差
func (s *Solver) newton(x maths.Vector) (int, float64, error) {
	s.damping = MaxDampingFactor
	s.oscillation = 0
	prev := math.Inf(1)
	for it := 0; it < s.opts.MaxIterations; it++ {
		jac := s.asm.Evaluate(x, s.r, true)
		norm := s.r.MaxAbs()
		logging.Trace(s.log, "newton", "iter", it, "residual", norm, "damping", s.damping)
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return it, norm, fmt.Errorf("%w: non-finite residual at iteration %d", ErrDiverged, it)
		}
		if norm < s.opts.Tolerance {
			return it, norm, nil
		}
		if err := s.lu.Decompose(jac); err != nil {
			if errors.Is(err, maths.ErrSingular) {
				return it, norm, fmt.Errorf("%w at iteration %d", ErrSingular, it)
			}
			return it, norm, fmt.Errorf("矩阵分解失败: %v", err)
		}
		s.r.Copy(s.rhs)
		s.rhs.Scale(-1)
		if err := s.lu.SolveReuse(s.rhs, s.dx); err != nil {
			if errors.Is(err, maths.ErrSingular) {
				return it, norm, fmt.Errorf("%w at iteration %d", ErrSingular, it)
			}
			return it, norm, fmt.Errorf("矩阵求解失败: %v", err)
		}
		switch s.opts.LineSearch {
		case types.FullStep:
			floats.Add(x.RawData(), s.dx.RawData())
		case types.AdaptiveDamping:
			if err := s.damp(norm, prev); err != nil {
				return it, norm, err
			}
			floats.AddScaled(x.RawData(), s.damping, s.dx.RawData())
		default:
			if err := s.backtrack(x, norm); err != nil {
				return it, norm, err
			}
		}
		prev = norm
	}
	return s.opts.MaxIterations, s.r.MaxAbs(), fmt.Errorf("%w: no convergence in %d iterations", ErrDiverged, s.opts.MaxIterations)
}

// backtrack 回溯线搜索：步长按 BacktrackRho 缩减，直至残差充分下降
func (s *Solver) backtrack(x maths.Vector, norm float64) error {
	alpha := 1.0
	for k := 0; k < types.BacktrackMaxIter; k++ {
		floats.AddScaledTo(s.trial.RawData(), x.RawData(), alpha, s.dx.RawData())
		s.asm.Evaluate(s.trial, s.rt, false)
		if n := s.rt.MaxAbs(); n < (1-1e-4*alpha)*norm {
			s.trial.Copy(x)
			return nil
		}
		alpha *= types.BacktrackRho
	}
	return fmt.Errorf("%w: line search failed at residual %.3e", ErrDiverged, norm)
}

// damp 依据残差变化调整阻尼因子
func (s *Solver) damp(norm, prev float64) error {
	if math.IsInf(prev, 1) {
		return nil
	}
	ratio := norm / prev
	switch {
	case ratio > 10:
		s.damping = math.Max(MinDampingFactor, s.damping*0.1)
		s.oscillation++
	case ratio > 2:
		s.damping = math.Max(MinDampingFactor, s.damping*0.5)
		s.oscillation++
	case ratio > 1.5:
		s.damping = math.Max(MinDampingFactor, s.damping*0.8)
		s.oscillation++
	case ratio > 1:
		s.damping = math.Max(MinDampingFactor, s.damping*0.9)
		s.oscillation++
	case ratio < 0.5:
		s.oscillation = 0
		s.damping = math.Min(MaxDampingFactor, s.damping*1.2)
	default:
		s.oscillation = 0
		s.damping = math.Min(MaxDampingFactor, s.damping*1.1)
	}
	if s.oscillation > types.MaxOscillation {
		return fmt.Errorf("%w: oscillation at residual %.3e", ErrDiverged, norm)
	}
	return nil
}

func statusKey(st []types.Status) string {
	var b strings.Builder
	for _, s := range st {
		b.WriteByte('0' + byte(s))
	}
	return b.String()
}

func sortedLinks(m map[types.LinkID]bool) []types.LinkID {
	out := make([]types.LinkID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
