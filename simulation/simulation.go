// Package simulation 时间步进驱动：按模式、控制与水池积分推进时间并逐步求解。
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"hydraulic/assembler"
	"hydraulic/config"
	"hydraulic/control"
	"hydraulic/maths"
	"hydraulic/network"
	"hydraulic/results"
	"hydraulic/solver"
	"hydraulic/tank"
	"hydraulic/types"
)

var ErrControlTrials = errors.New("postsolve control trials exceeded")

// 结果错误码
const (
	CodeOK      = 0
	CodeFailure = 2
)

// Debug 调试接口，每个记录步调用一次 Update
type Debug interface {
	Init(net *network.Network)
	Update(step results.Step)
}

// Simulation 一个管网与一组规则的仿真配置，Run 可重复调用
type Simulation struct {
	net   *network.Network
	opts  config.Options
	eval  *control.Evaluator
	tanks *tank.Integrator
	log   *slog.Logger
	debug Debug
}

// New 校验输入并创建仿真
func New(net *network.Network, rules []control.Rule, opts config.Options) (*Simulation, error) {
	if net == nil {
		return nil, errors.New("nil network")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := checkPressures(net, opts); err != nil {
		return nil, err
	}
	eval, err := control.NewEvaluator(net, rules, opts.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	tanks, err := tank.NewIntegrator(net, opts.TankPolicy)
	if err != nil {
		return nil, err
	}
	return &Simulation{net: net, opts: opts, eval: eval, tanks: tanks, log: opts.Log()}, nil
}

// checkPressures 节点覆盖与全局选项合并后额定压力不得低于最小压力
func checkPressures(net *network.Network, opts config.Options) error {
	var errs []error
	for _, id := range net.Junctions() {
		node := net.Node(id)
		pmin, pnom := node.Junction.Pressures(opts.MinimumPressure, opts.NominalPressure)
		if pnom < pmin {
			errs = append(errs, fmt.Errorf("junction %q: nominal pressure %v below minimum pressure %v", node.Name, pnom, pmin))
		}
	}
	return errors.Join(errs...)
}

// Options 仿真选项
func (s *Simulation) Options() config.Options { return s.opts }

// SetDebug 设置调试记录，nil 关闭
func (s *Simulation) SetDebug(d Debug) { s.debug = d }

// run 单次运行的可变数据
type run struct {
	*Simulation
	st     *network.State
	asm    *assembler.Assembler
	solver *solver.Solver
	x      maths.Vector
	cold   bool
	series *results.Series

	// 上一成功步，用于缩步重算
	prevOK     bool
	prevT      float64
	prevState  *network.State
	prevX      []float64
	prevInflow map[types.NodeID]float64

	last assembler.Solution // 最近一次收敛解的需水
}

func (s *Simulation) newRun() (*run, error) {
	asm := assembler.New(s.net, assembler.Params{
		Mode:            s.opts.Mode,
		Headloss:        s.opts.Headloss,
		MinPressure:     s.opts.MinimumPressure,
		NominalPressure: s.opts.NominalPressure,
		PDDSmoothing:    s.opts.PDDSmoothing,
		LeakSmoothing:   types.LeakSmoothing,
		Multiplier:      s.opts.DemandMultiplier,
	})
	sol, err := solver.New(asm, solver.Options{
		Tolerance:        s.opts.Tolerance,
		MaxIterations:    s.opts.MaxIterations,
		MaxStatusRetries: s.opts.MaxStatusRetries,
		LineSearch:       s.opts.LineSearch,
		LinearSolver:     s.opts.LinearSolver,
		Logger:           s.log,
	})
	if err != nil {
		return nil, err
	}
	n := s.net.NumNodes()
	return &run{
		Simulation: s,
		st:         s.net.NewState(),
		asm:        asm,
		solver:     sol,
		x:          maths.NewDenseVector(asm.Size()),
		cold:       true,
		series:     results.NewSeries(s.net.NodeNames(), s.net.LinkNames()),
		last:       assembler.Solution{Demand: make([]float64, n), Leak: make([]float64, n)},
	}, nil
}

// Run 从 t=0 推进到 Duration（含端点）
// 失败或取消时返回已完成步的结果与错误；结果序列总是已定稿
func (s *Simulation) Run(ctx context.Context) (*results.Series, error) {
	r, err := s.newRun()
	if err != nil {
		return nil, err
	}
	if s.debug != nil {
		s.debug.Init(s.net)
	}
	if err := r.loop(ctx); err != nil {
		r.series.Finalize(CodeFailure)
		s.log.Warn("simulation failed", "run", r.series.ID(), "steps", r.series.Len(), "error", err)
		return r.series, err
	}
	r.series.Finalize(CodeOK)
	s.log.Info("simulation finished", "run", r.series.ID(), "steps", r.series.Len())
	return r.series, nil
}

func (r *run) loop(ctx context.Context) error {
	t := 0.0
	reductions := 0
	var pending results.Flag // 进入本步前产生的标记（缩步、越界）
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.log.Debug("step start", "time", t)
		for _, c := range r.eval.Apply(control.PreSolve, r.view(t), r.st) {
			r.event(t, "control", fmt.Sprintf("%s: %s", c.Rule, c.Action))
		}
		snapshot := r.st.Clone()
		xStart := append([]float64(nil), r.x.RawData()...)

		res, err := r.solveStep(t)
		flags := pending
		pending = 0
		if err != nil {
			r.log.Warn("step failed", "time", t, "iterations", res.Iterations, "error", err)
			r.event(t, "failure", err.Error())
			switch {
			case r.canReduce(t, reductions):
				reductions++
				dt := (t - r.prevT) / 2
				r.st = r.prevState.Clone()
				copy(r.x.RawData(), r.prevX)
				t = r.prevT + dt
				r.event(t, "reduce_step", fmt.Sprintf("retry with step %g s", dt))
				violations, err := r.tanks.Advance(r.st, r.prevInflow, dt, t)
				pending = results.FlagReducedStep | r.violationFlags(violations)
				if err != nil {
					return err
				}
				continue
			case r.opts.FailurePolicy == types.FailSkipStep:
				r.st = snapshot
				copy(r.x.RawData(), xStart)
				r.cold = true
				r.prevOK = false
				if r.reportable(t, flags) {
					gap := results.Gap(t, r.net.NumNodes(), r.net.NumLinks(), r.st.Effective)
					gap.Flags |= flags
					if errors.Is(err, ErrControlTrials) {
						gap.Flags |= results.FlagControlTrials
					}
					gap.Iterations = res.Iterations
					if err := r.append(gap); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("t=%g: %w", t, err)
			}
		} else {
			reductions = 0
			r.cold = false
			flags |= results.FlagConverged | r.stepFlags(res)
			if r.reportable(t, flags) {
				if err := r.append(r.record(t, flags, res.Iterations)); err != nil {
					return err
				}
			}
			r.log.Debug("step converged", "time", t, "iterations", res.Iterations, "residual", res.Residual)
		}

		if t >= r.opts.Duration-types.TimeEpsilon {
			return nil
		}
		inflow := map[types.NodeID]float64{}
		if err == nil {
			inflow = r.tanks.NetInflow(r.x.RawData()[r.net.NumNodes():])
			r.prevOK = true
			r.prevT = t
			r.prevState = r.st.Clone()
			r.prevX = append(r.prevX[:0], r.x.RawData()...)
			r.prevInflow = inflow
		}
		next := r.nextTime(t, inflow)
		violations, err := r.tanks.Advance(r.st, inflow, next-t, next)
		pending |= r.violationFlags(violations)
		if err != nil {
			return err
		}
		t = next
	}
}

// canReduce 缩步重算条件：有上一成功步、次数未超限且半步不小于最小步长
func (r *run) canReduce(t float64, reductions int) bool {
	return r.opts.FailurePolicy == types.FailReduceStep && r.prevOK &&
		reductions < r.opts.MaxStepReductions &&
		(t-r.prevT)/2 >= r.opts.MinStep-types.TimeEpsilon
}

// solveStep 求解并处理后处理控制，控制改变状态时重解
func (r *run) solveStep(t float64) (solver.Result, error) {
	var total solver.Result
	for trial := 0; ; trial++ {
		res, err := r.solver.Solve(t, r.st, r.x, r.cold && trial == 0)
		total.State = res.State
		total.Iterations += res.Iterations
		total.Assemblies += res.Assemblies
		total.Residual = res.Residual
		total.StatusChanges = append(total.StatusChanges, res.StatusChanges...)
		if err != nil {
			return total, err
		}
		for _, id := range res.StatusChanges {
			r.event(t, "status", fmt.Sprintf("link %q -> %s", r.net.Link(id).Name, r.st.Effective[id]))
		}
		r.last = r.asm.Demands(r.x)
		changes := r.eval.Apply(control.PostSolve, r.view(t), r.st)
		if len(changes) == 0 {
			return total, nil
		}
		for _, c := range changes {
			r.event(t, "control", fmt.Sprintf("%s: %s", c.Rule, c.Action))
		}
		if trial >= r.opts.MaxControlTrials {
			return total, fmt.Errorf("%w (%d)", ErrControlTrials, r.opts.MaxControlTrials)
		}
	}
}

// nextTime 下一求解时刻：水力步网格、模式切换、控制时刻、规则步、报告步、水池液位规则触发与终点取最小
func (r *run) nextTime(t float64, inflow map[types.NodeID]float64) float64 {
	next := r.opts.Duration
	grid := func(step float64) {
		if step > 0 {
			next = math.Min(next, (math.Floor(t/step+types.TimeEpsilon/step)+1)*step)
		}
	}
	grid(r.opts.HydraulicStep)
	grid(r.opts.RuleStep)
	grid(r.opts.ReportStep)
	for _, p := range r.net.Patterns() {
		next = math.Min(next, p.NextBoundary(t))
	}
	next = math.Min(next, r.eval.NextBoundary(t))
	if tc := r.tankCrossing(t, inflow); tc < next {
		next = tc
	}
	return math.Max(next, t+math.Min(r.opts.MinStep, r.opts.Duration-t))
}

// tankCrossing 水池液位按当前净流入到达规则阈值的时刻
func (r *run) tankCrossing(t float64, inflow map[types.NodeID]float64) float64 {
	best := math.Inf(1)
	for _, rule := range r.eval.Rules() {
		c, ok := rule.Condition.(control.TankLevel)
		if !ok || inflow[c.Tank] == 0 {
			continue
		}
		g := r.tanks.Geometry(c.Tank)
		dt := (g.Volume(c.Level) - g.Volume(r.st.Level[c.Tank])) / inflow[c.Tank]
		if dt > types.TimeEpsilon {
			best = math.Min(best, t+math.Ceil(dt))
		}
	}
	return best
}

// reportable 是否为报告时刻，缩步结果总是记录
func (r *run) reportable(t float64, flags results.Flag) bool {
	step := r.opts.ReportStep
	if step <= 0 || flags.Has(results.FlagReducedStep) {
		return true
	}
	k := math.Round(t / step)
	return math.Abs(t-k*step) <= types.TimeEpsilon
}

func (r *run) stepFlags(res solver.Result) results.Flag {
	var f results.Flag
	if len(res.StatusChanges) > 0 {
		f |= results.FlagStatusChanged
	}
	nodes, _ := r.asm.Isolated()
	for _, iso := range nodes {
		if iso {
			f |= results.FlagIsolated
			break
		}
	}
	for _, id := range r.net.Junctions() {
		if !nodes[id] && r.x.Get(int(id))-r.net.Node(id).Elevation() < -types.StatusHeadTol {
			f |= results.FlagNegativePressure
			break
		}
	}
	return f
}

func (r *run) violationFlags(v []tank.Violation) results.Flag {
	for _, vi := range v {
		r.log.Warn("tank violation", "event", vi.String())
		r.event(vi.Time, "tank", vi.String())
	}
	if len(v) > 0 {
		return results.FlagTankViolation
	}
	return 0
}

// record 由收敛解生成结果步
func (r *run) record(t float64, flags results.Flag, iterations int) results.Step {
	n, l := r.net.NumNodes(), r.net.NumLinks()
	x := r.x.RawData()
	step := results.Step{
		Time:       t,
		Head:       append([]float64(nil), x[:n]...),
		Pressure:   make([]float64, n),
		Demand:     append([]float64(nil), r.last.Demand...),
		LeakDemand: append([]float64(nil), r.last.Leak...),
		Quality:    make([]float64, n),
		Flow:       append([]float64(nil), x[n:]...),
		Velocity:   make([]float64, l),
		Status:     append([]types.Status(nil), r.st.Effective...),
		Setting:    append([]float64(nil), r.st.Setting...),
		Flags:      flags,
		Iterations: iterations,
	}
	for i := 0; i < n; i++ {
		id := types.NodeID(i)
		node := r.net.Node(id)
		if node.Type == types.Reservoir {
			continue
		}
		step.Pressure[i] = x[i] - node.Elevation()
	}
	// 定水头节点的需水为净流入（水库供水为负）
	for _, group := range [][]types.NodeID{r.net.Reservoirs(), r.net.Tanks()} {
		for _, id := range group {
			sum := 0.0
			for _, lid := range r.net.Adjacency(id) {
				sum += r.net.Sign(id, lid) * x[n+int(lid)]
			}
			step.Demand[id] = sum
		}
	}
	for i := 0; i < l; i++ {
		if d := r.net.Link(types.LinkID(i)).Diameter(); d > 0 {
			step.Velocity[i] = math.Abs(x[n+i]) / (math.Pi * d * d / 4)
		}
	}
	return step
}

func (r *run) append(step results.Step) error {
	if err := r.series.Append(step); err != nil {
		return err
	}
	if r.debug != nil {
		r.debug.Update(step)
	}
	return nil
}

func (r *run) event(t float64, kind, msg string) {
	_ = r.series.AddEvent(results.Event{Time: t, Kind: kind, Message: msg})
}

// view 控制评估可读的量
func (r *run) view(t float64) control.View {
	return &view{t: t, run: r}
}

type view struct {
	t   float64
	run *run
}

func (v *view) Time() float64 { return v.t }

func (v *view) TankLevel(n types.NodeID) float64 { return v.run.st.Level[n] }

func (v *view) NodeHead(n types.NodeID) float64 { return v.run.x.Get(int(n)) }

func (v *view) NodePressure(n types.NodeID) float64 {
	return v.run.x.Get(int(n)) - v.run.net.Node(n).Elevation()
}

func (v *view) NodeDemand(n types.NodeID) float64 { return v.run.last.Demand[n] }
