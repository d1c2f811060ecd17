package simulation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydraulic/config"
	"hydraulic/control"
	"hydraulic/network"
	"hydraulic/pattern"
	"hydraulic/results"
	"hydraulic/solver"
	"hydraulic/tank"
	"hydraulic/types"
)

func options(duration float64) config.Options {
	opts := config.Default()
	opts.Duration = duration
	return opts
}

func simulate(t *testing.T, net *network.Network, rules []control.Rule, opts config.Options) (*results.Series, error) {
	t.Helper()
	sim, err := New(net, rules, opts)
	require.NoError(t, err)
	return sim.Run(context.Background())
}

func linkID(t *testing.T, net *network.Network, name string) types.LinkID {
	t.Helper()
	id, err := net.LinkID(name)
	require.NoError(t, err)
	return id
}

func nodeID(t *testing.T, net *network.Network, name string) types.NodeID {
	t.Helper()
	id, err := net.NodeID(name)
	require.NoError(t, err)
	return id
}

func loopNetwork(t *testing.T) *network.Network {
	t.Helper()
	b := network.NewBuilder()
	day, err := pattern.New("day", 3600, []float64{0.6, 1, 1.4, 0.8}, pattern.Wrap)
	require.NoError(t, err)
	b.AddPattern(day)
	b.AddReservoir("R1", network.Reservoir{Head: 80})
	b.AddJunction("J1", network.Junction{Elevation: 20, Demands: []network.Demand{{Base: 0.01, Pattern: "day"}}})
	b.AddJunction("J2", network.Junction{Elevation: 25, Demands: []network.Demand{{Base: 0.015, Pattern: "day"}, {Base: 0.005, Category: "fire"}}})
	b.AddJunction("J3", network.Junction{Elevation: 18, Demands: []network.Demand{{Base: 0.02, Pattern: "day"}},
		Leak: &network.Leak{Area: 5e-4, Discharge: 0.75, Active: true}})
	b.AddJunction("J4", network.Junction{Elevation: 22, Demands: []network.Demand{{Base: 0.008}}})
	b.AddTank("T1", network.Tank{Elevation: 60, MaxLevel: 30, InitLevel: 3, Diameter: 12})
	b.AddPipe("P1", "R1", "J1", network.Pipe{Length: 1000, Diameter: 0.4, Roughness: 120})
	b.AddPipe("P2", "J1", "J2", network.Pipe{Length: 600, Diameter: 0.25, Roughness: 110, MinorLoss: 2})
	b.AddPipe("P3", "J1", "J3", network.Pipe{Length: 700, Diameter: 0.3, Roughness: 100})
	b.AddPipe("P4", "J2", "J4", network.Pipe{Length: 500, Diameter: 0.2, Roughness: 100})
	b.AddPipe("P5", "J3", "J4", network.Pipe{Length: 450, Diameter: 0.2, Roughness: 100, CheckValve: true})
	b.AddPipe("P6", "J4", "T1", network.Pipe{Length: 300, Diameter: 0.2, Roughness: 120})
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

// singleJunction 水库经零长管道供给单个用水节点，J2 可由控制隔离
func singleJunction(t *testing.T) *network.Network {
	t.Helper()
	b := network.NewBuilder()
	pmin, pnom := 0.0, 15.0
	b.AddReservoir("R1", network.Reservoir{Head: 10})
	b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 150.0 / 3600}}, MinPressure: &pmin, NominalPressure: &pnom})
	b.AddJunction("J2", network.Junction{Demands: []network.Demand{{Base: 0.001}}})
	b.AddPipe("P1", "R1", "J1", network.Pipe{Length: 0, Diameter: 0.3, Roughness: 100})
	b.AddPipe("P2", "J1", "J2", network.Pipe{Length: 10, Diameter: 0.1, Roughness: 100})
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

// singularLoop V3 在 3600 s 打开形成零阻力环路（雅可比奇异），7200 s 关闭
func singularLoop(t *testing.T) (*network.Network, []control.Rule) {
	t.Helper()
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 30})
	b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.01}}})
	b.AddJunction("J2", network.Junction{})
	b.AddValve("V1", "R1", "J1", network.Valve{Kind: types.TCV, Diameter: 0.2})
	b.AddValve("V2", "J1", "J2", network.Valve{Kind: types.TCV, Diameter: 0.2})
	v3 := b.AddValve("V3", "J2", "R1", network.Valve{Kind: types.TCV, Diameter: 0.2})
	b.SetStatus("V3", types.Closed)
	net, err := b.Build()
	require.NoError(t, err)
	rules := []control.Rule{
		{Name: "open", Condition: control.AtTime{Time: 3600}, Actions: []control.Action{{Kind: control.SetStatus, Link: v3, Status: types.Active}}},
		{Name: "close", Condition: control.AtTime{Time: 7200}, Actions: []control.Action{{Kind: control.SetStatus, Link: v3, Status: types.Closed}}},
	}
	return net, rules
}

func TestPDDScenarioEveryStep(t *testing.T) {
	net := singleJunction(t)
	j1 := nodeID(t, net, "J1")
	r1 := nodeID(t, net, "R1")
	opts := options(4 * 3600)
	opts.Mode = types.PressureDependent
	series, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3600, 7200, 10800, 14400}, series.Times())
	assert.Equal(t, CodeOK, series.ErrorCode())
	want := 150.0 / 3600 * math.Sqrt(10.0/15.0)
	for _, step := range series.Steps() {
		assert.InDelta(t, want, step.Demand[j1], 1e-9)
		assert.InDelta(t, 10, step.Pressure[j1], 1e-9)
		assert.Equal(t, 0.0, step.Pressure[r1])
		assert.True(t, step.Flags.Has(results.FlagConverged))
		assert.False(t, step.Flags.Has(results.FlagFailed))
	}
}

func TestDemandDrivenFollowsPattern(t *testing.T) {
	b := network.NewBuilder()
	p, err := pattern.New("day", 3600, []float64{1, 2, 0.5}, pattern.Wrap)
	require.NoError(t, err)
	b.AddPattern(p)
	b.AddReservoir("R1", network.Reservoir{Head: 50})
	j := b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.01, Pattern: "day"}}})
	b.AddPipe("P1", "R1", "J1", network.Pipe{Length: 200, Diameter: 0.2, Roughness: 120})
	net, err := b.Build()
	require.NoError(t, err)

	series, err := simulate(t, net, nil, options(3*3600))
	require.NoError(t, err)
	require.Equal(t, 4, series.Len())
	for i, m := range []float64{1, 2, 0.5, 1} {
		step := series.Step(i)
		assert.InDelta(t, 0.01*m, step.Demand[j], 1e-12)
		assert.InDelta(t, 0.01*m, step.Flow[0], 1e-6)
	}
}

func TestMassConservationAndTankLevels(t *testing.T) {
	net := loopNetwork(t)
	t1 := nodeID(t, net, "T1")
	area := math.Pi * 12 * 12 / 4
	for _, mode := range []types.Mode{types.DemandDriven, types.PressureDependent} {
		opts := options(6 * 3600)
		opts.Mode = mode
		series, err := simulate(t, net, nil, opts)
		require.NoError(t, err, "%s", mode)
		steps := series.Steps()
		require.Len(t, steps, 7)
		for k, step := range steps {
			for _, id := range net.Junctions() {
				sum := 0.0
				for _, lid := range net.Adjacency(id) {
					sum += net.Sign(id, lid) * step.Flow[lid]
				}
				assert.InDelta(t, step.Demand[id]+step.LeakDemand[id], sum, 1e-6, "%s t=%g node %d", mode, step.Time, id)
			}
			if k == 0 {
				continue
			}
			prev := steps[k-1]
			if step.Flags.Has(results.FlagTankViolation) {
				continue
			}
			dt := step.Time - prev.Time
			assert.InDelta(t, prev.Pressure[t1]+prev.Demand[t1]*dt/area, step.Pressure[t1], 1e-9)
		}
	}
}

func TestDeterministic(t *testing.T) {
	net := loopNetwork(t)
	opts := options(5 * 3600)
	opts.Mode = types.PressureDependent
	a, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	b, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Steps(), b.Steps())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestReportStep(t *testing.T) {
	net := singleJunction(t)
	opts := options(4 * 3600)
	opts.HydraulicStep = 1800
	opts.ReportStep = 3600
	series, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3600, 7200, 10800, 14400}, series.Times())
}

func TestFailureAbort(t *testing.T) {
	net, rules := singularLoop(t)
	series, err := simulate(t, net, rules, options(3*3600))
	require.Error(t, err)
	assert.True(t, errors.Is(err, solver.ErrSingular))
	require.NotNil(t, series)
	assert.True(t, series.Finalized())
	assert.Equal(t, CodeFailure, series.ErrorCode())
	assert.Equal(t, []float64{0}, series.Times())
}

func TestFailureSkipStep(t *testing.T) {
	net, rules := singularLoop(t)
	opts := options(3 * 3600)
	opts.FailurePolicy = types.FailSkipStep
	series, err := simulate(t, net, rules, opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3600, 7200, 10800}, series.Times())

	gap := series.Step(1)
	assert.True(t, gap.Flags.Has(results.FlagFailed))
	assert.False(t, gap.Flags.Has(results.FlagConverged))
	assert.True(t, math.IsNaN(gap.Head[0]))
	assert.True(t, math.IsNaN(gap.Flow[0]))
	for _, i := range []int{0, 2, 3} {
		step := series.Step(i)
		assert.True(t, step.Flags.Has(results.FlagConverged), "step %d", i)
		assert.InDelta(t, 0.01, step.Flow[0], 1e-9)
	}

	var failures int
	for _, e := range series.Events() {
		if e.Kind == "failure" {
			failures++
			assert.Equal(t, 3600.0, e.Time)
		}
	}
	assert.Equal(t, 1, failures)
}

func TestFailureReduceStep(t *testing.T) {
	net, rules := singularLoop(t)
	opts := options(3 * 3600)
	opts.FailurePolicy = types.FailReduceStep
	opts.MinStep = 900
	series, err := simulate(t, net, rules, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, solver.ErrSingular))
	assert.Equal(t, CodeFailure, series.ErrorCode())
	assert.Equal(t, []float64{0, 1800, 2700}, series.Times())
	assert.False(t, series.Step(0).Flags.Has(results.FlagReducedStep))
	for _, i := range []int{1, 2} {
		step := series.Step(i)
		assert.True(t, step.Flags.Has(results.FlagReducedStep))
		assert.True(t, step.Flags.Has(results.FlagConverged))
	}
}

func TestReduceStepAtStartAborts(t *testing.T) {
	net, rules := singularLoop(t)
	rules[0].Condition = control.AtTime{Time: 0}
	opts := options(3600)
	opts.FailurePolicy = types.FailReduceStep
	series, err := simulate(t, net, rules, opts)
	require.Error(t, err)
	assert.Equal(t, 0, series.Len())
}

func TestPostSolveControl(t *testing.T) {
	net := singleJunction(t)
	p2 := linkID(t, net, "P2")
	j1 := nodeID(t, net, "J1")
	rules := []control.Rule{{
		Name:      "isolate",
		Condition: control.NodeValue{Node: j1, Attr: control.Head, Op: control.Above, Value: 0},
		Actions:   []control.Action{{Kind: control.SetStatus, Link: p2, Status: types.Closed}},
	}}

	opts := options(3600)
	opts.MaxControlTrials = 1
	series, err := simulate(t, net, rules, opts)
	require.NoError(t, err)
	for _, step := range series.Steps() {
		assert.Equal(t, 0.0, step.Flow[p2])
		assert.Equal(t, types.Closed, step.Status[p2])
		assert.True(t, step.Flags.Has(results.FlagIsolated))
	}

	opts.MaxControlTrials = 0
	opts.FailurePolicy = types.FailSkipStep
	series, err = simulate(t, net, rules, opts)
	require.NoError(t, err)
	first := series.Step(0)
	assert.True(t, first.Flags.Has(results.FlagFailed))
	assert.True(t, first.Flags.Has(results.FlagControlTrials))

	opts.FailurePolicy = types.FailAbort
	_, err = simulate(t, net, rules, opts)
	assert.True(t, errors.Is(err, ErrControlTrials))
}

func fillingTank(t *testing.T, policy types.TankPolicy) (*network.Network, config.Options) {
	t.Helper()
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 50})
	b.AddTank("T1", network.Tank{MaxLevel: 5, InitLevel: 4, Diameter: 1})
	b.AddPipe("P1", "R1", "T1", network.Pipe{Length: 100, Diameter: 0.2, Roughness: 120})
	net, err := b.Build()
	require.NoError(t, err)
	opts := options(7200)
	opts.TankPolicy = policy
	return net, opts
}

func TestTankOverflowClamp(t *testing.T) {
	net, opts := fillingTank(t, types.TankClampAndFlag)
	t1 := nodeID(t, net, "T1")
	series, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	require.Equal(t, 3, series.Len())
	assert.False(t, series.Step(0).Flags.Has(results.FlagTankViolation))
	for _, i := range []int{1, 2} {
		step := series.Step(i)
		assert.True(t, step.Flags.Has(results.FlagTankViolation))
		assert.Equal(t, 5.0, step.Pressure[t1])
	}
}

func TestTankOverflowAbort(t *testing.T) {
	net, opts := fillingTank(t, types.TankAbort)
	series, err := simulate(t, net, nil, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tank.ErrTankViolation))
	assert.Equal(t, 1, series.Len())
	assert.Equal(t, CodeFailure, series.ErrorCode())
}

func TestTankLevelRuleShortensStep(t *testing.T) {
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 50})
	t1 := b.AddTank("T1", network.Tank{MaxLevel: 20, InitLevel: 1, Diameter: 5})
	p1 := b.AddPipe("P1", "R1", "T1", network.Pipe{Length: 100, Diameter: 0.1, Roughness: 100})
	net, err := b.Build()
	require.NoError(t, err)
	rules := []control.Rule{{
		Name:      "full",
		Condition: control.TankLevel{Tank: t1, Op: control.Above, Level: 5},
		Actions:   []control.Action{{Kind: control.SetStatus, Link: p1, Status: types.Closed}},
	}}
	series, err := simulate(t, net, rules, options(7200))
	require.NoError(t, err)
	times := series.Times()
	require.Len(t, times, 4)
	assert.Greater(t, times[1], 0.0)
	assert.Less(t, times[1], 3600.0)
	step := series.Step(1)
	assert.Equal(t, 0.0, step.Flow[p1])
	assert.GreaterOrEqual(t, step.Pressure[t1], 5.0)
	assert.Less(t, step.Pressure[t1], 5.01)
	assert.InDelta(t, step.Pressure[t1], series.Step(3).Pressure[t1], 1e-12)
}

func TestPumpClosesEveryStep(t *testing.T) {
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 10})
	b.AddJunction("J1", network.Junction{})
	b.AddTank("T1", network.Tank{Elevation: 50, MaxLevel: 20, InitLevel: 10, Diameter: 10})
	b.AddPipe("P1", "R1", "J1", network.Pipe{Length: 100, Diameter: 0.3, Roughness: 120})
	pump := b.AddPump("PU1", "J1", "T1", network.Pump{Curve: []network.Point{{X: 0.05, Y: 30}}})
	net, err := b.Build()
	require.NoError(t, err)

	series, err := simulate(t, net, nil, options(3*3600))
	require.NoError(t, err)
	require.Equal(t, 4, series.Len())
	assert.True(t, series.Step(0).Flags.Has(results.FlagStatusChanged))
	for _, step := range series.Steps() {
		assert.Equal(t, types.Closed, step.Status[pump])
		assert.Equal(t, 0.0, step.Flow[pump])
		assert.LessOrEqual(t, step.Iterations, types.MaxIterations)
	}
	var status bool
	for _, e := range series.Events() {
		status = status || e.Kind == "status"
	}
	assert.True(t, status)
}

func TestCancelled(t *testing.T) {
	net := singleJunction(t)
	sim, err := New(net, nil, options(3600))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	series, err := sim.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, series.Len())
	assert.True(t, series.Finalized())
}

func TestNewRejectsInvalidInput(t *testing.T) {
	net := singleJunction(t)
	opts := options(3600)
	opts.Tolerance = 0
	_, err := New(net, nil, opts)
	assert.Error(t, err)

	_, err = New(net, []control.Rule{{Name: "empty", Condition: control.AtTime{}}}, options(3600))
	assert.Error(t, err)

	_, err = New(nil, nil, options(3600))
	assert.Error(t, err)
}

func TestNewRejectsMergedPressures(t *testing.T) {
	b := network.NewBuilder()
	pnom := 10.0
	b.AddReservoir("R1", network.Reservoir{Head: 50})
	b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.01}}, NominalPressure: &pnom})
	b.AddPipe("P1", "R1", "J1", network.Pipe{Length: 100, Diameter: 0.2, Roughness: 100})
	net, err := b.Build()
	require.NoError(t, err)

	opts := options(3600)
	opts.MinimumPressure = 15
	opts.NominalPressure = 30
	_, err = New(net, nil, opts)
	assert.ErrorContains(t, err, `junction "J1"`)

	opts.MinimumPressure = 5
	_, err = New(net, nil, opts)
	assert.NoError(t, err)
}

// prvNetwork R1 经 P1 至 J0，PRV(40 m) 至 J1；downstream > 0 时 J1 另由 R2 经 P3 供水
func prvNetwork(t *testing.T, source, downstream float64) *network.Network {
	t.Helper()
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: source})
	b.AddJunction("J0", network.Junction{})
	b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.02}}})
	b.AddPipe("P1", "R1", "J0", network.Pipe{Length: 1000, Diameter: 0.3, Roughness: 100})
	b.AddValve("V1", "J0", "J1", network.Valve{Kind: types.PRV, Diameter: 0.2, Setting: 40})
	if downstream > 0 {
		b.AddReservoir("R2", network.Reservoir{Head: downstream})
		b.AddPipe("P3", "R2", "J1", network.Pipe{Length: 500, Diameter: 0.2, Roughness: 100})
	}
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

func TestPressureReducingValve(t *testing.T) {
	cases := []struct {
		name       string
		source     float64
		downstream float64
		status     types.Status
	}{
		{"active", 100, 0, types.Active},
		{"open", 35, 0, types.Open},
		{"closed", 100, 60, types.Closed},
	}
	for _, c := range cases {
		net := prvNetwork(t, c.source, c.downstream)
		j0, j1 := nodeID(t, net, "J0"), nodeID(t, net, "J1")
		v1 := linkID(t, net, "V1")
		series, err := simulate(t, net, nil, options(0))
		require.NoError(t, err, c.name)
		require.Equal(t, 1, series.Len(), c.name)
		step := series.Step(0)
		assert.Equal(t, c.status, step.Status[v1], c.name)
		switch c.status {
		case types.Active:
			assert.InDelta(t, 40, step.Pressure[j1], 1e-6)
			assert.InDelta(t, 0.02, step.Flow[v1], 1e-6)
			assert.Greater(t, step.Head[j0], 40.0)
		case types.Open:
			assert.InDelta(t, step.Head[j0], step.Head[j1], 1e-6)
			assert.Less(t, step.Pressure[j1], 40.0)
			assert.InDelta(t, 0.02, step.Flow[v1], 1e-6)
			assert.True(t, step.Flags.Has(results.FlagStatusChanged))
		case types.Closed:
			assert.InDelta(t, 0, step.Flow[v1], 1e-9)
			assert.Greater(t, step.Pressure[j1], 40.0)
			assert.True(t, step.Flags.Has(results.FlagStatusChanged))
		}
	}
}

// fcvNetwork J1 由 FCV 与 P2-P3 并联路径供水
func fcvNetwork(t *testing.T, setting float64) *network.Network {
	t.Helper()
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 60})
	b.AddJunction("J0", network.Junction{})
	b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.05}}})
	b.AddJunction("J2", network.Junction{})
	b.AddPipe("P1", "R1", "J0", network.Pipe{Length: 500, Diameter: 0.3, Roughness: 100})
	b.AddValve("V1", "J0", "J1", network.Valve{Kind: types.FCV, Diameter: 0.2, Setting: setting})
	b.AddPipe("P2", "J0", "J2", network.Pipe{Length: 500, Diameter: 0.2, Roughness: 100})
	b.AddPipe("P3", "J2", "J1", network.Pipe{Length: 500, Diameter: 0.2, Roughness: 100})
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

func TestFlowControlValveCapsFlow(t *testing.T) {
	net := fcvNetwork(t, 0.02)
	v1, p3 := linkID(t, net, "V1"), linkID(t, net, "P3")
	series, err := simulate(t, net, nil, options(0))
	require.NoError(t, err)
	step := series.Step(0)
	assert.Equal(t, types.Active, step.Status[v1])
	assert.InDelta(t, 0.02, step.Flow[v1], 1e-9)
	assert.InDelta(t, 0.03, step.Flow[p3], 1e-6)

	// 需水低于设定流量时阀门全开
	net = fcvNetwork(t, 0.08)
	series, err = simulate(t, net, nil, options(0))
	require.NoError(t, err)
	step = series.Step(0)
	assert.Equal(t, types.Open, step.Status[v1])
	assert.InDelta(t, 0.05, step.Flow[v1], 1e-4)
	assert.Less(t, step.Flow[v1], 0.08)
}

func TestFlowControlValveThrottlesPDD(t *testing.T) {
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 100})
	b.AddJunction("J0", network.Junction{})
	j1 := b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.05}}})
	b.AddPipe("P1", "R1", "J0", network.Pipe{Length: 1000, Diameter: 0.3, Roughness: 100})
	v1 := b.AddValve("V1", "J0", "J1", network.Valve{Kind: types.FCV, Diameter: 0.2, Setting: 0.02})
	net, err := b.Build()
	require.NoError(t, err)

	opts := options(0)
	opts.Mode = types.PressureDependent
	series, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	step := series.Step(0)
	assert.Equal(t, types.Active, step.Status[v1])
	assert.InDelta(t, 0.02, step.Flow[v1], 1e-9)
	assert.InDelta(t, 0.02, step.Demand[j1], 1e-6)
	// 0.05·√(p/20) = 0.02
	assert.InDelta(t, 3.2, step.Pressure[j1], 1e-3)
}

func TestReservoirHeadPattern(t *testing.T) {
	b := network.NewBuilder()
	level, err := pattern.New("level", 3600, []float64{1, 0.9, 1.1}, pattern.Hold)
	require.NoError(t, err)
	b.AddPattern(level)
	r1 := b.AddReservoir("R1", network.Reservoir{Head: 50, Pattern: "level"})
	j1 := b.AddJunction("J1", network.Junction{Demands: []network.Demand{{Base: 0.01}}})
	b.AddPipe("P1", "R1", "J1", network.Pipe{Length: 500, Diameter: 0.2, Roughness: 100})
	net, err := b.Build()
	require.NoError(t, err)

	series, err := simulate(t, net, nil, options(4*3600))
	require.NoError(t, err)
	steps := series.Steps()
	require.Len(t, steps, 5)
	drop := steps[0].Head[r1] - steps[0].Head[j1]
	assert.Greater(t, drop, 0.0)
	for i, m := range []float64{1, 0.9, 1.1, 1.1, 1.1} {
		assert.InDelta(t, 50*m, steps[i].Head[r1], 1e-12, "t=%g", steps[i].Time)
		assert.InDelta(t, drop, steps[i].Head[r1]-steps[i].Head[j1], 1e-6, "t=%g", steps[i].Time)
	}
}

func TestDemandMultiplier(t *testing.T) {
	net := loopNetwork(t)
	j4 := nodeID(t, net, "J4")
	opts := options(0)
	opts.DemandMultiplier = 1.5
	series, err := simulate(t, net, nil, opts)
	require.NoError(t, err)
	step := series.Step(0)
	assert.InDelta(t, 0.008*1.5, step.Demand[j4], 1e-12)
}

func TestRunBatch(t *testing.T) {
	net := loopNetwork(t)
	dd := options(2 * 3600)
	pdd := dd
	pdd.Mode = types.PressureDependent
	bad := dd
	bad.HydraulicStep = 0
	scenarios := []Scenario{{Name: "dd", Options: dd}, {Name: "pdd", Options: pdd}, {Name: "bad", Options: bad}}

	out, err := RunBatch(context.Background(), net, scenarios, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, name := range []string{"dd", "pdd", "bad"} {
		assert.Equal(t, name, out[i].Name)
	}
	for _, r := range out[:2] {
		require.NoError(t, r.Err)
		assert.Equal(t, 3, r.Series.Len())
	}
	assert.Error(t, out[2].Err)
	assert.Nil(t, out[2].Series)

	single, err := simulate(t, net, nil, pdd)
	require.NoError(t, err)
	assert.Equal(t, single.Steps(), out[1].Series.Steps())
}

func TestRunBatchCancelled(t *testing.T) {
	net := loopNetwork(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunBatch(ctx, net, []Scenario{{Name: "a", Options: options(3600)}}, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}
