package tank

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydraulic/network"
	"hydraulic/types"
)

func TestCylinder(t *testing.T) {
	c := Cylinder{Diameter: 2}
	assert.InDelta(t, math.Pi*3, c.Volume(3), 1e-12)
	assert.InDelta(t, 3, c.Level(c.Volume(3)), 1e-12)
}

func TestCurve(t *testing.T) {
	c, err := NewCurve([]network.Point{{X: 0, Y: 0}, {X: 2, Y: 100}, {X: 4, Y: 300}})
	require.NoError(t, err)
	assert.InDelta(t, 50, c.Volume(1), 1e-12)
	assert.InDelta(t, 200, c.Volume(3), 1e-12)
	assert.InDelta(t, 400, c.Volume(5), 1e-12) // 外推
	assert.InDelta(t, -50, c.Volume(-1), 1e-12)
	for _, level := range []float64{-1, 0, 0.5, 2, 3.3, 4, 6} {
		assert.InDelta(t, level, c.Level(c.Volume(level)), 1e-12)
	}

	flat, err := NewCurve([]network.Point{{X: 0, Y: 0}, {X: 1, Y: 10}, {X: 2, Y: 10}, {X: 3, Y: 40}})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, flat.Level(25), 1e-12)

	_, err = NewCurve([]network.Point{{X: 0, Y: 0}})
	assert.Error(t, err)
	_, err = NewCurve([]network.Point{{X: 1, Y: 0}, {X: 1, Y: 5}})
	assert.Error(t, err)
}

func tankNetwork(t *testing.T) (*network.Network, types.NodeID, types.NodeID) {
	t.Helper()
	b := network.NewBuilder()
	b.AddReservoir("R1", network.Reservoir{Head: 50})
	t1 := b.AddTank("T1", network.Tank{Elevation: 30, MinLevel: 1, MaxLevel: 5, InitLevel: 3, Diameter: 4})
	t2 := b.AddTank("T2", network.Tank{Elevation: 30, MinLevel: 0, MaxLevel: 4, InitLevel: 2,
		VolumeCurve: []network.Point{{X: 0, Y: 0}, {X: 4, Y: 80}}})
	b.AddPipe("P1", "R1", "T1", network.Pipe{Length: 100, Diameter: 0.2, Roughness: 100})
	b.AddPipe("P2", "T2", "R1", network.Pipe{Length: 100, Diameter: 0.2, Roughness: 100})
	net, err := b.Build()
	require.NoError(t, err)
	return net, t1, t2
}

func TestNetInflow(t *testing.T) {
	net, t1, t2 := tankNetwork(t)
	it, err := NewIntegrator(net, types.TankAbort)
	require.NoError(t, err)
	in := it.NetInflow([]float64{0.01, 0.02})
	assert.Equal(t, 0.01, in[t1])
	assert.Equal(t, -0.02, in[t2])
	assert.IsType(t, Cylinder{}, it.Geometry(t1))
	assert.IsType(t, &Curve{}, it.Geometry(t2))
}

func TestAdvance(t *testing.T) {
	net, t1, t2 := tankNetwork(t)
	it, err := NewIntegrator(net, types.TankAbort)
	require.NoError(t, err)
	st := net.NewState()
	area := math.Pi * 4
	v, err := it.Advance(st, map[types.NodeID]float64{t1: area * 1e-3, t2: -0.01}, 1000, 1000)
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.InDelta(t, 4, st.Level[t1], 1e-12)
	assert.InDelta(t, 2-10.0/20, st.Level[t2], 1e-12)
}

func TestAdvanceViolation(t *testing.T) {
	net, t1, t2 := tankNetwork(t)
	area := math.Pi * 4
	inflow := map[types.NodeID]float64{t1: area * 3e-3, t2: 0}

	abort, err := NewIntegrator(net, types.TankAbort)
	require.NoError(t, err)
	st := net.NewState()
	v, err := abort.Advance(st, inflow, 1000, 1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTankViolation))
	assert.Len(t, v, 1)
	assert.Equal(t, 3.0, st.Level[t1]) // 终止策略不修改状态

	clamp, err := NewIntegrator(net, types.TankClampAndFlag)
	require.NoError(t, err)
	v, err = clamp.Advance(st, inflow, 1000, 1000)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.True(t, v[0].Overflow)
	assert.InDelta(t, 6, v[0].Level, 1e-12)
	assert.Equal(t, 5.0, v[0].Clamped)
	assert.Equal(t, 5.0, st.Level[t1])

	v, err = clamp.Advance(st, map[types.NodeID]float64{t1: -area * 1e-2}, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.False(t, v[0].Overflow)
	assert.Equal(t, 1.0, st.Level[t1])
	assert.Contains(t, v[0].String(), "empty")
}
