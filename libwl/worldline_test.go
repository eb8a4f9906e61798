package libwl_test

import (
	"math"
	"testing"

	"github.com/2x3systems/worldline/libwl"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModel(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m *toyModel)
		want   error
	}{
		{"subtype out of range", func(m *toyModel) { m.bonds[0].Subtype = 0 }, wlmc.ErrBadSubtype},
		{"subtype 9", func(m *toyModel) { m.bonds[1].Subtype = 9 }, wlmc.ErrBadSubtype},
		{"arity", func(m *toyModel) { m.bonds[0].Arity = 3 }, wlmc.ErrBadBond},
		{"site range", func(m *toyModel) { m.bonds[0].Sites[0] = 7 }, wlmc.ErrBadBond},
		{"negative rate", func(m *toyModel) { m.bonds[2].Weight = -1 }, wlmc.ErrBadBond},
		{"self loop", func(m *toyModel) {
			m.bonds = append(m.bonds, wlmc.Bond{Sites: [2]wlmc.SiteID{1, 1}, Arity: 2, Subtype: 1})
		}, wlmc.ErrBadBond},
		{"link on unused slot", func(m *toyModel) {
			m.patterns[7].Links = []wlmc.Link{{A: wlmc.SlotIn1, B: wlmc.SlotOut1}}
		}, wlmc.ErrBadModel},
		{"negative link weight", func(m *toyModel) {
			m.patterns[8].Links = []wlmc.Link{{A: wlmc.SlotIn0, B: wlmc.SlotOut0, Weight: -0.5}}
		}, wlmc.ErrBadModel},
		{"pair partner missing", func(m *toyModel) { m.bonds = m.bonds[:3] }, wlmc.ErrBadFamily},
		{"pair partner subtype", func(m *toyModel) { m.bonds[2].Subtype = 7 }, wlmc.ErrBadFamily},
		{"pair partner site", func(m *toyModel) { m.bonds[2].Sites = [2]wlmc.SiteID{1, 1} }, wlmc.ErrBadFamily},
		{"family not containing bond", func(m *toyModel) {
			m.bonds = append(m.bonds, wlmc.Bond{Sites: [2]wlmc.SiteID{0, 1}, Arity: 2, Subtype: 1})
			m.family = func(b wlmc.BondID) [3]wlmc.BondID { return [3]wlmc.BondID{0, 0, 0} }
		}, wlmc.ErrBadFamily},
		{"site weight off its bonds", func(m *toyModel) { m.siteExtra = 0.25 }, wlmc.ErrBadModel},
		{"family across sites", func(m *toyModel) {
			m.bonds = append(m.bonds,
				wlmc.Bond{Sites: [2]wlmc.SiteID{0, 1}, Arity: 2, Subtype: 1},
				wlmc.Bond{Sites: [2]wlmc.SiteID{1, 0}, Arity: 2, Subtype: 3},
			)
			m.family = func(b wlmc.BondID) [3]wlmc.BondID { return [3]wlmc.BondID{4, 5, 4} }
		}, wlmc.ErrBadFamily},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newToyModel(2, 1, 1)
			require.NoError(t, libwl.ValidateModel(m))
			tc.mutate(m)
			assert.ErrorIs(t, libwl.ValidateModel(m), tc.want)

			_, err := libwl.NewWorldLine(m, make([]wlmc.State, 2))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.ErrorIs(t, libwl.ValidateModel(nil), wlmc.ErrBadModel)
}

func TestNewWorldLine(t *testing.T) {
	m := newToyModel(3, 2, 1)
	_, err := libwl.NewWorldLine(m, make([]wlmc.State, 2))
	assert.ErrorIs(t, err, wlmc.ErrBadInitialState)

	initial := []wlmc.State{wlmc.Infected, wlmc.Susceptible, wlmc.Infected}
	w, err := libwl.NewWorldLine(m, initial)
	require.NoError(t, err)
	assert.Equal(t, 0, w.NumVertices())
	assert.Equal(t, initial, w.InitialStates())
	assert.Equal(t, initial, w.FinalStates())
	assert.False(t, w.ClustersValid())
	assert.Equal(t, 2*3, w.NumLegs())
	assert.Equal(t, wlmc.LegID(1), w.InitialLeg(1))
	assert.Equal(t, wlmc.LegID(3+1), w.FinalLeg(1))

	// The initial states are copied, not aliased
	initial[0] = wlmc.Susceptible
	assert.Equal(t, wlmc.Infected, w.InitialStates()[0])
}

func TestLoad(t *testing.T) {
	S, I := wlmc.Susceptible, wlmc.Infected
	m := newToyModel(2, 1, 1)
	w, err := libwl.NewWorldLine(m, []wlmc.State{S, I})
	require.NoError(t, err)

	require.NoError(t, w.Load([]wlmc.Vertex{
		eventVertex(0.1, 0, S, I),
		eventVertex(0.2, 3, I, S),
		nullVertex(0.3, 1, S),
	}))
	assert.Equal(t, 3, w.NumVertices())
	assert.Equal(t, []wlmc.State{S, I}, w.InitialStates())
	assert.Equal(t, []wlmc.State{I, S}, w.FinalStates())
	assert.True(t, w.ActiveIsB())

	for _, tc := range []struct {
		name string
		seq  []wlmc.Vertex
	}{
		{"unordered", []wlmc.Vertex{nullVertex(0.5, 0, S), nullVertex(0.4, 0, S)}},
		{"coincident", []wlmc.Vertex{nullVertex(0.5, 0, S), nullVertex(0.5, 0, S)}},
		{"past beta", []wlmc.Vertex{nullVertex(1, 0, S)}},
		{"negative time", []wlmc.Vertex{nullVertex(-0.1, 0, S)}},
		{"discontinuous", []wlmc.Vertex{eventVertex(0.1, 0, S, I), nullVertex(0.2, 2, S)}},
		{"bad bond", []wlmc.Vertex{nullVertex(0.1, 9, S)}},
		{"NaN time", []wlmc.Vertex{nullVertex(0.5, 0, S), nullVertex(math.NaN(), 0, S), nullVertex(0.2, 0, S)}},
		{"NaN first", []wlmc.Vertex{nullVertex(math.NaN(), 0, S)}},
		{"state out of range", []wlmc.Vertex{eventVertex(0.1, 0, S, 2), eventVertex(0.2, 0, 2, S)}},
		{"unused in slot", []wlmc.Vertex{{Time: 0.1, Bond: 0, Legs: [4]wlmc.State{S, I, S, S}}}},
		{"unused out slot", []wlmc.Vertex{{Time: 0.1, Bond: 1, Legs: [4]wlmc.State{I, S, I, I}}}},
	} {
		err := w.Load(tc.seq)
		assert.ErrorIs(t, err, wlmc.ErrBadSequence, tc.name)
	}

	// A rejected load leaves the world-line untouched
	assert.Equal(t, 3, w.NumVertices())
	assert.Equal(t, []wlmc.State{I, S}, w.FinalStates())
}

func TestLoad_Periodic(t *testing.T) {
	S, I := wlmc.Susceptible, wlmc.Infected
	m := newToyModel(1, 1, 1)
	m.periodic = true
	w, err := libwl.NewWorldLine(m, []wlmc.State{S})
	require.NoError(t, err)

	err = w.Load([]wlmc.Vertex{eventVertex(0.1, 0, S, I)})
	assert.ErrorIs(t, err, wlmc.ErrBadSequence)

	require.NoError(t, w.Load([]wlmc.Vertex{eventVertex(0.1, 0, S, I), eventVertex(0.6, 1, I, S)}))
	assert.Equal(t, w.InitialStates(), w.FinalStates())
}

func TestBufferGrowth(t *testing.T) {
	m := newToyModel(4, 8, 16)
	w, err := libwl.NewWorldLine(m, make([]wlmc.State, 4))
	require.NoError(t, err)

	rng := newRand(7)
	tally := wlmc.EventTally{}

	prevCap := w.Capacity()
	grew := false
	for i := 0; i < 6; i++ {
		activeB := w.ActiveIsB()
		w.Remove(&tally)
		assert.NotEqual(t, activeB, w.ActiveIsB(), "removal swaps buffers")

		activeB = w.ActiveIsB()
		require.NoError(t, w.Insert(rng))
		assert.NotEqual(t, activeB, w.ActiveIsB(), "insertion swaps buffers")
		assert.GreaterOrEqual(t, w.Capacity(), w.NumVertices())

		activeB = w.ActiveIsB()
		w.Resample(rng)
		w.BuildClusters()
		w.Flip(rng)
		assert.Equal(t, activeB, w.ActiveIsB(), "in-place stages keep the active buffer")

		if w.Capacity() > prevCap {
			grew = true
			assert.GreaterOrEqual(t, w.Capacity(), 2*prevCap)
		}
		prevCap = w.Capacity()
	}

	// Total rate 64 over beta 8 inserts hundreds of vertices per sweep
	assert.True(t, grew)
}
