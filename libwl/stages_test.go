package libwl_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/2x3systems/worldline/libwl"
	"github.com/2x3systems/worldline/libwl/sis"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestRemove_SingleNullVertex(t *testing.T) {
	m := newToyModel(1, 1, 1)
	w, err := libwl.NewWorldLine(m, []wlmc.State{wlmc.Infected})
	require.NoError(t, err)
	require.NoError(t, w.Load([]wlmc.Vertex{nullVertex(0.5, 0, wlmc.Infected)}))

	tally := wlmc.EventTally{Infections: 3, Recoveries: 4}
	w.Remove(&tally)
	assert.Equal(t, 0, w.NumVertices())
	assert.Equal(t, wlmc.EventTally{Infections: 3, Recoveries: 4}, tally)
}

func TestRemove_Retention(t *testing.T) {
	S, I := wlmc.Susceptible, wlmc.Infected
	m := newToyModel(2, 1, 1)
	w, err := libwl.NewWorldLine(m, []wlmc.State{S, S})
	require.NoError(t, err)

	infect := eventVertex(0.1, 0, S, I)
	recovery := eventVertex(0.3, 2, I, S)
	require.NoError(t, w.Load([]wlmc.Vertex{
		infect,
		nullVertex(0.2, 2, I),
		nullVertex(0.25, 1, S),
		recovery,
		nullVertex(0.4, 0, S),
	}))

	tally := wlmc.EventTally{}
	w.Remove(&tally)
	assert.Equal(t, []wlmc.Vertex{infect, recovery}, w.Vertices())
	assert.Equal(t, wlmc.EventTally{Infections: 1, Recoveries: 1}, tally)
	assert.False(t, w.ClustersValid())

	for _, v := range w.Vertices() {
		assert.True(t, v.Changed(m.Bond(v.Bond).Arity))
	}

	// A second pass has nothing left to remove and tallies the survivors again
	w.Remove(&tally)
	assert.Equal(t, 2, w.NumVertices())
	assert.Equal(t, wlmc.EventTally{Infections: 2, Recoveries: 2}, tally)
}

func TestRemoveFixed(t *testing.T) {
	S, I := wlmc.Susceptible, wlmc.Infected
	m := newToyModel(2, 1, 1)
	m.field[1] = 0.5
	w, err := libwl.NewWorldLine(m, []wlmc.State{S, S})
	require.NoError(t, err)

	seq := []wlmc.Vertex{
		nullVertex(0.1, 0, S),
		eventVertex(0.2, 2, S, I),
		nullVertex(0.3, 1, S),
		eventVertex(0.4, 0, I, S),
	}
	require.NoError(t, w.Load(seq))

	tally := wlmc.EventTally{}
	err = w.RemoveFixed(&tally)
	assert.ErrorIs(t, err, wlmc.ErrStaleClusters)
	assert.Equal(t, 4, w.NumVertices())

	w.BuildClusters()
	require.NoError(t, w.RemoveFixed(&tally))

	// Site 1 carries a field so its null vertex lies in a weighted cluster; site 0's does not
	assert.Equal(t, []wlmc.Vertex{seq[1], seq[2], seq[3]}, w.Vertices())
	assert.Equal(t, wlmc.EventTally{Infections: 1, Recoveries: 1}, tally)
	assert.False(t, w.ClustersValid())

	assert.ErrorIs(t, w.RemoveFixed(&tally), wlmc.ErrStaleClusters)
}

func TestInsert_TwoSitesRejected(t *testing.T) {
	m := newToyModel(2, 1, 20)
	m.insertable = func(b wlmc.BondID, states [2]wlmc.State) bool { return false }
	w, err := libwl.NewWorldLine(m, []wlmc.State{wlmc.Susceptible, wlmc.Susceptible})
	require.NoError(t, err)

	rng := &countingRand{src: newRand(11)}
	require.NoError(t, w.Insert(rng))
	assert.Equal(t, 0, w.NumVertices())
	assert.Greater(t, m.insertCalls, 0)

	// Three draws per candidate plus the gap that overshoots beta
	assert.Equal(t, 3*m.insertCalls+1, rng.draws)
}

func TestInsert_TwoSitesSusceptible(t *testing.T) {
	L, _ := sis.Chain(2)
	m, err := sis.NewModel(sis.Params{Beta: 3, Infection: 4}, L)
	require.NoError(t, err)
	w, err := libwl.NewWorldLine(m, []wlmc.State{wlmc.Susceptible, wlmc.Susceptible})
	require.NoError(t, err)

	require.NoError(t, w.Insert(newRand(5)))
	require.Greater(t, w.NumVertices(), 0)
	for _, v := range w.Vertices() {
		bond := m.Bond(v.Bond)
		assert.Equal(t, uint8(2), bond.Arity)
		assert.False(t, v.Changed(bond.Arity))
		assert.Equal(t, [4]wlmc.State{}, v.Legs)
	}
	assertWellFormed(t, w)

	// Nothing was changed, so removal undoes the insertion
	tally := wlmc.EventTally{}
	w.Remove(&tally)
	assert.Equal(t, 0, w.NumVertices())
	assert.Equal(t, wlmc.EventTally{}, tally)
}

func TestInsert_MergeKeepsExisting(t *testing.T) {
	S, I := wlmc.Susceptible, wlmc.Infected
	m := newToyModel(2, 2, 4)
	w, err := libwl.NewWorldLine(m, []wlmc.State{S, S})
	require.NoError(t, err)

	existing := []wlmc.Vertex{
		eventVertex(0.5, 0, S, I),
		eventVertex(1.5, 3, S, I),
	}
	require.NoError(t, w.Load(existing))
	require.NoError(t, w.Insert(newRand(3)))
	require.Greater(t, w.NumVertices(), 2)

	var kept []wlmc.Vertex
	for _, v := range w.Vertices() {
		if v.Changed(1) {
			kept = append(kept, v)
		}
	}
	assert.Equal(t, existing, kept)
	assertWellFormed(t, w)
}

func TestInsert_ZeroRate(t *testing.T) {
	m := newToyModel(3, 1, 0)
	w, err := libwl.NewWorldLine(m, make([]wlmc.State, 3))
	require.NoError(t, err)

	rng := &countingRand{src: newRand(1)}
	require.NoError(t, w.Insert(rng))
	assert.Equal(t, 0, w.NumVertices())
	assert.Equal(t, 0, rng.draws)
}

func TestInsert_StrictTimes(t *testing.T) {
	S, I := wlmc.Susceptible, wlmc.Infected
	at := -math.Log1p(-0.5) / 2

	// A zero gap puts a second candidate on the first one's time
	m := newToyModel(1, 1, 2)
	w, err := libwl.NewWorldLine(m, []wlmc.State{S})
	require.NoError(t, err)

	rng := &scriptRand{vals: []float64{0.5, 0.1, 0.1, 0, 0.1, 0.1, 0.99}}
	require.NoError(t, w.Insert(rng))
	assert.Equal(t, 7, rng.draws)
	require.Equal(t, 1, w.NumVertices())
	assert.Equal(t, at, w.Vertices()[0].Time)

	saved := append([]wlmc.Vertex(nil), w.Vertices()...)
	require.NoError(t, w.Load(saved))

	// A candidate on an existing vertex's time gives way to it
	w, err = libwl.NewWorldLine(m, []wlmc.State{S})
	require.NoError(t, err)
	existing := eventVertex(at, 0, S, I)
	require.NoError(t, w.Load([]wlmc.Vertex{existing}))

	rng = &scriptRand{vals: []float64{0.5, 0.1, 0.1, 0.99}}
	require.NoError(t, w.Insert(rng))
	assert.Equal(t, 4, rng.draws)
	assert.Equal(t, []wlmc.Vertex{existing}, w.Vertices())
	assertWellFormed(t, w)
}

func TestResample_Invariance(t *testing.T) {
	L, _ := sis.Ring(4)
	m, err := sis.NewModel(sis.Params{Beta: 4, Infection: 1, Recovery: 1, Field: 0.2}, L)
	require.NoError(t, err)
	w, err := libwl.NewWorldLine(m, []wlmc.State{1, 0, 1, 0})
	require.NoError(t, err)

	rng := newRand(99)
	tally := wlmc.EventTally{}
	for i := 0; i < 20; i++ {
		require.NoError(t, w.Sweep(rng, &tally, nil))
	}
	require.NoError(t, w.Insert(rng))
	require.Greater(t, w.NumVertices(), 0)

	N := wlmc.BondID(m.NumSites())
	for rep := 0; rep < 10; rep++ {
		before := append([]wlmc.Vertex(nil), w.Vertices()...)
		activeB := w.ActiveIsB()

		counter := &countingRand{src: rng}
		w.Resample(counter)
		assert.Equal(t, len(before), counter.draws)
		assert.Equal(t, activeB, w.ActiveIsB())

		after := w.Vertices()
		require.Len(t, after, len(before))
		for i := range before {
			b0, b1 := before[i], after[i]
			assert.Equal(t, b0.Time, b1.Time)
			assert.Equal(t, b0.Legs, b1.Legs)

			st0, st1 := m.Bond(b0.Bond).Subtype, m.Bond(b1.Bond).Subtype
			assert.Equal(t, st0.Family(), st1.Family())
			switch st0.Family() {
			case wlmc.FamilyPair:
				assert.Contains(t, []wlmc.BondID{b0.Bond, b0.Bond + N, b0.Bond - N}, b1.Bond)
			default:
				assert.Contains(t, m.Family(b0.Bond), b1.Bond)
			}
			assert.Equal(t, m.Bond(b0.Bond).Sites, m.Bond(b1.Bond).Sites)
		}
	}
}

func TestResample_Draws(t *testing.T) {
	S := wlmc.Susceptible
	L, _ := sis.Chain(2)
	m, err := sis.NewModel(sis.DefaultParams(), L)
	require.NoError(t, err)
	w, err := libwl.NewWorldLine(m, []wlmc.State{S, S})
	require.NoError(t, err)

	// Bond 4 is edge 0 subtype 1; bonds 0 and 2 are site 0's 7/8 pair
	require.NoError(t, w.Load([]wlmc.Vertex{
		nullVertex(0.1, 4, S),
		nullVertex(0.2, 0, S),
		nullVertex(0.3, 2, S),
		nullVertex(0.4, 9, S),
	}))

	w.Resample(&scriptRand{vals: []float64{0.9, 0.2, 0.7, 0.4}})
	bonds := []wlmc.BondID{}
	for _, v := range w.Vertices() {
		bonds = append(bonds, v.Bond)
	}
	assert.Equal(t, []wlmc.BondID{8, 2, 2, 7}, bonds)
}
