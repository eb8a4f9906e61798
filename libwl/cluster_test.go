package libwl_test

import (
	"testing"

	"github.com/2x3systems/worldline/libwl"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFreePair returns a one-site world-line holding two null vertices whose legs all join one free cluster.
func newFreePair(t *testing.T) *libwl.WorldLine {
	m := newToyModel(1, 1, 1)
	w, err := libwl.NewWorldLine(m, []wlmc.State{wlmc.Susceptible})
	require.NoError(t, err)
	require.NoError(t, w.Load([]wlmc.Vertex{
		nullVertex(0.25, 0, wlmc.Susceptible),
		nullVertex(0.75, 1, wlmc.Susceptible),
	}))
	return w
}

func vertexLegs(w *libwl.WorldLine) []wlmc.State {
	var legs []wlmc.State
	for _, v := range w.Vertices() {
		legs = append(legs, v.Legs[wlmc.SlotIn0], v.Legs[wlmc.SlotOut0])
	}
	return legs
}

func TestFreeCluster(t *testing.T) {
	I := wlmc.Infected
	w := newFreePair(t)
	w.BuildClusters()
	require.True(t, w.ClustersValid())

	legs := []wlmc.LegID{
		wlmc.FormLegID(0, wlmc.SlotIn0),
		wlmc.FormLegID(0, wlmc.SlotOut0),
		wlmc.FormLegID(1, wlmc.SlotIn0),
		wlmc.FormLegID(1, wlmc.SlotOut0),
	}
	root := w.Root(legs[0])
	for _, leg := range legs {
		assert.Equal(t, root, w.Root(leg))
	}
	assert.Equal(t, root, w.Root(w.InitialLeg(0)))
	assert.Equal(t, root, w.Root(w.FinalLeg(0)))
	assert.Zero(t, w.Weight(root))

	// One cluster, so one draw; 0.1 < 1/2 flips it
	rng := &scriptRand{vals: []float64{0.1}}
	w.Flip(rng)
	assert.Equal(t, 1, rng.draws)
	assert.Equal(t, []wlmc.State{I, I, I, I}, vertexLegs(w))
	assert.Equal(t, []wlmc.State{I}, w.InitialStates())
	assert.Equal(t, []wlmc.State{I}, w.FinalStates())
	assert.True(t, w.ClustersValid())

	rng = &scriptRand{vals: []float64{0.9}}
	w.Flip(rng)
	assert.Equal(t, 1, rng.draws)
	assert.Equal(t, []wlmc.State{I, I, I, I}, vertexLegs(w))

	// The four legs only ever flip together
	src := newRand(17)
	for i := 0; i < 50; i++ {
		w.Flip(src)
		got := vertexLegs(w)
		for _, s := range got {
			require.Equal(t, got[0], s)
		}
		require.Equal(t, got[0], w.InitialStates()[0])
		require.Equal(t, got[0], w.FinalStates()[0])
	}
}

func TestFlip_BuildsStaleClusters(t *testing.T) {
	w := newFreePair(t)
	require.False(t, w.ClustersValid())

	rng := &scriptRand{vals: []float64{0.3}}
	w.Flip(rng)
	assert.True(t, w.ClustersValid())
	assert.Equal(t, 1, rng.draws)
	assert.Equal(t, []wlmc.State{wlmc.Infected}, w.InitialStates())
}

func TestLogWeight_ClusterFlips(t *testing.T) {
	S := wlmc.Susceptible
	m := newToyModel(2, 1, 1)
	m.field[1] = 0.5
	m.patterns[7].Links[0].Weight = 0.3
	m.patterns[8].Links = nil

	w, err := libwl.NewWorldLine(m, []wlmc.State{S, S})
	require.NoError(t, err)
	require.NoError(t, w.Load([]wlmc.Vertex{
		nullVertex(0.0, 3, S),
		nullVertex(0.2, 2, S),
		nullVertex(0.4, 3, S),
		nullVertex(0.5, 0, S),
		nullVertex(0.7, 2, S),
	}))

	assert.ErrorIs(t, w.FlipCluster(0), wlmc.ErrStaleClusters)
	w.BuildClusters()

	site1Free := w.Root(w.InitialLeg(1))
	site0Free := w.Root(w.InitialLeg(0))
	linked := w.Root(wlmc.FormLegID(1, wlmc.SlotOut0))
	site1Mid := w.Root(wlmc.FormLegID(0, wlmc.SlotOut0))

	// A zero length segment leaves site 1's first cluster free despite the field
	assert.Equal(t, site1Free, w.Root(wlmc.FormLegID(0, wlmc.SlotIn0)))
	assert.Zero(t, w.Weight(site1Free))
	assert.Zero(t, w.Weight(site0Free))
	assert.InDelta(t, 0.3, w.Weight(linked), 1e-12)
	assert.InDelta(t, 0.2, w.Weight(site1Mid), 1e-12)
	assert.Equal(t, linked, w.Root(wlmc.FormLegID(4, wlmc.SlotIn0)))
	assert.NotEqual(t, linked, w.Root(wlmc.FormLegID(4, wlmc.SlotOut0)))

	assert.Zero(t, libwl.LogWeight(w))

	require.NoError(t, w.FlipCluster(site1Free))
	assert.InDelta(t, 0, libwl.LogWeight(w), 1e-12)
	require.NoError(t, w.FlipCluster(site0Free))
	assert.InDelta(t, 0, libwl.LogWeight(w), 1e-12)
	assertWellFormed(t, w)

	require.NoError(t, w.FlipCluster(linked))
	assert.InDelta(t, -0.3, libwl.LogWeight(w), 1e-12)
	require.NoError(t, w.FlipCluster(site1Mid))
	assert.InDelta(t, -0.5, libwl.LogWeight(w), 1e-12)
	require.NoError(t, w.FlipCluster(site1Mid))
	assert.InDelta(t, -0.3, libwl.LogWeight(w), 1e-12)
	assertWellFormed(t, w)

	// Every free cluster flips without changing the weight
	for leg := wlmc.LegID(0); int(leg) < w.NumLegs(); leg++ {
		if !w.IsLeg(leg) {
			continue
		}
		root := w.Root(leg)
		if w.Weight(root) != 0 {
			continue
		}
		before := libwl.LogWeight(w)
		require.NoError(t, w.FlipCluster(root))
		assert.InDelta(t, before, libwl.LogWeight(w), 1e-12)
	}
}

func TestBuildClusters_Periodic(t *testing.T) {
	S := wlmc.Susceptible
	m := newToyModel(2, 1, 1)
	m.patterns[7].Links = nil
	m.periodic = true

	w, err := libwl.NewWorldLine(m, []wlmc.State{S, S})
	require.NoError(t, err)
	require.NoError(t, w.Load([]wlmc.Vertex{nullVertex(0.5, 0, S)}))
	w.BuildClusters()

	// The cut vertex splits site 0 in two, but the periodic boundary joins the pieces
	in := w.Root(wlmc.FormLegID(0, wlmc.SlotIn0))
	out := w.Root(wlmc.FormLegID(0, wlmc.SlotOut0))
	assert.Equal(t, in, out)
	assert.Equal(t, w.Root(w.InitialLeg(1)), w.Root(w.FinalLeg(1)))
	assert.NotEqual(t, in, w.Root(w.InitialLeg(1)))

	m.periodic = false
	w.BuildClusters()
	assert.NotEqual(t, w.Root(wlmc.FormLegID(0, wlmc.SlotIn0)), w.Root(wlmc.FormLegID(0, wlmc.SlotOut0)))

	// An untouched site is still joined initial to final by its virtual segment
	assert.Equal(t, w.Root(w.InitialLeg(1)), w.Root(w.FinalLeg(1)))
}
