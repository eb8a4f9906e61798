package libwl

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/plan-systems/klog"
)

// FreeFlipProbability is the fixed flip probability of a free (zero weight) cluster.  Flipping a free cluster
// leaves the configuration weight unchanged, so any fixed value is valid; one half keeps the draw symmetric.
const FreeFlipProbability = 0.5

// Flip draws one decision per cluster and inverts the state of every leg of each cluster that flips.
// Roots are decided in leg order: vertex legs in sequence order, then initial boundary legs, then final
// boundary legs.  A weighted cluster flips with Model.FlipProbability(weight, state of its first leg).
//
// Afterwards the initial and final boundary states are recomputed from the first and last legs touching each
// site.  An untouched site takes the state drawn for its initial-to-final boundary cluster.
//
// Flip builds the clusters first if they do not describe the active sequence.
func (w *WorldLine) Flip(rng wlmc.Rand) {
	if !w.clustersValid {
		w.BuildClusters()
	}
	for i := range w.decision {
		w.decision[i] = -1
	}

	seq := w.Active()
	flipped := 0
	for vi := range seq {
		v := &seq[vi]
		arity := w.model.Bond(v.Bond).Arity
		for k := 0; k < int(arity); k++ {
			for _, slot := range [2]wlmc.Slot{wlmc.InSlot(k), wlmc.OutSlot(k)} {
				if w.decide(wlmc.FormLegID(vi, slot), v.Legs[slot], rng) {
					v.Legs[slot] = v.Legs[slot].Flip()
					flipped++
				}
			}
		}
	}

	N := w.numSites
	base := wlmc.LegsPerVertex * len(seq)
	for s := 0; s < N; s++ {
		if w.decide(wlmc.LegID(base+s), w.istate[s], rng) {
			w.istate[s] = w.istate[s].Flip()
		}
	}
	for s := 0; s < N; s++ {
		if w.decide(wlmc.LegID(base+N+s), w.pstate[s], rng) {
			w.pstate[s] = w.pstate[s].Flip()
		}
	}

	// Derive boundary states from the world-line itself
	for s := 0; s < N; s++ {
		if first := w.firstLeg[s]; first >= 0 {
			w.istate[s] = w.LegState(first)
			w.pstate[s] = w.LegState(w.lastTouch[s])
		}
	}

	klog.V(3).Infof("flip: %d vertex legs flipped", flipped)
}

// decide returns the flip decision of leg's cluster, drawing it if the cluster has not been decided yet.
func (w *WorldLine) decide(leg wlmc.LegID, current wlmc.State, rng wlmc.Rand) bool {
	root := w.find(leg)
	d := w.decision[root]
	if d < 0 {
		p := FreeFlipProbability
		if wt := w.weight[root]; wt != 0 {
			p = w.model.FlipProbability(wt, current)
		}
		d = 0
		if rng.Float64() < p {
			d = 1
		}
		w.decision[root] = d
	}
	return d == 1
}

// FlipCluster unconditionally inverts every leg of the cluster rooted at root, boundary legs included.
// It draws nothing and requires clusters built for the active sequence.
func (w *WorldLine) FlipCluster(root wlmc.LegID) error {
	if !w.clustersValid {
		return wlmc.ErrStaleClusters
	}

	seq := w.Active()
	for vi := range seq {
		v := &seq[vi]
		arity := w.model.Bond(v.Bond).Arity
		for k := 0; k < int(arity); k++ {
			for _, slot := range [2]wlmc.Slot{wlmc.InSlot(k), wlmc.OutSlot(k)} {
				if w.find(wlmc.FormLegID(vi, slot)) == root {
					v.Legs[slot] = v.Legs[slot].Flip()
				}
			}
		}
	}

	N := w.numSites
	base := wlmc.LegsPerVertex * len(seq)
	for s := 0; s < N; s++ {
		if w.find(wlmc.LegID(base+s)) == root {
			w.istate[s] = w.istate[s].Flip()
		}
		if w.find(wlmc.LegID(base+N+s)) == root {
			w.pstate[s] = w.pstate[s].Flip()
		}
	}
	return nil
}
