package diag

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
)

// Statistic summarizes one cluster decomposition of a world-line.
//
// Cluster sizes count legs, boundary legs included, so a site no vertex touches forms a cluster of size 2.
type Statistic struct {
	Vertices     int
	Clusters     int
	FreeClusters int
	FreeRatio    float64 // FreeClusters / Clusters
	MeanSize     float64
	MeanFreeSize float64
	MaxSize      int
	Sizes        []SizeCount

	Infections   int     // vertices in the sequence that infect a site
	Recoveries   int     // vertices in the sequence that recover a site
	Infected     int     // sites infected at time 0
	InfectedFrac float64 // infected time over NumSites * Beta
	Intervals    int     // maximal infected intervals over all sites
	MeanDuration float64
	MaxDuration  float64
}

// Compute walks the active sequence and the cluster arrays of the given view.
// The view's clusters must describe its active sequence.
func Compute(view wlmc.ClusterView) (Statistic, error) {
	st := Statistic{}
	if !view.ClustersValid() {
		return st, errors.Wrap(wlmc.ErrStaleClusters, "cluster statistic")
	}

	m := view.Model()
	seq := view.Vertices()
	N := m.NumSites()
	st.Vertices = len(seq)

	size := make([]int32, view.NumLegs())
	tally := func(leg wlmc.LegID) {
		size[view.Root(leg)]++
	}
	for vi := range seq {
		v := &seq[vi]
		arity := m.Bond(v.Bond).Arity
		for k := 0; k < int(arity); k++ {
			tally(wlmc.FormLegID(vi, wlmc.InSlot(k)))
			tally(wlmc.FormLegID(vi, wlmc.OutSlot(k)))
		}
		switch v.Kind(arity) {
		case wlmc.KindInfection:
			st.Infections++
		case wlmc.KindRecovery:
			st.Recoveries++
		}
	}
	for s := 0; s < N; s++ {
		tally(view.InitialLeg(wlmc.SiteID(s)))
		tally(view.FinalLeg(wlmc.SiteID(s)))
	}

	hist := NewSizeHistogram()
	legs, freeLegs := 0, 0
	for root, n := range size {
		if n == 0 {
			continue
		}
		st.Clusters++
		legs += int(n)
		if view.Weight(wlmc.LegID(root)) == 0 {
			st.FreeClusters++
			freeLegs += int(n)
		}
		hist.Add(int(n), 1)
	}
	if st.Clusters > 0 {
		st.FreeRatio = float64(st.FreeClusters) / float64(st.Clusters)
		st.MeanSize = float64(legs) / float64(st.Clusters)
	}
	if st.FreeClusters > 0 {
		st.MeanFreeSize = float64(freeLegs) / float64(st.FreeClusters)
	}
	st.Sizes = hist.Counts()
	st.MaxSize = hist.Max()

	st.computeDurations(view)
	return st, nil
}

// computeDurations measures the maximal infected intervals of every site.  On a periodic time axis an interval
// running through Beta continues from 0.
func (st *Statistic) computeDurations(view wlmc.ClusterView) {
	m := view.Model()
	N := m.NumSites()
	beta := m.Beta()
	if N == 0 || beta <= 0 {
		return
	}

	initial := view.InitialStates()
	state := append([]wlmc.State(nil), initial...)
	start := make([]float64, N)
	head := make([]float64, N) // length of the interval open at time 0; -1 once it closed or if none
	for s := 0; s < N; s++ {
		head[s] = -1
		if state[s] == wlmc.Infected {
			st.Infected++
		}
	}

	total := 0.0
	record := func(dt float64) {
		st.Intervals++
		total += dt
		if dt > st.MaxDuration {
			st.MaxDuration = dt
		}
	}

	periodic := m.Periodic()
	for _, v := range view.Vertices() {
		bond := m.Bond(v.Bond)
		for k := 0; k < int(bond.Arity); k++ {
			site := bond.Sites[k]
			in, out := v.Legs[wlmc.InSlot(k)], v.Legs[wlmc.OutSlot(k)]
			switch {
			case in == wlmc.Susceptible && out == wlmc.Infected:
				start[site] = v.Time
			case in == wlmc.Infected && out == wlmc.Susceptible:
				if periodic && initial[site] == wlmc.Infected && start[site] == 0 && head[site] < 0 {
					head[site] = v.Time
				} else {
					record(v.Time - start[site])
				}
			}
			state[site] = out
		}
	}

	for s := 0; s < N; s++ {
		tail := -1.0
		if state[s] == wlmc.Infected {
			tail = beta - start[s]
		}
		switch {
		case head[s] >= 0 && tail >= 0:
			record(head[s] + tail)
		case head[s] >= 0:
			record(head[s])
		case tail >= 0:
			record(tail)
		}
	}

	if st.Intervals > 0 {
		st.MeanDuration = total / float64(st.Intervals)
	}
	st.InfectedFrac = total / (float64(N) * beta)
}
