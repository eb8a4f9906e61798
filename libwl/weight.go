package libwl

import (
	"github.com/2x3systems/worldline/wlmc"
)

// LogWeight returns the log of the configuration weight the cluster flip samples from: every infected
// world-line segment contributes -SegmentWeight and every link whose legs are infected contributes -Weight.
// Flipping a free cluster leaves it unchanged; flipping a cluster of weight w moves it by w.
func LogWeight(view wlmc.ClusterView) float64 {
	m := view.Model()
	N := m.NumSites()
	beta := m.Beta()

	state := make([]wlmc.State, N)
	copy(state, view.InitialStates())
	last := make([]float64, N)

	logW := 0.0
	for _, v := range view.Vertices() {
		bond := m.Bond(v.Bond)
		for k := 0; k < int(bond.Arity); k++ {
			site := bond.Sites[k]
			if v.Legs[wlmc.InSlot(k)] == wlmc.Infected {
				logW -= m.SegmentWeight(site, v.Time-last[site])
			}
			last[site] = v.Time
			state[site] = v.Legs[wlmc.OutSlot(k)]
		}
		for _, link := range m.Pattern(bond.Subtype).Links {
			if v.Legs[link.A] == wlmc.Infected {
				logW -= link.Weight
			}
		}
	}

	for s := 0; s < N; s++ {
		if state[s] == wlmc.Infected {
			logW -= m.SegmentWeight(wlmc.SiteID(s), beta-last[s])
		}
	}
	return logW
}
