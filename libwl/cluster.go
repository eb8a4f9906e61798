package libwl

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/plan-systems/klog"
)

// BuildClusters scans the active sequence once and joins legs into clusters:
//   - each vertex's incoming leg on a site is joined to that site's last touch (the previous outgoing leg,
//     or the site's initial boundary leg), adding the segment's weight;
//   - the linking pattern of the vertex's bond subtype joins legs within the vertex, adding each link's weight;
//   - after the scan each site's last touch is joined to its final boundary leg.  A site no vertex touches
//     is thereby linked initial-to-final by a single virtual segment spanning the whole time extent.
//
// If the model is periodic, each site's initial and final boundary legs are also joined.
func (w *WorldLine) BuildClusters() {
	seq := w.Active()
	m := w.model
	N := w.numSites
	base := wlmc.LegsPerVertex * len(seq)

	w.resetClusters(base + 2*N)

	for s := 0; s < N; s++ {
		w.lastTouch[s] = wlmc.LegID(base + s)
		w.lastTime[s] = 0
		w.firstLeg[s] = -1
	}

	for vi := range seq {
		v := &seq[vi]
		bond := m.Bond(v.Bond)

		for k := 0; k < int(bond.Arity); k++ {
			site := bond.Sites[k]
			in := wlmc.FormLegID(vi, wlmc.InSlot(k))
			w.union(w.lastTouch[site], in, m.SegmentWeight(site, v.Time-w.lastTime[site]))
			if w.firstLeg[site] < 0 {
				w.firstLeg[site] = in
			}
			w.lastTouch[site] = wlmc.FormLegID(vi, wlmc.OutSlot(k))
			w.lastTime[site] = v.Time
		}

		for _, link := range m.Pattern(bond.Subtype).Links {
			w.union(wlmc.FormLegID(vi, link.A), wlmc.FormLegID(vi, link.B), link.Weight)
		}
	}

	periodic := m.Periodic()
	for s := 0; s < N; s++ {
		site := wlmc.SiteID(s)
		final := wlmc.LegID(base + N + s)
		w.union(w.lastTouch[s], final, m.SegmentWeight(site, w.beta-w.lastTime[s]))
		if periodic {
			w.union(wlmc.LegID(base+s), final, 0)
		}
	}

	w.clustersValid = true

	klog.V(3).Infof("clusters: %d legs over %d vertices", base+2*N, len(seq))
}

// resetClusters sizes the cluster scratch arrays for numLegs legs and makes every leg its own cluster.
func (w *WorldLine) resetClusters(numLegs int) {
	if cap(w.parent) < numLegs {
		newCap := max(numLegs, 2*cap(w.parent))
		w.parent = make([]wlmc.LegID, numLegs, newCap)
		w.rank = make([]uint8, numLegs, newCap)
		w.weight = make([]float64, numLegs, newCap)
		w.decision = make([]int8, numLegs, newCap)
	} else {
		w.parent = w.parent[:numLegs]
		w.rank = w.rank[:numLegs]
		w.weight = w.weight[:numLegs]
		w.decision = w.decision[:numLegs]
	}

	for i := range w.parent {
		w.parent[i] = wlmc.LegID(i)
		w.rank[i] = 0
		w.weight[i] = 0
		w.decision[i] = -1
	}
}

// find returns the root of leg, halving the path as it walks up.
func (w *WorldLine) find(leg wlmc.LegID) wlmc.LegID {
	parent := w.parent
	for parent[leg] != leg {
		parent[leg] = parent[parent[leg]]
		leg = parent[leg]
	}
	return leg
}

// union joins the clusters of a and b (union by rank) and adds wt to the joined cluster's weight.
func (w *WorldLine) union(a, b wlmc.LegID, wt float64) wlmc.LegID {
	ra, rb := w.find(a), w.find(b)
	if ra == rb {
		w.weight[ra] += wt
		return ra
	}

	if w.rank[ra] < w.rank[rb] {
		ra, rb = rb, ra
	}
	w.parent[rb] = ra
	w.weight[ra] += w.weight[rb] + wt
	if w.rank[ra] == w.rank[rb] {
		w.rank[ra]++
	}
	return ra
}
