package libwl

import (
	"math"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// candidate is a proposed insertion point: a time and the bond a vertex would be placed on.
type candidate struct {
	time float64
	bond wlmc.BondID
}

// Insert samples candidate insertion times as a Poisson process of total rate sum(SiteWeight) over [0, Beta),
// and merges them in time order with the active sequence.  A candidate becomes a (null) vertex only if the
// model deems it insertable under the state its sites carry at that time; otherwise it is dropped.  A candidate
// whose time equals that of the vertex before it (a zero gap, or a tie with an existing vertex) is also dropped.
// The merged sequence is written into the inactive buffer, which becomes active.
//
// Draw order per candidate: time gap, site, bond.
func (w *WorldLine) Insert(rng wlmc.Rand) error {
	if err := w.sampleCandidates(rng); err != nil {
		return err
	}

	// Buffers only ever grow here
	if err := w.reserve(len(w.Active()) + len(w.candidates)); err != nil {
		return err
	}

	src := w.Active()
	dst := w.inactive()[:0]
	cands := w.candidates
	work := w.work
	copy(work, w.istate)

	inserted := 0
	ci := 0
	for vi := 0; vi <= len(src); vi++ {
		next := w.beta
		if vi < len(src) {
			next = src[vi].Time
		}

		// Existing vertices win ties so the merge is well-defined
		for ; ci < len(cands) && cands[ci].time < next; ci++ {
			c := &cands[ci]

			// Timestamps stay strictly increasing: a candidate landing on the previous vertex's time is dropped
			if n := len(dst); n > 0 && dst[n-1].Time == c.time {
				continue
			}
			bond := w.model.Bond(c.bond)

			var states [2]wlmc.State
			for k := 0; k < int(bond.Arity); k++ {
				states[k] = work[bond.Sites[k]]
			}
			if !w.model.Insertable(c.bond, states) {
				continue
			}

			v := wlmc.Vertex{
				Time: c.time,
				Bond: c.bond,
			}
			for k := 0; k < int(bond.Arity); k++ {
				v.Legs[wlmc.InSlot(k)] = states[k]
				v.Legs[wlmc.OutSlot(k)] = states[k]
			}
			dst = append(dst, v)
			inserted++
		}

		if vi < len(src) {
			v := &src[vi]
			bond := w.model.Bond(v.Bond)
			for k := 0; k < int(bond.Arity); k++ {
				work[bond.Sites[k]] = v.Legs[wlmc.OutSlot(k)]
			}
			dst = append(dst, *v)
		}
	}

	klog.V(3).Infof("insert: %d candidates, %d inserted, %d -> %d vertices", len(cands), inserted, len(src), len(dst))
	w.swapIn(dst)
	w.clustersValid = false
	return nil
}

// sampleCandidates fills w.candidates with time-ordered candidates.
func (w *WorldLine) sampleCandidates(rng wlmc.Rand) error {
	cands := w.candidates[:0]
	R := w.totalRate

	if R > 0 && w.beta > 0 && w.numSites > 0 {
		t := 0.0
		for {
			t += -math.Log1p(-rng.Float64()) / R
			if t >= w.beta {
				break
			}
			site := w.siteAt(rng.Float64() * R)
			b, ok := w.pickBond(site, rng.Float64())
			if !ok {
				continue
			}
			if len(cands) >= wlmc.MaxVertices {
				w.candidates = cands[:0]
				return errors.Wrapf(wlmc.ErrSequenceOverflow, "more than %d insertion candidates", wlmc.MaxVertices)
			}
			cands = append(cands, candidate{
				time: t,
				bond: b,
			})
		}
	}

	w.candidates = cands
	return nil
}

// pickBond picks one of the site's bonds with probability proportional to its weight.
func (w *WorldLine) pickBond(site wlmc.SiteID, u float64) (wlmc.BondID, bool) {
	bonds := w.model.SiteBonds(site)
	total := 0.0
	for _, b := range bonds {
		total += w.model.Bond(b).Weight
	}
	if total <= 0 {
		return 0, false
	}

	x := u * total
	for _, b := range bonds {
		x -= w.model.Bond(b).Weight
		if x < 0 {
			return b, true
		}
	}

	// Rounding landed past the last bucket; use the last bond with a nonzero weight
	for i := len(bonds) - 1; i >= 0; i-- {
		if w.model.Bond(bonds[i]).Weight > 0 {
			return bonds[i], true
		}
	}
	return 0, false
}
