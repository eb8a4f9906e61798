package libwl

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// Remove drops every vertex that leaves all of its sites unchanged, writing the survivors (in order) into the
// inactive buffer, which becomes active.  Each survivor is tallied by kind.
func (w *WorldLine) Remove(tally *wlmc.EventTally) {
	src := w.Active()
	dst := w.inactive()[:0]

	for vi := range src {
		v := &src[vi]
		arity := w.model.Bond(v.Bond).Arity
		if !v.Changed(arity) {
			continue
		}
		dst = append(dst, *v)
		tally.Add(v.Kind(arity))
	}

	klog.V(3).Infof("remove: %d -> %d vertices", len(src), len(dst))
	w.swapIn(dst)
	w.clustersValid = false
}

// RemoveFixed is Remove restricted to vertices that are dynamically inert: a vertex is also retained if any
// of its legs belongs to a cluster of nonzero weight.  It requires the cluster arrays built for the active
// sequence (i.e. BuildClusters, optionally followed by Flip) and returns ErrStaleClusters otherwise.
func (w *WorldLine) RemoveFixed(tally *wlmc.EventTally) error {
	if !w.clustersValid {
		return errors.Wrap(wlmc.ErrStaleClusters, "RemoveFixed")
	}

	src := w.Active()
	dst := w.inactive()[:0]

	for vi := range src {
		v := &src[vi]
		arity := w.model.Bond(v.Bond).Arity

		keep := v.Changed(arity)
		for k := 0; k < int(arity) && !keep; k++ {
			for _, slot := range [2]wlmc.Slot{wlmc.InSlot(k), wlmc.OutSlot(k)} {
				if w.weight[w.find(wlmc.FormLegID(vi, slot))] != 0 {
					keep = true
					break
				}
			}
		}
		if !keep {
			continue
		}
		dst = append(dst, *v)
		tally.Add(v.Kind(arity))
	}

	klog.V(3).Infof("remove fixed: %d -> %d vertices", len(src), len(dst))
	w.swapIn(dst)
	w.clustersValid = false
	return nil
}
