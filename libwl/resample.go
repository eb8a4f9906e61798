package libwl

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/plan-systems/klog"
)

// Resample relabels the bond of every vertex within its subtype family, in place on the active sequence.
// Odd and even families draw a member uniformly from Model.Family; the 7/8 pair is toggled by a fair coin,
// moving the bond id by +/- NumSites.  One draw is consumed per vertex.  Vertex count, order and leg states
// are never changed.
func (w *WorldLine) Resample(rng wlmc.Rand) {
	seq := w.Active()
	offset := wlmc.BondID(w.numSites)
	relabeled := 0

	for vi := range seq {
		v := &seq[vi]
		st := w.model.Bond(v.Bond).Subtype
		u := rng.Float64()

		prev := v.Bond
		switch st.Family() {
		case wlmc.FamilyOdd, wlmc.FamilyEven:
			k := int(3 * u)
			if k > 2 {
				k = 2
			}
			v.Bond = w.model.Family(v.Bond)[k]
		case wlmc.FamilyPair:
			if u < 0.5 {
				if st == 7 {
					v.Bond += offset
				} else {
					v.Bond -= offset
				}
			}
		}
		if v.Bond != prev {
			relabeled++
		}
	}

	klog.V(3).Infof("resample: %d of %d vertices relabeled", relabeled, len(seq))

	// Linking patterns follow the bond subtype
	w.clustersValid = false
}
