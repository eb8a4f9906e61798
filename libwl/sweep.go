package libwl

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
)

// Sweep runs one full update pipeline: Remove, Insert, Resample, BuildClusters, Flip.
// Each stage completes before the next begins.  If obs is non-nil it is handed the freshly built cluster
// decomposition before any cluster is flipped.
//
// Random draws are consumed in pipeline order (insertion, resampling, flipping), so a fixed seed reproduces
// a run exactly.
func (w *WorldLine) Sweep(rng wlmc.Rand, tally *wlmc.EventTally, obs wlmc.ClusterObserver) error {
	w.Remove(tally)

	if err := w.Insert(rng); err != nil {
		return errors.Wrap(err, "sweep insertion failed")
	}

	w.Resample(rng)
	w.BuildClusters()

	if obs != nil {
		obs.ObserveClusters(w)
	}

	w.Flip(rng)
	return nil
}

// ObserverFunc adapts a func to a wlmc.ClusterObserver.
type ObserverFunc func(view wlmc.ClusterView)

func (fn ObserverFunc) ObserveClusters(view wlmc.ClusterView) {
	fn(view)
}
