package diag

import (
	"context"
	"fmt"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/plan-systems/klog"
)

// Opts configure a Sink.
type Opts struct {
	RunID    string // namespaces stored records; a random UUID if empty
	ModelKey string // identifies the model the run samples (e.g. sis.Model.Fingerprint)
	Every    int    // compute a statistic every Every-th observation (<= 1 means every one)
	Quiet    bool   // skip the per-statistic log line
}

// Sink is a wlmc.ClusterObserver that computes a Statistic from observed cluster decompositions, logs a summary,
// and appends a Record to its Store.  A nil store keeps statistics in memory only.
type Sink struct {
	ctx     context.Context
	store   Store
	opts    Opts
	seen    int64
	sizes   *SizeHistogram
	last    Statistic
	records int
	err     error
}

func NewSink(ctx context.Context, store Store, opts Opts) *Sink {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Every < 1 {
		opts.Every = 1
	}
	return &Sink{
		ctx:   ctx,
		store: store,
		opts:  opts,
		sizes: NewSizeHistogram(),
	}
}

func (sink *Sink) RunID() string {
	return sink.opts.RunID
}

// ObserveClusters is called once per sweep with the freshly built clusters.
func (sink *Sink) ObserveClusters(view wlmc.ClusterView) {
	sweep := sink.seen
	sink.seen++
	if sweep%int64(sink.opts.Every) != 0 {
		return
	}

	st, err := Compute(view)
	if err != nil {
		sink.fail(err)
		return
	}
	sink.last = st
	sink.sizes.Merge(st.Sizes)

	if !sink.opts.Quiet {
		klog.Infof("sweep %s: %s", humanize.Comma(sweep), st.Summary())
	}

	if sink.store != nil && sink.err == nil {
		rec := Record{
			RunID:    sink.opts.RunID,
			Sweep:    sweep,
			ModelKey: sink.opts.ModelKey,
			Stat:     st,
		}
		if err = sink.store.Append(sink.ctx, rec); err != nil {
			sink.fail(err)
			return
		}
		sink.records++
	}
}

func (sink *Sink) fail(err error) {
	if sink.err == nil {
		klog.Warningf("cluster statistic disabled: %v", err)
		sink.err = err
	}
}

// Err returns the first error met computing or storing a statistic.
func (sink *Sink) Err() error {
	return sink.err
}

// Last returns the most recently computed statistic.
func (sink *Sink) Last() Statistic {
	return sink.last
}

// Sizes returns the cluster size histogram accumulated over every computed statistic.
func (sink *Sink) Sizes() *SizeHistogram {
	return sink.sizes
}

// NumRecords returns the number of records appended to the store.
func (sink *Sink) NumRecords() int {
	return sink.records
}

// Summary renders the statistic on one line.
func (st *Statistic) Summary() string {
	return fmt.Sprintf("%s vertices (+%s -%s), %s clusters, free %s%% (mean size %s / %s), infected %s%% in %s intervals (mean %s, max %s)",
		humanize.Comma(int64(st.Vertices)),
		humanize.Comma(int64(st.Infections)),
		humanize.Comma(int64(st.Recoveries)),
		humanize.Comma(int64(st.Clusters)),
		humanize.FtoaWithDigits(100*st.FreeRatio, 1),
		humanize.FtoaWithDigits(st.MeanFreeSize, 2),
		humanize.FtoaWithDigits(st.MeanSize, 2),
		humanize.FtoaWithDigits(100*st.InfectedFrac, 1),
		humanize.Comma(int64(st.Intervals)),
		humanize.FtoaWithDigits(st.MeanDuration, 3),
		humanize.FtoaWithDigits(st.MaxDuration, 3),
	)
}
