package main

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/2x3systems/worldline/libwl"
	"github.com/2x3systems/worldline/libwl/diag"
	"github.com/2x3systems/worldline/libwl/sis"
	"github.com/2x3systems/worldline/libwl/snapshot"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// runResult is what a native run leaves behind once its sweeps are done.
type runResult struct {
	RunID   string
	Tally   wlmc.EventTally // tallied over the measured sweeps only
	Records []diag.Record
	Sizes   []diag.SizeCount
	World   *libwl.WorldLine
}

// runNative thermalizes and then measures a world-line for the configured model, recording a cluster
// statistic every cfg.StatsEvery measured sweeps.
func runNative(ctx context.Context, cfg Config) (*runResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	L, err := cfg.BuildLattice()
	if err != nil {
		return nil, err
	}
	model, err := sis.NewModel(cfg.Params(), L)
	if err != nil {
		return nil, err
	}
	w, err := libwl.NewWorldLine(model, make([]wlmc.State, model.NumSites()))
	if err != nil {
		return nil, err
	}

	store, err := diag.NewStore(cfg.StatsKind, cfg.StatsPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	klog.Infof("model %.12s: %d sites, %d bonds, beta=%g", model.Fingerprint(), model.NumSites(), model.NumBonds(), model.Beta())

	rng := rand.New(rand.NewSource(cfg.Seed))
	res := &runResult{
		World: w,
	}

	startTime := time.Now()
	for i := 0; i < cfg.Thermalize; i++ {
		if err = w.Sweep(rng, &res.Tally, nil); err != nil {
			return nil, errors.Wrapf(err, "thermalization sweep %d", i)
		}
	}
	res.Tally.Reset()

	sink := diag.NewSink(ctx, store, diag.Opts{
		ModelKey: model.Fingerprint(),
		Every:    cfg.StatsEvery,
	})
	res.RunID = sink.RunID()

	for i := 0; i < cfg.Sweeps; i++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = w.Sweep(rng, &res.Tally, sink); err != nil {
			return nil, errors.Wrapf(err, "sweep %d", i)
		}
	}

	klog.Infof("%s sweeps in %v: %s infections, %s recoveries, %s vertices",
		humanize.Comma(int64(cfg.Thermalize+cfg.Sweeps)),
		time.Since(startTime).Round(time.Millisecond),
		humanize.Comma(res.Tally.Infections),
		humanize.Comma(res.Tally.Recoveries),
		humanize.Comma(int64(w.NumVertices())))

	if err = sink.Err(); err != nil {
		klog.Warningf("statistics incomplete for run %s: %v", res.RunID, err)
	}
	res.Sizes = sink.Sizes().Counts()
	if res.Records, err = store.Records(ctx, res.RunID); err != nil {
		return nil, err
	}
	klog.Infof("run %s: %d statistic records (%s store)", res.RunID, len(res.Records), cfg.StatsKind)

	if err = writeSnapshots(cfg, w); err != nil {
		return nil, err
	}
	return res, nil
}

func writeSnapshots(cfg Config, w *libwl.WorldLine) error {
	if cfg.Snapshot != "" {
		err := writeFile(cfg.Snapshot, func(file *os.File) error {
			return snapshot.Show(file, w, snapshot.PrintOpts{
				Label:    filepath.Base(cfg.Snapshot) + " ",
				Vertices: true,
				Sites:    true,
			})
		})
		if err != nil {
			return err
		}
	}
	if cfg.SnapshotJSON != "" {
		err := writeFile(cfg.SnapshotJSON, func(file *os.File) error {
			return snapshot.WriteJSON(file, w)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(pathname string, write func(file *os.File) error) error {
	os.MkdirAll(filepath.Dir(pathname), 0700)
	file, err := os.OpenFile(pathname, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot file")
	}
	err = write(file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to write snapshot %q", pathname)
	}
	klog.Infof("wrote %s", pathname)
	return nil
}
