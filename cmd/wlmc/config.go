package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/2x3systems/worldline/libwl/sis"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
)

// Config holds the run parameters of a native (non-script) simulation.
type Config struct {
	Lattice   string // lattice expression, "ring:N", "chain:N" or "grid:WxH"
	Beta      float64
	Infection float64
	Recovery  float64
	Field     float64
	Periodic  bool

	Sweeps     int   // measured sweeps
	Thermalize int   // sweeps run before measuring
	Seed       int64 // random stream seed

	StatsKind  string // "memory", "badger" or "sqlite"
	StatsPath  string // store path ("" keeps a badger store in memory)
	StatsEvery int    // record a statistic every this many measured sweeps

	Snapshot     string // if set, the final configuration is written here as text
	SnapshotJSON string // if set, the final configuration is written here as JSON
}

// DefaultConfig returns the configuration used for any flag not given.
func DefaultConfig() Config {
	params := sis.DefaultParams()
	return Config{
		Beta:       params.Beta,
		Infection:  params.Infection,
		Recovery:   params.Recovery,
		Field:      params.Field,
		Sweeps:     1000,
		Thermalize: 100,
		Seed:       1,
		StatsKind:  "memory",
		StatsEvery: 10,
	}
}

// BindFlags binds each field of cfg to a flag of fset, using the current field values as defaults.
func (cfg *Config) BindFlags(fset *flag.FlagSet) {
	fset.StringVar(&cfg.Lattice, "lattice", cfg.Lattice, `lattice: "ring:N", "chain:N", "grid:WxH", "torus:WxH" or an edge expression such as "1-2-3-1, 3-4"`)
	fset.Float64Var(&cfg.Beta, "beta", cfg.Beta, "extent of the time axis")
	fset.Float64Var(&cfg.Infection, "infection", cfg.Infection, "infection rate per edge")
	fset.Float64Var(&cfg.Recovery, "recovery", cfg.Recovery, "recovery rate per site")
	fset.Float64Var(&cfg.Field, "field", cfg.Field, "weight per unit time of an infected world-line segment")
	fset.BoolVar(&cfg.Periodic, "periodic", cfg.Periodic, "join each site's final boundary to its initial boundary")
	fset.IntVar(&cfg.Sweeps, "sweeps", cfg.Sweeps, "number of measured sweeps")
	fset.IntVar(&cfg.Thermalize, "thermalize", cfg.Thermalize, "number of sweeps run before measuring")
	fset.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fset.StringVar(&cfg.StatsKind, "stats", cfg.StatsKind, `statistics store: "memory", "badger" or "sqlite"`)
	fset.StringVar(&cfg.StatsPath, "stats-path", cfg.StatsPath, "statistics store path")
	fset.IntVar(&cfg.StatsEvery, "stats-every", cfg.StatsEvery, "record statistics every this many measured sweeps")
	fset.StringVar(&cfg.Snapshot, "snapshot", cfg.Snapshot, "write the final configuration as text to this file")
	fset.StringVar(&cfg.SnapshotJSON, "snapshot-json", cfg.SnapshotJSON, "write the final configuration as JSON to this file")
}

func (cfg *Config) Params() sis.Params {
	return sis.Params{
		Beta:      cfg.Beta,
		Infection: cfg.Infection,
		Recovery:  cfg.Recovery,
		Field:     cfg.Field,
		Periodic:  cfg.Periodic,
	}
}

func (cfg *Config) Validate() error {
	if cfg.Lattice == "" {
		return errors.Wrap(wlmc.ErrBadParams, "no lattice given")
	}
	if cfg.Sweeps < 0 || cfg.Thermalize < 0 {
		return errors.Wrapf(wlmc.ErrBadParams, "sweep counts must be non-negative (got %d, %d)", cfg.Thermalize, cfg.Sweeps)
	}
	if cfg.StatsEvery < 1 {
		return errors.Wrapf(wlmc.ErrBadParams, "stats-every must be positive (got %d)", cfg.StatsEvery)
	}
	params := cfg.Params()
	return params.Validate()
}

// BuildLattice forms the lattice named by cfg.Lattice: "ring:N", "chain:N", "grid:WxH", "torus:WxH",
// or else an edge expression parsed by sis.ParseLattice.
func (cfg *Config) BuildLattice() (*sis.Lattice, error) {
	kind, dims, found := strings.Cut(cfg.Lattice, ":")
	if !found {
		return sis.ParseLattice(cfg.Lattice)
	}

	var n, w, h int
	switch kind {
	case "ring", "chain":
		if _, err := fmt.Sscanf(dims, "%d", &n); err != nil {
			return nil, errors.Wrapf(wlmc.ErrBadLattice, "bad %s size %q", kind, dims)
		}
		if kind == "ring" {
			return sis.Ring(n)
		}
		return sis.Chain(n)
	case "grid", "torus":
		if _, err := fmt.Sscanf(dims, "%dx%d", &w, &h); err != nil {
			return nil, errors.Wrapf(wlmc.ErrBadLattice, "bad %s dimensions %q", kind, dims)
		}
		return sis.Grid(w, h, kind == "torus")
	}
	return nil, errors.Wrapf(wlmc.ErrBadLattice, "unknown lattice kind %q", kind)
}
