package sis

import (
	"github.com/2x3systems/worldline/wlmc"
	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
)

// LatticeExpr is a comma separated list of edge runs, e.g. "1-2-3-4-1, 2-5".  Site ids are one-based.
type LatticeExpr struct {
	Runs []*EdgeRun `parser:"(@@ (\",\" @@)*)?"`
}

type EdgeRun struct {
	Start int64      `parser:"@Int"`
	Steps []*EdgeDst `parser:"@@*"`
}

type EdgeDst struct {
	End int64 `parser:"\"-\" @Int"`
}

var parseLatticeExpr = participle.MustBuild[LatticeExpr]()

// ParseLattice reads a lattice expression.  The site count is the largest site id named; a site named only as
// a lone run start (e.g. "5") is an isolated site.
func ParseLattice(expr string) (*Lattice, error) {
	ast, err := parseLatticeExpr.ParseString("", expr)
	if err != nil {
		return nil, errors.Wrapf(wlmc.ErrBadLattice, "%q: %v", expr, err)
	}

	L := &Lattice{}
	tally := func(id int64) (wlmc.SiteID, error) {
		if id < 1 || id > wlmc.MaxVertices {
			return 0, errors.Wrapf(wlmc.ErrBadLattice, "%q: bad site id %d", expr, id)
		}
		if int(id) > L.NumSites {
			L.NumSites = int(id)
		}
		return wlmc.SiteID(id - 1), nil
	}

	for _, run := range ast.Runs {
		cur, err := tally(run.Start)
		if err != nil {
			return nil, err
		}
		for _, step := range run.Steps {
			next, err := tally(step.End)
			if err != nil {
				return nil, err
			}
			L.Edges = append(L.Edges, [2]wlmc.SiteID{cur, next})
			cur = next
		}
	}

	if err = L.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "%q", expr)
	}
	return L, nil
}
