package sis

import (
	"fmt"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
)

// Lattice is the contact graph of a model: NumSites sites joined by undirected edges.
// Edges[k][0] is the edge's first endpoint, which carries the edge's insertion weight.
type Lattice struct {
	NumSites int
	Edges    [][2]wlmc.SiteID
}

// Validate checks that every edge joins two distinct sites in range.
func (L *Lattice) Validate() error {
	if L.NumSites <= 0 {
		return errors.Wrapf(wlmc.ErrBadLattice, "lattice needs at least one site (got %d)", L.NumSites)
	}
	for k, e := range L.Edges {
		for _, s := range e {
			if s < 0 || int(s) >= L.NumSites {
				return errors.Wrapf(wlmc.ErrBadLattice, "edge %d references site %d of %d", k, s, L.NumSites)
			}
		}
		if e[0] == e[1] {
			return errors.Wrapf(wlmc.ErrBadLattice, "edge %d is a self loop on site %d", k, e[0])
		}
	}
	return nil
}

// Degree returns the number of edges incident to each site.
func (L *Lattice) Degree() []int {
	deg := make([]int, L.NumSites)
	for _, e := range L.Edges {
		deg[e[0]]++
		deg[e[1]]++
	}
	return deg
}

// String renders the lattice as a one-based edge list that ParseLattice reads back.
func (L *Lattice) String() string {
	buf := make([]byte, 0, 8*len(L.Edges)+8)
	for k, e := range L.Edges {
		if k > 0 {
			buf = append(buf, ", "...)
		}
		buf = fmt.Appendf(buf, "%d-%d", e[0]+1, e[1]+1)
	}
	return string(buf)
}

// Chain returns an open chain of n sites: 0-1-2-...-(n-1).
func Chain(n int) (*Lattice, error) {
	if n < 1 {
		return nil, errors.Wrapf(wlmc.ErrBadLattice, "chain needs at least one site (got %d)", n)
	}
	L := &Lattice{
		NumSites: n,
		Edges:    make([][2]wlmc.SiteID, 0, n-1),
	}
	for i := 1; i < n; i++ {
		L.Edges = append(L.Edges, [2]wlmc.SiteID{wlmc.SiteID(i - 1), wlmc.SiteID(i)})
	}
	return L, nil
}

// Ring returns a closed chain of n sites; n must be at least 3.
func Ring(n int) (*Lattice, error) {
	if n < 3 {
		return nil, errors.Wrapf(wlmc.ErrBadLattice, "ring needs at least 3 sites (got %d)", n)
	}
	L, _ := Chain(n)
	L.Edges = append(L.Edges, [2]wlmc.SiteID{wlmc.SiteID(n - 1), 0})
	return L, nil
}

// Grid returns a w x h square lattice with sites numbered row by row.
// If periodic is set, each row and column wraps around; that requires w and h of at least 3.
func Grid(w, h int, periodic bool) (*Lattice, error) {
	if w < 1 || h < 1 {
		return nil, errors.Wrapf(wlmc.ErrBadLattice, "grid %dx%d is empty", w, h)
	}
	if periodic && (w < 3 || h < 3) {
		return nil, errors.Wrapf(wlmc.ErrBadLattice, "periodic grid %dx%d needs both sides >= 3", w, h)
	}

	at := func(x, y int) wlmc.SiteID {
		return wlmc.SiteID(y*w + x)
	}

	L := &Lattice{
		NumSites: w * h,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+1 < w {
				L.Edges = append(L.Edges, [2]wlmc.SiteID{at(x, y), at(x+1, y)})
			} else if periodic {
				L.Edges = append(L.Edges, [2]wlmc.SiteID{at(x, y), at(0, y)})
			}
			if y+1 < h {
				L.Edges = append(L.Edges, [2]wlmc.SiteID{at(x, y), at(x, y+1)})
			} else if periodic {
				L.Edges = append(L.Edges, [2]wlmc.SiteID{at(x, y), at(x, 0)})
			}
		}
	}
	return L, nil
}
