package libwl

import (
	"math"
	"sort"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
)

const initialSeqCapacity = 64

// WorldLine owns the double-buffered vertex sequence, the per-site boundary states, and the cluster scratch
// arrays of one simulation.  Every mutating stage reads the active buffer and writes the other one.
type WorldLine struct {
	model    wlmc.Model
	numSites int
	beta     float64

	seqA    []wlmc.Vertex
	seqB    []wlmc.Vertex
	activeB bool // set when seqB is the active sequence

	istate []wlmc.State // initial (time 0) boundary state per site
	pstate []wlmc.State // final (projected, time beta) boundary state per site

	// Cluster scratch -- rebuilt from scratch by BuildClusters, consumed by Flip
	parent        []wlmc.LegID
	rank          []uint8
	weight        []float64
	decision      []int8 // per root: -1 undecided, 0 keep, 1 flip
	lastTouch     []wlmc.LegID
	lastTime      []float64
	firstLeg      []wlmc.LegID
	clustersValid bool

	// Insertion scratch
	work       []wlmc.State
	candidates []candidate
	siteCDF    []float64
	totalRate  float64
}

// NewWorldLine validates m and returns an empty world-line whose sites all start (and end) in the given states.
func NewWorldLine(m wlmc.Model, initial []wlmc.State) (*WorldLine, error) {
	if err := ValidateModel(m); err != nil {
		return nil, err
	}
	N := m.NumSites()
	if len(initial) != N {
		return nil, errors.Wrapf(wlmc.ErrBadInitialState, "got %d states for %d sites", len(initial), N)
	}

	w := &WorldLine{
		model:     m,
		numSites:  N,
		beta:      m.Beta(),
		seqA:      make([]wlmc.Vertex, 0, initialSeqCapacity),
		seqB:      make([]wlmc.Vertex, 0, initialSeqCapacity),
		istate:    make([]wlmc.State, N),
		pstate:    make([]wlmc.State, N),
		lastTouch: make([]wlmc.LegID, N),
		lastTime:  make([]float64, N),
		firstLeg:  make([]wlmc.LegID, N),
		work:      make([]wlmc.State, N),
		siteCDF:   make([]float64, N),
	}
	copy(w.istate, initial)
	copy(w.pstate, initial)

	total := 0.0
	for i := 0; i < N; i++ {
		total += m.SiteWeight(wlmc.SiteID(i))
		w.siteCDF[i] = total
	}
	w.totalRate = total

	return w, nil
}

// ValidateModel rejects models whose bond table or linking table cannot be driven by the sweep stages.
func ValidateModel(m wlmc.Model) error {
	if m == nil {
		return errors.Wrap(wlmc.ErrBadModel, "nil model")
	}
	N := m.NumSites()
	numBonds := m.NumBonds()
	if N < 0 || numBonds < 0 {
		return errors.Wrapf(wlmc.ErrBadModel, "negative size (sites=%d, bonds=%d)", N, numBonds)
	}
	if !(m.Beta() >= 0) {
		return errors.Wrapf(wlmc.ErrBadModel, "beta must be >= 0 (got %v)", m.Beta())
	}

	for bi := 0; bi < numBonds; bi++ {
		b := wlmc.BondID(bi)
		bond := m.Bond(b)
		if !bond.Subtype.Valid() {
			return errors.Wrapf(wlmc.ErrBadSubtype, "bond %d has subtype %d", bi, bond.Subtype)
		}
		if bond.Arity < 1 || bond.Arity > 2 {
			return errors.Wrapf(wlmc.ErrBadBond, "bond %d has arity %d", bi, bond.Arity)
		}
		for k := 0; k < int(bond.Arity); k++ {
			if s := bond.Sites[k]; s < 0 || int(s) >= N {
				return errors.Wrapf(wlmc.ErrBadBond, "bond %d references site %d", bi, s)
			}
		}
		if bond.Arity == 2 && bond.Sites[0] == bond.Sites[1] {
			return errors.Wrapf(wlmc.ErrBadBond, "bond %d joins site %d to itself", bi, bond.Sites[0])
		}
		if bond.Weight < 0 {
			return errors.Wrapf(wlmc.ErrBadBond, "bond %d has negative weight", bi)
		}

		pat := m.Pattern(bond.Subtype)
		if pat == nil {
			return errors.Wrapf(wlmc.ErrBadModel, "no linking pattern for subtype %d", bond.Subtype)
		}
		for _, link := range pat.Links {
			if !slotInUse(link.A, bond.Arity) || !slotInUse(link.B, bond.Arity) {
				return errors.Wrapf(wlmc.ErrBadModel, "subtype %d links slot %d-%d on a %d-site bond", bond.Subtype, link.A, link.B, bond.Arity)
			}
			if link.Weight < 0 {
				return errors.Wrapf(wlmc.ErrBadModel, "subtype %d has a negative link weight", bond.Subtype)
			}
		}

		switch bond.Subtype.Family() {
		case wlmc.FamilyPair:
			partner := b + wlmc.BondID(N)
			if bond.Subtype == 8 {
				partner = b - wlmc.BondID(N)
			}
			if partner < 0 || int(partner) >= numBonds {
				return errors.Wrapf(wlmc.ErrBadFamily, "bond %d has no pair partner at %d", bi, partner)
			}
			other := m.Bond(partner)
			if other.Subtype.Family() != wlmc.FamilyPair || other.Subtype == bond.Subtype || other.Sites != bond.Sites || other.Arity != bond.Arity {
				return errors.Wrapf(wlmc.ErrBadFamily, "bond %d and %d are not a 7/8 pair", bi, partner)
			}
		default:
			found := false
			for _, fb := range m.Family(b) {
				if fb < 0 || int(fb) >= numBonds {
					return errors.Wrapf(wlmc.ErrBadFamily, "bond %d lists family member %d", bi, fb)
				}
				other := m.Bond(fb)
				if other.Subtype.Family() != bond.Subtype.Family() || other.Sites != bond.Sites || other.Arity != bond.Arity {
					return errors.Wrapf(wlmc.ErrBadFamily, "bond %d and family member %d differ", bi, fb)
				}
				if fb == b {
					found = true
				}
			}
			if !found {
				return errors.Wrapf(wlmc.ErrBadFamily, "bond %d is not a member of its own family", bi)
			}
		}
	}

	for i := 0; i < N; i++ {
		site := wlmc.SiteID(i)
		if wt := m.SiteWeight(site); !(wt >= 0) {
			return errors.Wrapf(wlmc.ErrBadModel, "site %d has insertion weight %v", i, wt)
		}
		bondTotal := 0.0
		for _, b := range m.SiteBonds(site) {
			if b < 0 || int(b) >= numBonds {
				return errors.Wrapf(wlmc.ErrBadModel, "site %d lists bond %d", i, b)
			}
			bondTotal += m.Bond(b).Weight
		}
		if wt := m.SiteWeight(site); !(math.Abs(wt-bondTotal) <= siteWeightTolerance*math.Max(1, bondTotal)) {
			return errors.Wrapf(wlmc.ErrBadModel, "site %d has insertion weight %v but its bonds sum to %v", i, wt, bondTotal)
		}
	}
	return nil
}

// siteWeightTolerance is the relative slack allowed between a site's weight and the sum of its bond weights.
const siteWeightTolerance = 1e-9

func slotInUse(slot wlmc.Slot, arity uint8) bool {
	return slot < wlmc.LegsPerVertex && int(slot)%2 < int(arity)
}

// Load replaces the active sequence with a copy of the given vertices, which must be strictly time ordered and
// state-continuous with the current initial states.  Legs hold Susceptible or Infected, and slots a vertex's
// bond does not use must be zero.  The final states are derived from the sequence.
func (w *WorldLine) Load(vertices []wlmc.Vertex) error {
	if err := w.reserve(len(vertices)); err != nil {
		return err
	}

	copy(w.work, w.istate)
	prev := 0.0
	for vi := range vertices {
		v := &vertices[vi]
		if v.Bond < 0 || int(v.Bond) >= w.model.NumBonds() {
			return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d has bond %d", vi, v.Bond)
		}
		if math.IsNaN(v.Time) || v.Time < prev || v.Time >= w.beta || (vi > 0 && v.Time == prev) {
			return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d at time %v breaks time order", vi, v.Time)
		}
		prev = v.Time

		bond := w.model.Bond(v.Bond)
		for slot, st := range v.Legs {
			if st > wlmc.Infected {
				return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d has state %d on slot %d", vi, st, slot)
			}
			if st != wlmc.Susceptible && !slotInUse(wlmc.Slot(slot), bond.Arity) {
				return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d sets unused slot %d", vi, slot)
			}
		}
		for k := 0; k < int(bond.Arity); k++ {
			site := bond.Sites[k]
			if v.Legs[wlmc.InSlot(k)] != w.work[site] {
				return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d breaks continuity on site %d", vi, site)
			}
			w.work[site] = v.Legs[wlmc.OutSlot(k)]
		}
	}

	if w.model.Periodic() {
		for s := range w.work {
			if w.work[s] != w.istate[s] {
				return errors.Wrapf(wlmc.ErrBadSequence, "site %d does not return to its initial state", s)
			}
		}
	}

	dst := append(w.inactive()[:0], vertices...)
	w.swapIn(dst)
	copy(w.pstate, w.work)
	w.clustersValid = false
	return nil
}

// Active returns the active vertex sequence.
func (w *WorldLine) Active() []wlmc.Vertex {
	if w.activeB {
		return w.seqB
	}
	return w.seqA
}

func (w *WorldLine) inactive() []wlmc.Vertex {
	if w.activeB {
		return w.seqA
	}
	return w.seqB
}

// swapIn stores dst (built on top of the inactive buffer) and makes it the active sequence.
func (w *WorldLine) swapIn(dst []wlmc.Vertex) {
	if w.activeB {
		w.seqA = dst
	} else {
		w.seqB = dst
	}
	w.activeB = !w.activeB
}

// reserve grows both sequence buffers so that each holds at least n vertices, doubling capacity as needed.
func (w *WorldLine) reserve(n int) error {
	if n > wlmc.MaxVertices {
		return errors.Wrapf(wlmc.ErrSequenceOverflow, "%d vertices requested", n)
	}
	w.seqA = growSeq(w.seqA, n)
	w.seqB = growSeq(w.seqB, n)
	return nil
}

func growSeq(seq []wlmc.Vertex, n int) []wlmc.Vertex {
	if cap(seq) >= n {
		return seq
	}
	newCap := 2 * cap(seq)
	if newCap < n {
		newCap = n
	}
	if newCap > wlmc.MaxVertices {
		newCap = wlmc.MaxVertices
	}
	grown := make([]wlmc.Vertex, len(seq), newCap)
	copy(grown, seq)
	return grown
}

// ActiveIsB reports which buffer currently holds the active sequence.
func (w *WorldLine) ActiveIsB() bool {
	return w.activeB
}

// Capacity returns the capacity shared by both sequence buffers.
func (w *WorldLine) Capacity() int {
	return min(cap(w.seqA), cap(w.seqB))
}

func (w *WorldLine) NumVertices() int {
	return len(w.Active())
}

func (w *WorldLine) Model() wlmc.Model {
	return w.model
}

func (w *WorldLine) Vertices() []wlmc.Vertex {
	return w.Active()
}

func (w *WorldLine) InitialStates() []wlmc.State {
	return w.istate
}

func (w *WorldLine) FinalStates() []wlmc.State {
	return w.pstate
}

func (w *WorldLine) ClustersValid() bool {
	return w.clustersValid
}

// NumLegs returns the leg id space: LegsPerVertex per vertex plus an initial and final boundary leg per site.
func (w *WorldLine) NumLegs() int {
	return wlmc.LegsPerVertex*len(w.Active()) + 2*w.numSites
}

func (w *WorldLine) InitialLeg(site wlmc.SiteID) wlmc.LegID {
	return wlmc.LegID(wlmc.LegsPerVertex*len(w.Active()) + int(site))
}

func (w *WorldLine) FinalLeg(site wlmc.SiteID) wlmc.LegID {
	return wlmc.LegID(wlmc.LegsPerVertex*len(w.Active()) + w.numSites + int(site))
}

// Root returns the cluster representative of leg without compressing paths.
func (w *WorldLine) Root(leg wlmc.LegID) wlmc.LegID {
	for w.parent[leg] != leg {
		leg = w.parent[leg]
	}
	return leg
}

func (w *WorldLine) Weight(root wlmc.LegID) float64 {
	return w.weight[root]
}

// LegState returns the current state carried by a vertex or boundary leg.
func (w *WorldLine) LegState(leg wlmc.LegID) wlmc.State {
	seq := w.Active()
	base := wlmc.LegsPerVertex * len(seq)
	switch {
	case int(leg) < base:
		vi, slot := leg.VtxAndSlot()
		return seq[vi].Legs[slot]
	case int(leg) < base+w.numSites:
		return w.istate[int(leg)-base]
	default:
		return w.pstate[int(leg)-base-w.numSites]
	}
}

// IsLeg reports if the given vertex leg id names a slot the vertex's bond actually uses.
func (w *WorldLine) IsLeg(leg wlmc.LegID) bool {
	seq := w.Active()
	if int(leg) >= wlmc.LegsPerVertex*len(seq) {
		return int(leg) < w.NumLegs()
	}
	vi, slot := leg.VtxAndSlot()
	return slotInUse(slot, w.model.Bond(seq[vi].Bond).Arity)
}

// siteAt returns the site whose insertion weight bucket contains u (u in [0, totalRate)).
func (w *WorldLine) siteAt(u float64) wlmc.SiteID {
	i := sort.SearchFloat64s(w.siteCDF, u)
	for i < len(w.siteCDF)-1 && w.siteCDF[i] <= u {
		i++
	}
	if i >= len(w.siteCDF) {
		i = len(w.siteCDF) - 1
	}
	return wlmc.SiteID(i)
}
