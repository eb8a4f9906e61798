package wlmc

const (

	// LegsPerVertex is the number of leg slots reserved per vertex; a one-site vertex only uses SlotIn0 and SlotOut0.
	LegsPerVertex = 4

	// MaxVertices bounds the length of a vertex sequence.  Growing past it is a fatal sweep error.
	MaxVertices = 1 << 28
)

// SiteID is a zero-based lattice site index.
type SiteID int32

// BondID is a zero-based index into a Model's bond table.
type BondID int32

// LegID is a flat leg identifier: (vertex ordinal * LegsPerVertex) + Slot for vertex legs.
// Boundary legs follow all vertex legs: initial boundary legs first, then final boundary legs.
type LegID int32

// State is the discrete state a site carries along its world-line.
type State uint8

const (
	Susceptible State = 0
	Infected    State = 1
)

func (s State) Flip() State {
	return s ^ 1
}

func (s State) String() string {
	return [...]string{"S", "I"}[s&1]
}

// Slot names a leg position on a vertex: incidence k has its incoming leg at k and its outgoing leg at 2+k.
type Slot uint8

const (
	SlotIn0  Slot = 0
	SlotIn1  Slot = 1
	SlotOut0 Slot = 2
	SlotOut1 Slot = 3
)

// InSlot returns the incoming leg slot of the given incidence (0 or 1).
func InSlot(incidence int) Slot {
	return Slot(incidence)
}

// OutSlot returns the outgoing leg slot of the given incidence (0 or 1).
func OutSlot(incidence int) Slot {
	return Slot(2 + incidence)
}

// Subtype is one of the 8 bond subtypes; it selects the linking pattern and the resampling family of a bond.
type Subtype uint8

// Family groups subtypes that the bond resampler may exchange.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyOdd         // 1, 3, 5
	FamilyEven        // 2, 4, 6
	FamilyPair        // 7, 8 (partners are offset by the site count)
)

func (st Subtype) Valid() bool {
	return st >= 1 && st <= 8
}

func (st Subtype) Family() Family {
	if int(st) >= 9 {
		return FamilyNone
	}
	return [...]Family{
		FamilyNone,
		FamilyOdd, FamilyEven,
		FamilyOdd, FamilyEven,
		FamilyOdd, FamilyEven,
		FamilyPair, FamilyPair,
	}[st]
}

// Bond is a static coupling between one or two sites.
type Bond struct {
	Sites   [2]SiteID // Sites[1] is unused when Arity == 1
	Arity   uint8     // 1 or 2
	Subtype Subtype   // 1..8
	Weight  float64   // insertion rate of this bond
}

// Link joins two legs of the same vertex and contributes Weight to the cluster they end up in.
type Link struct {
	A, B   Slot
	Weight float64
}

// LinkPattern is the row of the linking table selected by a bond subtype.
type LinkPattern struct {
	Links []Link
}

// Kind classifies a vertex by the state change it carries.
type Kind uint8

const (
	KindNone Kind = iota
	KindInfection
	KindRecovery
)

func (k Kind) String() string {
	return [...]string{"none", "infection", "recovery"}[k]
}

// Vertex is a time-stamped event acting on the site(s) of one bond.
type Vertex struct {
	Time float64
	Bond BondID
	Legs [LegsPerVertex]State // indexed by Slot
}

// Changed reports if any incidence of this vertex leaves its site in a different state.
func (v *Vertex) Changed(arity uint8) bool {
	for k := 0; k < int(arity); k++ {
		if v.Legs[InSlot(k)] != v.Legs[OutSlot(k)] {
			return true
		}
	}
	return false
}

// Kind returns the kind of the first incidence that changes state.
func (v *Vertex) Kind(arity uint8) Kind {
	for k := 0; k < int(arity); k++ {
		in, out := v.Legs[InSlot(k)], v.Legs[OutSlot(k)]
		if in != out {
			if out == Infected {
				return KindInfection
			}
			return KindRecovery
		}
	}
	return KindNone
}

// EventTally accumulates infection and recovery counts across sweeps.
type EventTally struct {
	Infections int64
	Recoveries int64
}

func (tally *EventTally) Add(kind Kind) {
	switch kind {
	case KindInfection:
		tally.Infections++
	case KindRecovery:
		tally.Recoveries++
	}
}

func (tally *EventTally) Reset() {
	*tally = EventTally{}
}

// Rand is a sequential source of uniform variates on [0, 1).  *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Model is the immutable description of sites, bonds and the rules binding them.
// It is shared read-only by every stage of a sweep.
type Model interface {

	// NumSites returns the number of lattice sites (also the offset between pair subtypes 7 and 8).
	NumSites() int

	// NumBonds returns the size of the bond table.
	NumBonds() int

	// Bond returns the static description of the given bond.
	Bond(b BondID) Bond

	// Pattern returns the linking table row for the given subtype.
	Pattern(st Subtype) *LinkPattern

	// Family returns the three exchangeable members of the odd or even family that b belongs to.
	Family(b BondID) [3]BondID

	// SiteWeight is the insertion weight of a site: the total rate of the bonds in SiteBonds(site).
	SiteWeight(site SiteID) float64

	// SiteBonds lists the bonds a candidate drawn at the given site may be inserted on.
	SiteBonds(site SiteID) []BondID

	// Beta is the extent of the time axis, [0, Beta).
	Beta() float64

	// Insertable reports if a null vertex on bond b may be inserted where its sites carry the given states.
	Insertable(b BondID, states [2]State) bool

	// SegmentWeight is the weight a world-line segment of length dt on the given site adds to its cluster.
	SegmentWeight(site SiteID, dt float64) float64

	// FlipProbability returns the probability that a cluster of the given (nonzero) weight, currently in
	// the given state, is flipped.
	FlipProbability(weight float64, current State) float64

	// Periodic reports if each site's final boundary is joined to its initial boundary.
	Periodic() bool
}

// ClusterView exposes the world-line and its cluster decomposition read-only.
type ClusterView interface {
	Model() Model

	// Vertices returns the active sequence.  Callers must not retain or mutate it.
	Vertices() []Vertex

	// NumLegs returns the size of the leg id space, boundary legs included.
	NumLegs() int

	// Root returns the cluster representative of the given leg.
	Root(leg LegID) LegID

	// Weight returns the aggregate weight of the cluster with the given root.
	Weight(root LegID) float64

	InitialLeg(site SiteID) LegID
	FinalLeg(site SiteID) LegID

	InitialStates() []State
	FinalStates() []State

	// ClustersValid reports if Root and Weight describe the current active sequence.
	ClustersValid() bool
}

// ClusterObserver receives a freshly built cluster decomposition, before any cluster is flipped.
type ClusterObserver interface {
	ObserveClusters(view ClusterView)
}

// FormLegID returns the leg id for the given vertex ordinal and slot.
func FormLegID(vtx int, slot Slot) LegID {
	return LegID(vtx*LegsPerVertex + int(slot))
}

// VtxAndSlot splits a vertex leg id into its vertex ordinal and slot.
func (leg LegID) VtxAndSlot() (vtx int, slot Slot) {
	return int(leg) / LegsPerVertex, Slot(int(leg) % LegsPerVertex)
}
