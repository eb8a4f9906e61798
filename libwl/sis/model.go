package sis

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// Params are the physical parameters of an infection/recovery model.
type Params struct {
	Beta      float64 // extent of the time axis
	Infection float64 // transmission rate per edge
	Recovery  float64 // recovery rate per site
	Field     float64 // weight per unit of infected time
	Periodic  bool    // join each site's final boundary to its initial boundary
}

// DefaultParams returns the parameters the wlmc command line starts from.
func DefaultParams() Params {
	return Params{
		Beta:      4,
		Infection: 1,
		Recovery:  1,
		Field:     0.1,
	}
}

func (p *Params) Validate() error {
	if !(p.Beta > 0) || math.IsInf(p.Beta, 0) {
		return errors.Wrapf(wlmc.ErrBadParams, "beta must be positive and finite (got %v)", p.Beta)
	}
	for _, rate := range [...]struct {
		name string
		val  float64
	}{
		{"infection", p.Infection},
		{"recovery", p.Recovery},
		{"field", p.Field},
	} {
		if !(rate.val >= 0) || math.IsInf(rate.val, 0) {
			return errors.Wrapf(wlmc.ErrBadParams, "%s must be >= 0 and finite (got %v)", rate.name, rate.val)
		}
	}
	return nil
}

// Model is the reference infection/recovery model on a lattice of N sites and E edges.
//
// Bond layout:
//
//	[0, N)            subtype 7 (cut) on site i
//	[N, 2N)           subtype 8 (cut) on site i-N
//	2N + 6k + m       subtype m+1 on edge k; odd subtypes transmit Edges[k][0] -> Edges[k][1], even the reverse
type Model struct {
	params    Params
	lattice   Lattice
	bonds     []wlmc.Bond
	siteBonds [][]wlmc.BondID
	siteRate  []float64
	patterns  [9]wlmc.LinkPattern
}

var _ wlmc.Model = (*Model)(nil)

// NewModel validates the given parameters and lattice and lays out the bond table.
func NewModel(params Params, L *Lattice) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if L == nil {
		return nil, errors.Wrap(wlmc.ErrBadLattice, "nil lattice")
	}
	if err := L.Validate(); err != nil {
		return nil, err
	}

	N := L.NumSites
	m := &Model{
		params: params,
		lattice: Lattice{
			NumSites: N,
			Edges:    append([][2]wlmc.SiteID(nil), L.Edges...),
		},
		bonds:     make([]wlmc.Bond, 0, 2*N+6*len(L.Edges)),
		siteBonds: make([][]wlmc.BondID, N),
		siteRate:  make([]float64, N),
	}

	for _, st := range [...]wlmc.Subtype{7, 8} {
		for i := 0; i < N; i++ {
			b := wlmc.BondID(len(m.bonds))
			m.bonds = append(m.bonds, wlmc.Bond{
				Sites:   [2]wlmc.SiteID{wlmc.SiteID(i), wlmc.SiteID(i)},
				Arity:   1,
				Subtype: st,
				Weight:  params.Recovery / 2,
			})
			m.siteBonds[i] = append(m.siteBonds[i], b)
			m.siteRate[i] += params.Recovery / 2
		}
	}

	for _, e := range m.lattice.Edges {
		owner := e[0]
		for st := wlmc.Subtype(1); st <= 6; st++ {
			b := wlmc.BondID(len(m.bonds))
			m.bonds = append(m.bonds, wlmc.Bond{
				Sites:   e,
				Arity:   2,
				Subtype: st,
				Weight:  params.Infection / 3,
			})
			m.siteBonds[owner] = append(m.siteBonds[owner], b)
		}
		m.siteRate[owner] += 2 * params.Infection
	}

	odd := wlmc.LinkPattern{
		Links: []wlmc.Link{
			{A: wlmc.SlotIn0, B: wlmc.SlotOut0},
			{A: wlmc.SlotIn0, B: wlmc.SlotOut1},
		},
	}
	even := wlmc.LinkPattern{
		Links: []wlmc.Link{
			{A: wlmc.SlotIn1, B: wlmc.SlotOut1},
			{A: wlmc.SlotIn1, B: wlmc.SlotOut0},
		},
	}
	for st := wlmc.Subtype(1); st <= 6; st += 2 {
		m.patterns[st] = odd
		m.patterns[st+1] = even
	}
	return m, nil
}

func (m *Model) Params() Params {
	return m.params
}

func (m *Model) Lattice() *Lattice {
	return &m.lattice
}

func (m *Model) NumSites() int {
	return m.lattice.NumSites
}

func (m *Model) NumBonds() int {
	return len(m.bonds)
}

func (m *Model) Bond(b wlmc.BondID) wlmc.Bond {
	return m.bonds[b]
}

func (m *Model) Pattern(st wlmc.Subtype) *wlmc.LinkPattern {
	if !st.Valid() {
		return nil
	}
	return &m.patterns[st]
}

func (m *Model) Family(b wlmc.BondID) [3]wlmc.BondID {
	first := wlmc.BondID(2 * m.lattice.NumSites)
	if b < first {
		return [3]wlmc.BondID{b, b, b}
	}
	base := b - (b-first)%6 + (b-first)%2
	return [3]wlmc.BondID{base, base + 2, base + 4}
}

func (m *Model) SiteWeight(site wlmc.SiteID) float64 {
	return m.siteRate[site]
}

func (m *Model) SiteBonds(site wlmc.SiteID) []wlmc.BondID {
	return m.siteBonds[site]
}

func (m *Model) Beta() float64 {
	return m.params.Beta
}

// Insertable admits cut vertices anywhere and edge vertices only between sites in the same state.
func (m *Model) Insertable(b wlmc.BondID, states [2]wlmc.State) bool {
	bond := &m.bonds[b]
	if bond.Arity == 1 {
		return true
	}
	return states[0] == states[1]
}

func (m *Model) SegmentWeight(site wlmc.SiteID, dt float64) float64 {
	return m.params.Field * dt
}

// FlipProbability is the heat bath probability for a cluster whose infected weight is exp(-weight).
func (m *Model) FlipProbability(weight float64, current wlmc.State) float64 {
	pInfected := 1 / (1 + math.Exp(weight))
	if current == wlmc.Infected {
		return 1 - pInfected
	}
	return pInfected
}

func (m *Model) Periodic() bool {
	return m.params.Periodic
}

// Fingerprint returns a hex SHA3-256 digest of the parameters and lattice, identifying the model in stored records.
func (m *Model) Fingerprint() string {
	h := sha3.New256()
	var scrap [8]byte

	for _, f := range [...]float64{m.params.Beta, m.params.Infection, m.params.Recovery, m.params.Field} {
		binary.LittleEndian.PutUint64(scrap[:], math.Float64bits(f))
		h.Write(scrap[:])
	}
	if m.params.Periodic {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	binary.LittleEndian.PutUint64(scrap[:], uint64(m.lattice.NumSites))
	h.Write(scrap[:])
	for _, e := range m.lattice.Edges {
		binary.LittleEndian.PutUint32(scrap[:4], uint32(e[0]))
		binary.LittleEndian.PutUint32(scrap[4:], uint32(e[1]))
		h.Write(scrap[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
