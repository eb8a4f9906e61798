package libwl_test

import (
	"math"

	"github.com/2x3systems/worldline/wlmc"
)

// toyModel is a table-driven model of isolated sites: bonds [0,N) are subtype 7 and [N,2N) subtype 8 on site i.
type toyModel struct {
	n          int
	beta       float64
	bonds      []wlmc.Bond
	patterns   [9]wlmc.LinkPattern
	field      []float64
	periodic   bool
	family     func(b wlmc.BondID) [3]wlmc.BondID
	insertable func(b wlmc.BondID, states [2]wlmc.State) bool
	siteExtra  float64 // added to site 0's weight on top of its bond weights

	insertCalls int
}

func newToyModel(n int, beta, rate float64) *toyModel {
	m := &toyModel{
		n:     n,
		beta:  beta,
		field: make([]float64, n),
	}
	for _, st := range [...]wlmc.Subtype{7, 8} {
		for i := 0; i < n; i++ {
			m.bonds = append(m.bonds, wlmc.Bond{
				Sites:   [2]wlmc.SiteID{wlmc.SiteID(i), wlmc.SiteID(i)},
				Arity:   1,
				Subtype: st,
				Weight:  rate / 2,
			})
		}
	}
	for st := range m.patterns {
		m.patterns[st].Links = []wlmc.Link{{A: wlmc.SlotIn0, B: wlmc.SlotOut0}}
	}
	return m
}

func (m *toyModel) NumSites() int { return m.n }
func (m *toyModel) NumBonds() int { return len(m.bonds) }
func (m *toyModel) Bond(b wlmc.BondID) wlmc.Bond { return m.bonds[b] }
func (m *toyModel) Beta() float64 { return m.beta }
func (m *toyModel) Periodic() bool { return m.periodic }
func (m *toyModel) Pattern(st wlmc.Subtype) *wlmc.LinkPattern {
	if !st.Valid() {
		return nil
	}
	return &m.patterns[st]
}

func (m *toyModel) Family(b wlmc.BondID) [3]wlmc.BondID {
	if m.family != nil {
		return m.family(b)
	}
	return [3]wlmc.BondID{b, b, b}
}

func (m *toyModel) SiteBonds(site wlmc.SiteID) []wlmc.BondID {
	var bonds []wlmc.BondID
	for b := range m.bonds {
		if m.bonds[b].Sites[0] == site {
			bonds = append(bonds, wlmc.BondID(b))
		}
	}
	return bonds
}

func (m *toyModel) SiteWeight(site wlmc.SiteID) float64 {
	total := 0.0
	if site == 0 {
		total = m.siteExtra
	}
	for _, b := range m.SiteBonds(site) {
		total += m.bonds[b].Weight
	}
	return total
}

func (m *toyModel) Insertable(b wlmc.BondID, states [2]wlmc.State) bool {
	m.insertCalls++
	if m.insertable != nil {
		return m.insertable(b, states)
	}
	return true
}

func (m *toyModel) SegmentWeight(site wlmc.SiteID, dt float64) float64 {
	return m.field[site] * dt
}

func (m *toyModel) FlipProbability(weight float64, current wlmc.State) float64 {
	pInfected := 1 / (1 + math.Exp(weight))
	if current == wlmc.Infected {
		return 1 - pInfected
	}
	return pInfected
}

// scriptRand replays a fixed list of variates (cycling) and counts the draws made.
type scriptRand struct {
	vals  []float64
	draws int
}

func (r *scriptRand) Float64() float64 {
	u := r.vals[r.draws%len(r.vals)]
	r.draws++
	return u
}

// countingRand counts the draws made from an underlying source.
type countingRand struct {
	src   wlmc.Rand
	draws int
}

func (r *countingRand) Float64() float64 {
	r.draws++
	return r.src.Float64()
}

// nullVertex leaves site state s unchanged on incidence 0 of bond b.
func nullVertex(t float64, b wlmc.BondID, s wlmc.State) wlmc.Vertex {
	return eventVertex(t, b, s, s)
}

func eventVertex(t float64, b wlmc.BondID, from, to wlmc.State) wlmc.Vertex {
	v := wlmc.Vertex{
		Time: t,
		Bond: b,
	}
	v.Legs[wlmc.SlotIn0] = from
	v.Legs[wlmc.SlotOut0] = to
	return v
}
