package snapshot

import (
	"io"

	"github.com/2x3systems/worldline/libwl"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"
)

// Snapshot is the machine readable form of a configuration.
type Snapshot struct {
	NumSites  int            `json:"num_sites"`
	Beta      float64        `json:"beta"`
	Periodic  bool           `json:"periodic"`
	Initial   string         `json:"initial"` // one S or I per site
	Final     string         `json:"final"`
	LogWeight float64        `json:"log_weight"`
	Vertices  []VertexRecord `json:"vertices"`
}

type VertexRecord struct {
	Time    float64       `json:"t"`
	Bond    wlmc.BondID   `json:"bond"`
	Subtype wlmc.Subtype  `json:"subtype"`
	Sites   []wlmc.SiteID `json:"sites"`
	Legs    [4]wlmc.State `json:"legs"`
	Kind    string        `json:"kind,omitempty"`
}

// Capture copies the configuration of the given view.
func Capture(view wlmc.ClusterView) *Snapshot {
	m := view.Model()
	seq := view.Vertices()
	snap := &Snapshot{
		NumSites:  m.NumSites(),
		Beta:      m.Beta(),
		Periodic:  m.Periodic(),
		Initial:   FormatStates(view.InitialStates()),
		Final:     FormatStates(view.FinalStates()),
		LogWeight: libwl.LogWeight(view),
		Vertices:  make([]VertexRecord, len(seq)),
	}
	for vi := range seq {
		v := &seq[vi]
		bond := m.Bond(v.Bond)
		rec := &snap.Vertices[vi]
		rec.Time = v.Time
		rec.Bond = v.Bond
		rec.Subtype = bond.Subtype
		rec.Sites = append([]wlmc.SiteID(nil), bond.Sites[:bond.Arity]...)
		rec.Legs = v.Legs
		if kind := v.Kind(bond.Arity); kind != wlmc.KindNone {
			rec.Kind = kind.String()
		}
	}
	return snap
}

// InitialStates parses the initial boundary states of the snapshot.
func (snap *Snapshot) InitialStates() ([]wlmc.State, error) {
	return ParseStates(snap.Initial)
}

// FormatStates renders states as a string of S and I.
func FormatStates(states []wlmc.State) string {
	buf := make([]byte, len(states))
	for i, s := range states {
		buf[i] = s.String()[0]
	}
	return string(buf)
}

// ParseStates reads a string written by FormatStates.
func ParseStates(str string) ([]wlmc.State, error) {
	states := make([]wlmc.State, len(str))
	for i := 0; i < len(str); i++ {
		switch str[i] {
		case 'S':
			states[i] = wlmc.Susceptible
		case 'I':
			states[i] = wlmc.Infected
		default:
			return nil, errors.Wrapf(wlmc.ErrBadInitialState, "state %q at %d", str[i], i)
		}
	}
	return states, nil
}

// Sequence returns the vertices of the snapshot, ready for WorldLine.Load.
func (snap *Snapshot) Sequence() []wlmc.Vertex {
	seq := make([]wlmc.Vertex, len(snap.Vertices))
	for i, rec := range snap.Vertices {
		seq[i] = wlmc.Vertex{
			Time: rec.Time,
			Bond: rec.Bond,
			Legs: rec.Legs,
		}
	}
	return seq
}

// Check reports if the snapshot was taken on a model of the same shape as m.
func (snap *Snapshot) Check(m wlmc.Model) error {
	if snap.NumSites != m.NumSites() || snap.Beta != m.Beta() || snap.Periodic != m.Periodic() || len(snap.Initial) != snap.NumSites {
		return errors.Wrapf(wlmc.ErrBadSequence, "snapshot of %d sites (beta=%g) does not fit model of %d sites (beta=%g)",
			snap.NumSites, snap.Beta, m.NumSites(), m.Beta())
	}
	for i, rec := range snap.Vertices {
		if rec.Bond < 0 || int(rec.Bond) >= m.NumBonds() {
			return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d has bond %d", i, rec.Bond)
		}
		if m.Bond(rec.Bond).Subtype != rec.Subtype {
			return errors.Wrapf(wlmc.ErrBadSequence, "vertex %d: bond %d is not subtype %d", i, rec.Bond, rec.Subtype)
		}
	}
	return nil
}

func (snap *Snapshot) WriteJSON(out io.Writer) error {
	buf, err := sonnet.Marshal(snap)
	if err != nil {
		return err
	}
	buf = append(buf, '\n')
	_, err = out.Write(buf)
	return err
}

// WriteJSON writes the configuration of the given view as a single JSON document.
func WriteJSON(out io.Writer, view wlmc.ClusterView) error {
	return Capture(view).WriteJSON(out)
}

// ReadJSON reads a snapshot written by WriteJSON.
func ReadJSON(in io.Reader) (*Snapshot, error) {
	buf, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	if err = sonnet.Unmarshal(buf, snap); err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	return snap, nil
}
