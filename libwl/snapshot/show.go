package snapshot

import (
	"bufio"
	"fmt"
	"io"

	"github.com/2x3systems/worldline/wlmc"
)

// PrintOpts specifies what is printed when showing a world-line
type PrintOpts struct {
	Label    string // Prefix label
	Vertices bool   // If set, lists every vertex in time order
	Sites    bool   // If set, lists each site's world-line as state intervals
	Clusters bool   // If set (and clusters are current), prints the cluster root and weight of each vertex leg
}

// DefaultPrintOpts{}
var DefaultPrintOpts = PrintOpts{
	Vertices: true,
	Sites:    true,
}

// Show writes a human readable rendering of the configuration.  Sites are numbered from 1.
func Show(out io.Writer, view wlmc.ClusterView, opts PrintOpts) error {
	m := view.Model()
	seq := view.Vertices()
	N := m.NumSites()

	bw := bufio.NewWriter(out)
	fmt.Fprintf(bw, "%sworld-line: %d sites, %d vertices, beta=%g", opts.Label, N, len(seq), m.Beta())
	if m.Periodic() {
		bw.WriteString(" (periodic)")
	}
	bw.WriteString("\n")
	writeStates(bw, "  initial: ", view.InitialStates())
	writeStates(bw, "  final:   ", view.FinalStates())

	showClusters := opts.Clusters && view.ClustersValid()

	if opts.Vertices && len(seq) > 0 {
		bw.WriteString("  vertices:\n")
		for vi := range seq {
			v := &seq[vi]
			bond := m.Bond(v.Bond)
			fmt.Fprintf(bw, "    %5d  t=%-10.6f bond %-5d st %d  ", vi, v.Time, v.Bond, bond.Subtype)
			for k := 0; k < int(bond.Arity); k++ {
				if k > 0 {
					bw.WriteString(",")
				}
				fmt.Fprintf(bw, "%d:%v>%v", bond.Sites[k]+1, v.Legs[wlmc.InSlot(k)], v.Legs[wlmc.OutSlot(k)])
			}
			if kind := v.Kind(bond.Arity); kind != wlmc.KindNone {
				fmt.Fprintf(bw, "  %v", kind)
			}
			if showClusters {
				bw.WriteString("  [")
				for k := 0; k < int(bond.Arity); k++ {
					for _, slot := range [2]wlmc.Slot{wlmc.InSlot(k), wlmc.OutSlot(k)} {
						root := view.Root(wlmc.FormLegID(vi, slot))
						fmt.Fprintf(bw, " %d:%g", root, view.Weight(root))
					}
				}
				bw.WriteString(" ]")
			}
			bw.WriteString("\n")
		}
	}

	if opts.Sites && N > 0 {
		bw.WriteString("  sites:\n")
		state := append([]wlmc.State(nil), view.InitialStates()...)
		since := make([]float64, N)
		lines := make([][]byte, N)
		for s := range lines {
			lines[s] = fmt.Appendf(nil, "    %5d:", s+1)
		}
		for _, v := range seq {
			bond := m.Bond(v.Bond)
			for k := 0; k < int(bond.Arity); k++ {
				site := bond.Sites[k]
				out := v.Legs[wlmc.OutSlot(k)]
				if out != state[site] {
					lines[site] = fmt.Appendf(lines[site], " %v[%g,%g)", state[site], since[site], v.Time)
					state[site] = out
					since[site] = v.Time
				}
			}
		}
		for s := range lines {
			lines[s] = fmt.Appendf(lines[s], " %v[%g,%g)\n", state[s], since[s], m.Beta())
			bw.Write(lines[s])
		}
	}

	return bw.Flush()
}

func writeStates(bw *bufio.Writer, label string, states []wlmc.State) {
	bw.WriteString(label)
	bw.WriteString(FormatStates(states))
	bw.WriteString("\n")
}
