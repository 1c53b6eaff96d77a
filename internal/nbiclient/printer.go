package nbiclient

import (
	"fmt"
	"io"
)

// Fprint renders a snapshot as indented human-readable text. Platforms
// without a fixed position print "n/a" for their coordinates. Pure function
// of the snapshot; the only side effect is writing to w.
func Fprint(w io.Writer, snap *Snapshot, indent string) {
	fmt.Fprintf(w, "%sPlatforms:\n", indent)
	for _, p := range snap.Platforms {
		coords := "n/a"
		if p.Position != nil {
			coords = fmt.Sprintf("(%.1f, %.1f, %.1f) m", p.Position.X, p.Position.Y, p.Position.Z)
		}
		fmt.Fprintf(w, "%s- %s [%s] coords=%s\n", indent, p.Name, p.Type, coords)
	}

	fmt.Fprintf(w, "%sNodes:\n", indent)
	for _, n := range snap.Nodes {
		fmt.Fprintf(w, "%s- %s [%s]\n", indent, n.ID, n.Type)
		for _, iface := range n.Interfaces {
			if !iface.Wireless {
				fmt.Fprintf(w, "%s  interface %s\n", indent, iface.ID)
				continue
			}
			fmt.Fprintf(w, "%s  interface %s platform=%s trx=%s\n",
				indent, iface.ID, iface.Platform, iface.TransceiverModelID)
		}
	}

	fmt.Fprintf(w, "%sLinks:\n", indent)
	for _, l := range snap.Links {
		fmt.Fprintf(w, "%s- %s/%s <-> %s/%s\n",
			indent, l.ANode, l.ATxInterface, l.BNode, l.BTxInterface)
	}
}
