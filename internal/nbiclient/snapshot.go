package nbiclient

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Coordinate is a fixed earth-centered (ECEF) position in meters.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Platform is the view of a PlatformDefinition in a snapshot. Position is nil
// when the server reported no fixed coordinates.
type Platform struct {
	Name     string
	Type     string
	Position *Coordinate
}

// Interface is the view of a NetworkInterface. Platform and
// TransceiverModelID are only set for wireless interfaces.
type Interface struct {
	ID                 string
	Wireless           bool
	Platform           string
	TransceiverModelID string
}

// Node is the view of a NetworkNode with its ordered interfaces.
type Node struct {
	ID         string
	Type       string
	Interfaces []Interface
}

// Link is the view of a BidirectionalLink: two (node, tx, rx) endpoint triples.
type Link struct {
	ANode        string
	ATxInterface string
	ARxInterface string
	BNode        string
	BTxInterface string
	BRxInterface string
}

// Snapshot is the read-only aggregate of everything the server tracks.
type Snapshot struct {
	Platforms []Platform
	Nodes     []Node
	Links     []Link
}

// snapshotFromMessage decodes a dynamic ScenarioSnapshot into the plain view.
func snapshotFromMessage(m protoreflect.Message) (*Snapshot, error) {
	snap := &Snapshot{}

	platforms, err := messageList(m, "platforms")
	if err != nil {
		return nil, err
	}
	for _, pm := range platforms {
		p, err := platformFromMessage(pm)
		if err != nil {
			return nil, err
		}
		snap.Platforms = append(snap.Platforms, p)
	}

	nodes, err := messageList(m, "nodes")
	if err != nil {
		return nil, err
	}
	for _, nm := range nodes {
		n, err := nodeFromMessage(nm)
		if err != nil {
			return nil, err
		}
		snap.Nodes = append(snap.Nodes, n)
	}

	links, err := messageList(m, "links")
	if err != nil {
		return nil, err
	}
	for _, lm := range links {
		l, err := linkFromMessage(lm)
		if err != nil {
			return nil, err
		}
		snap.Links = append(snap.Links, l)
	}

	return snap, nil
}

func platformFromMessage(m protoreflect.Message) (Platform, error) {
	var p Platform
	var err error
	if p.Name, err = getString(m, "name"); err != nil {
		return p, err
	}
	if p.Type, err = getString(m, "type"); err != nil {
		return p, err
	}

	// coordinates.ecef_fixed.point is optional at every level; any absent
	// link in the chain leaves Position nil.
	coords, ok, err := getMessage(m, "coordinates")
	if err != nil || !ok {
		return p, err
	}
	ecef, ok, err := getMessage(coords, "ecef_fixed")
	if err != nil || !ok {
		return p, err
	}
	point, ok, err := getMessage(ecef, "point")
	if err != nil || !ok {
		return p, err
	}

	pos := &Coordinate{}
	if pos.X, err = getDouble(point, "x_m"); err != nil {
		return p, err
	}
	if pos.Y, err = getDouble(point, "y_m"); err != nil {
		return p, err
	}
	if pos.Z, err = getDouble(point, "z_m"); err != nil {
		return p, err
	}
	p.Position = pos
	return p, nil
}

func nodeFromMessage(m protoreflect.Message) (Node, error) {
	var n Node
	var err error
	if n.ID, err = getString(m, "node_id"); err != nil {
		return n, err
	}
	if n.Type, err = getString(m, "type"); err != nil {
		return n, err
	}

	ifaces, err := messageList(m, "node_interface")
	if err != nil {
		return n, err
	}
	for _, im := range ifaces {
		var iface Interface
		if iface.ID, err = getString(im, "interface_id"); err != nil {
			return n, err
		}
		wireless, ok, err := getMessage(im, "wireless")
		if err != nil {
			return n, err
		}
		if ok {
			iface.Wireless = true
			if iface.Platform, err = getString(wireless, "platform"); err != nil {
				return n, err
			}
			trx, ok, err := getMessage(wireless, "transceiver_model_id")
			if err != nil {
				return n, err
			}
			if ok {
				if iface.TransceiverModelID, err = getString(trx, "transceiver_model_id"); err != nil {
					return n, err
				}
			}
		}
		n.Interfaces = append(n.Interfaces, iface)
	}
	return n, nil
}

func linkFromMessage(m protoreflect.Message) (Link, error) {
	var l Link
	fields := []struct {
		name string
		dst  *string
	}{
		{"a_network_node_id", &l.ANode},
		{"a_tx_interface_id", &l.ATxInterface},
		{"a_rx_interface_id", &l.ARxInterface},
		{"b_network_node_id", &l.BNode},
		{"b_tx_interface_id", &l.BTxInterface},
		{"b_rx_interface_id", &l.BRxInterface},
	}
	for _, f := range fields {
		v, err := getString(m, f.name)
		if err != nil {
			return l, err
		}
		*f.dst = v
	}
	return l, nil
}
