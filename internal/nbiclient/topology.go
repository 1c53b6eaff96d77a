package nbiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/orbit"
)

// Topology describes the entities a driver run creates, in creation order.
// It fails only on JSON / structural errors; identifier uniqueness and
// referential integrity stay with the server, exactly like direct client
// calls.
type Topology struct {
	Platforms []PlatformSpec `json:"platforms"`
	Nodes     []NodeSpec     `json:"nodes"`
	Links     []LinkSpec     `json:"links"`
}

// PlatformSpec places a platform either at a fixed ECEF position or on an
// orbit described by a TLE pair, resolved at a caller-supplied time.
type PlatformSpec struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Position *Coordinate `json:"position,omitempty"`
	TLE      *TLESpec    `json:"tle,omitempty"`
}

// TLESpec holds the two standard TLE lines.
type TLESpec struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// NodeSpec declares a router node with one wireless interface.
type NodeSpec struct {
	ID            string `json:"id"`
	Platform      string `json:"platform"`
	Interface     string `json:"interface"`
	TransceiverID string `json:"transceiver_id,omitempty"`
}

// LinkSpec declares a bidirectional link between two node/interface endpoints.
type LinkSpec struct {
	ANode      string `json:"a_node"`
	AInterface string `json:"a_interface"`
	BNode      string `json:"b_node"`
	BInterface string `json:"b_interface"`
}

// LoadTopology reads a JSON topology description from r.
func LoadTopology(r io.Reader) (*Topology, error) {
	var topo Topology
	if err := json.NewDecoder(r).Decode(&topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}

	for i, p := range topo.Platforms {
		if p.Name == "" || p.Type == "" {
			return nil, fmt.Errorf("topology platform %d: name and type are required", i)
		}
		if p.Position == nil && p.TLE == nil {
			return nil, fmt.Errorf("topology platform %s: position or tle is required", p.Name)
		}
	}
	for i, n := range topo.Nodes {
		if n.ID == "" || n.Platform == "" || n.Interface == "" {
			return nil, fmt.Errorf("topology node %d: id, platform, and interface are required", i)
		}
	}
	for i, l := range topo.Links {
		if l.ANode == "" || l.AInterface == "" || l.BNode == "" || l.BInterface == "" {
			return nil, fmt.Errorf("topology link %d: both endpoints are required", i)
		}
	}
	return &topo, nil
}

// Resolve fills in positions for TLE-described platforms by propagating their
// orbits to the given time. Platforms with a fixed position are untouched.
func (t *Topology) Resolve(at time.Time) error {
	for i := range t.Platforms {
		p := &t.Platforms[i]
		if p.Position != nil || p.TLE == nil {
			continue
		}
		pos, err := orbit.ECEFAt(p.TLE.Line1, p.TLE.Line2, at)
		if err != nil {
			return fmt.Errorf("platform %s: %w", p.Name, err)
		}
		p.Position = &Coordinate{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
	return nil
}

// DefaultTopology is the toy two-platform, two-node, one-link scenario: a
// ground station near the surface and a static satellite above it.
func DefaultTopology() *Topology {
	return &Topology{
		Platforms: []PlatformSpec{
			{Name: "platform-ground", Type: "GROUND_STATION", Position: &Coordinate{X: 6_372_000, Y: 0, Z: 0}},
			{Name: "platform-sat", Type: "SATELLITE", Position: &Coordinate{X: 6_871_000, Y: 0, Z: 0}},
		},
		Nodes: []NodeSpec{
			{ID: "node-ground", Platform: "platform-ground", Interface: "if-ground"},
			{ID: "node-sat", Platform: "platform-sat", Interface: "if-sat"},
		},
		Links: []LinkSpec{
			{ANode: "node-ground", AInterface: "if-ground", BNode: "node-sat", BInterface: "if-sat"},
		},
	}
}
