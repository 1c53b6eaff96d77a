package nbiclient

import (
	"math"
	"strings"
	"testing"
	"time"
)

const (
	testTLELine1 = "1 25544U 98067A   19079.47481208  .00000980  00000-0  25380-4 0  9990"
	testTLELine2 = "2 25544  51.6426 137.8977 0004763 307.6818 203.1965 15.52508355161574"
)

func TestLoadTopology(t *testing.T) {
	input := `{
		"platforms": [
			{"name": "gs", "type": "GROUND_STATION", "position": {"x": 6372000, "y": 0, "z": 0}},
			{"name": "sat", "type": "SATELLITE", "tle": {"line1": "` + testTLELine1 + `", "line2": "` + testTLELine2 + `"}}
		],
		"nodes": [
			{"id": "n-gs", "platform": "gs", "interface": "if-gs"},
			{"id": "n-sat", "platform": "sat", "interface": "if-sat", "transceiver_id": "trx-ka"}
		],
		"links": [
			{"a_node": "n-gs", "a_interface": "if-gs", "b_node": "n-sat", "b_interface": "if-sat"}
		]
	}`

	topo, err := LoadTopology(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadTopology: %v", err)
	}
	if len(topo.Platforms) != 2 || len(topo.Nodes) != 2 || len(topo.Links) != 1 {
		t.Fatalf("topology = %d platforms / %d nodes / %d links, want 2/2/1",
			len(topo.Platforms), len(topo.Nodes), len(topo.Links))
	}
	if topo.Platforms[0].Position == nil || topo.Platforms[0].Position.X != 6372000 {
		t.Fatalf("fixed platform position not decoded: %+v", topo.Platforms[0])
	}
	if topo.Platforms[1].TLE == nil {
		t.Fatalf("TLE platform not decoded: %+v", topo.Platforms[1])
	}
	if topo.Nodes[1].TransceiverID != "trx-ka" {
		t.Fatalf("node transceiver override not decoded: %+v", topo.Nodes[1])
	}
}

func TestLoadTopologyStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `{`},
		{"platform missing type", `{"platforms": [{"name": "p"}]}`},
		{"platform missing position and tle", `{"platforms": [{"name": "p", "type": "SATELLITE"}]}`},
		{"node missing interface", `{"nodes": [{"id": "n", "platform": "p"}]}`},
		{"link missing endpoint", `{"links": [{"a_node": "n", "a_interface": "if"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadTopology(strings.NewReader(tc.input)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestResolveFillsTLEPositions(t *testing.T) {
	topo := &Topology{
		Platforms: []PlatformSpec{
			{Name: "fixed", Type: "GROUND_STATION", Position: &Coordinate{X: 1, Y: 2, Z: 3}},
			{Name: "orbital", Type: "SATELLITE", TLE: &TLESpec{Line1: testTLELine1, Line2: testTLELine2}},
		},
	}

	at := time.Date(2019, time.March, 20, 12, 0, 0, 0, time.UTC)
	if err := topo.Resolve(at); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got := topo.Platforms[0].Position; *got != (Coordinate{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("fixed platform position changed: %+v", got)
	}

	pos := topo.Platforms[1].Position
	if pos == nil {
		t.Fatalf("orbital platform position not resolved")
	}
	radius := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if radius < 6.5e6 || radius > 7.1e6 {
		t.Fatalf("orbital radius = %.0f m, want low-earth orbit range", radius)
	}
}

func TestResolveRejectsBadTLE(t *testing.T) {
	topo := &Topology{
		Platforms: []PlatformSpec{
			{Name: "broken", Type: "SATELLITE", TLE: &TLESpec{Line1: "garbage", Line2: "garbage"}},
		},
	}
	if err := topo.Resolve(time.Now()); err == nil {
		t.Fatalf("expected error for malformed TLE")
	}
}

func TestDefaultTopologyShape(t *testing.T) {
	topo := DefaultTopology()
	if len(topo.Platforms) != 2 || len(topo.Nodes) != 2 || len(topo.Links) != 1 {
		t.Fatalf("default topology = %d platforms / %d nodes / %d links, want 2/2/1",
			len(topo.Platforms), len(topo.Nodes), len(topo.Links))
	}
	for _, p := range topo.Platforms {
		if p.Position == nil {
			t.Fatalf("default platform %s has no position", p.Name)
		}
	}
}
