package nbiclient

import (
	"strings"
	"testing"
)

func TestFprintRendersFullSnapshot(t *testing.T) {
	snap := &Snapshot{
		Platforms: []Platform{
			{Name: "platform-ground", Type: "GROUND_STATION", Position: &Coordinate{X: 6372000, Y: 0, Z: 0}},
			{Name: "platform-adrift", Type: "SATELLITE"},
		},
		Nodes: []Node{
			{
				ID:   "node-ground",
				Type: "ROUTER",
				Interfaces: []Interface{
					{ID: "if-ground", Wireless: true, Platform: "platform-ground", TransceiverModelID: "trx-ku"},
					{ID: "if-aux"},
				},
			},
		},
		Links: []Link{
			{
				ANode: "node-ground", ATxInterface: "if-ground", ARxInterface: "if-ground",
				BNode: "node-sat", BTxInterface: "if-sat", BRxInterface: "if-sat",
			},
		},
	}

	var sb strings.Builder
	Fprint(&sb, snap, "  ")
	got := sb.String()

	want := "" +
		"  Platforms:\n" +
		"  - platform-ground [GROUND_STATION] coords=(6372000.0, 0.0, 0.0) m\n" +
		"  - platform-adrift [SATELLITE] coords=n/a\n" +
		"  Nodes:\n" +
		"  - node-ground [ROUTER]\n" +
		"    interface if-ground platform=platform-ground trx=trx-ku\n" +
		"    interface if-aux\n" +
		"  Links:\n" +
		"  - node-ground/if-ground <-> node-sat/if-sat\n"

	if got != want {
		t.Fatalf("Fprint output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFprintEmptySnapshot(t *testing.T) {
	var sb strings.Builder
	Fprint(&sb, &Snapshot{}, "")
	got := sb.String()

	want := "Platforms:\nNodes:\nLinks:\n"
	if got != want {
		t.Fatalf("Fprint output mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}
