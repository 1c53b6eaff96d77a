package nbiclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/dynrpc"
	"github.com/signalsfoundry/nbi-tools/internal/nbiclient"
	"github.com/signalsfoundry/nbi-tools/internal/nbitest"
	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

func newTestClient(t *testing.T) *nbiclient.Client {
	t.Helper()

	srv := nbitest.StartServer(t)
	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	client, err := nbiclient.New(conn, srv.Registry(t), nbiclient.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestCreatePlatformAppearsInSnapshot(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.CreatePlatform(ctx, "A", "GROUND_STATION", nbiclient.Coordinate{X: 1, Y: 2, Z: 3}); err != nil {
		t.Fatalf("CreatePlatform: %v", err)
	}

	snap, err := client.GetScenario(ctx)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if len(snap.Platforms) != 1 {
		t.Fatalf("snapshot has %d platforms, want 1", len(snap.Platforms))
	}

	p := snap.Platforms[0]
	if p.Name != "A" || p.Type != "GROUND_STATION" {
		t.Fatalf("unexpected platform %+v", p)
	}
	if p.Position == nil {
		t.Fatalf("platform position missing")
	}
	if *p.Position != (nbiclient.Coordinate{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("platform position = %+v, want (1,2,3)", *p.Position)
	}
}

func TestDuplicatePlatformIsStatusError(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	pos := nbiclient.Coordinate{X: 1, Y: 1, Z: 1}
	if err := client.CreatePlatform(ctx, "dup", "SATELLITE", pos); err != nil {
		t.Fatalf("first CreatePlatform: %v", err)
	}

	err := client.CreatePlatform(ctx, "dup", "SATELLITE", pos)
	var statusErr *dynrpc.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("duplicate create = %v, want *dynrpc.StatusError", err)
	}
	if statusErr.Code() != codes.AlreadyExists {
		t.Fatalf("duplicate create code = %v, want AlreadyExists", statusErr.Code())
	}
}

func TestCreateNodeDecodesInterfaces(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.CreatePlatform(ctx, "p1", "GROUND_STATION", nbiclient.Coordinate{X: 6372000}); err != nil {
		t.Fatalf("CreatePlatform: %v", err)
	}
	if err := client.CreateNode(ctx, "n1", "p1", "if1", "trx-ku"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	snap, err := client.GetScenario(ctx)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if len(snap.Nodes) != 1 {
		t.Fatalf("snapshot has %d nodes, want 1", len(snap.Nodes))
	}

	n := snap.Nodes[0]
	if n.ID != "n1" || n.Type != "ROUTER" {
		t.Fatalf("unexpected node %+v", n)
	}
	if len(n.Interfaces) != 1 {
		t.Fatalf("node has %d interfaces, want 1", len(n.Interfaces))
	}
	iface := n.Interfaces[0]
	if !iface.Wireless || iface.ID != "if1" || iface.Platform != "p1" || iface.TransceiverModelID != "trx-ku" {
		t.Fatalf("unexpected interface %+v", iface)
	}
}

func TestLinkToUnknownEndpointFailsAndIsAbsent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.CreateLink(ctx, "ghost-node", "ghost-if", "other-node", "other-if")
	var statusErr *dynrpc.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("CreateLink = %v, want *dynrpc.StatusError", err)
	}
	if statusErr.Code() != codes.NotFound {
		t.Fatalf("CreateLink code = %v, want NotFound", statusErr.Code())
	}

	snap, err := client.GetScenario(ctx)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if len(snap.Links) != 0 {
		t.Fatalf("snapshot contains %d links after rejected create, want 0", len(snap.Links))
	}
}

func TestClearScenarioOnEmptyScenario(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.ClearScenario(ctx); err != nil {
		t.Fatalf("ClearScenario on empty scenario: %v", err)
	}

	snap, err := client.GetScenario(ctx)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if len(snap.Platforms)+len(snap.Nodes)+len(snap.Links) != 0 {
		t.Fatalf("snapshot not empty after clear: %+v", snap)
	}
}

func TestApplyBuildsDefaultTopology(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	topo := nbiclient.DefaultTopology()
	if err := client.Apply(ctx, topo, "trx-ku"); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap, err := client.GetScenario(ctx)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if len(snap.Platforms) != 2 || len(snap.Nodes) != 2 || len(snap.Links) != 1 {
		t.Fatalf("snapshot = %d platforms / %d nodes / %d links, want 2/2/1",
			len(snap.Platforms), len(snap.Nodes), len(snap.Links))
	}

	l := snap.Links[0]
	if l.ANode != "node-ground" || l.BNode != "node-sat" {
		t.Fatalf("unexpected link endpoints %+v", l)
	}
}

func TestClearScenarioRemovesEntities(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.Apply(ctx, nbiclient.DefaultTopology(), "trx-ku"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := client.ClearScenario(ctx); err != nil {
		t.Fatalf("ClearScenario: %v", err)
	}

	snap, err := client.GetScenario(ctx)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if len(snap.Platforms)+len(snap.Nodes)+len(snap.Links) != 0 {
		t.Fatalf("snapshot not empty after clear: %+v", snap)
	}
}

func TestNewFailsFastOnIncompleteBundle(t *testing.T) {
	// A bundle containing only empty.proto and common.proto cannot serve the
	// client; construction must fail with a schema lookup error, before any
	// RPC is attempted.
	fds := nbitest.DescriptorSet()
	fds.File = fds.File[:2]
	data, err := proto.Marshal(fds)
	if err != nil {
		t.Fatalf("marshal truncated bundle: %v", err)
	}
	reg, err := schema.Parse(data)
	if err != nil {
		t.Fatalf("parse truncated bundle: %v", err)
	}

	conn, err := grpc.NewClient("127.0.0.1:1", grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := nbiclient.New(conn, reg); !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("New with incomplete bundle = %v, want schema.ErrNotFound", err)
	}
}
