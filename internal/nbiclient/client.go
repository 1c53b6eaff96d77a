// Package nbiclient is a thin NBI example client that builds scenario
// entities (platforms, network nodes, bidirectional links) as dynamic protobuf
// messages resolved from a descriptor bundle, and issues the corresponding
// unary RPCs. No generated NBI stubs are compiled in.
package nbiclient

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/dynrpc"
	"github.com/signalsfoundry/nbi-tools/internal/logging"
	"github.com/signalsfoundry/nbi-tools/internal/observability"
	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Fully-qualified type and method names, fixed by the externally-owned NBI
// schema. The descriptor bundle on disk must define all of them.
const (
	platformTypeName  = "aalyria.spacetime.api.common.PlatformDefinition"
	nodeTypeName      = "aalyria.spacetime.api.nbi.v1alpha.resources.NetworkNode"
	interfaceTypeName = "aalyria.spacetime.api.nbi.v1alpha.resources.NetworkInterface"
	linkTypeName      = "aalyria.spacetime.api.nbi.v1alpha.resources.BidirectionalLink"
	clearReqTypeName  = "aalyria.spacetime.api.nbi.v1alpha.ClearScenarioRequest"
	getReqTypeName    = "aalyria.spacetime.api.nbi.v1alpha.GetScenarioRequest"
	snapshotTypeName  = "aalyria.spacetime.api.nbi.v1alpha.ScenarioSnapshot"
	emptyTypeName     = "google.protobuf.Empty"

	motionSourceEnumName     = "aalyria.spacetime.api.common.PlatformDefinition.MotionSource"
	motionSourceUnknownValue = "UNKNOWN_SOURCE"

	methodClearScenario  = "/aalyria.spacetime.api.nbi.v1alpha.ScenarioService/ClearScenario"
	methodGetScenario    = "/aalyria.spacetime.api.nbi.v1alpha.ScenarioService/GetScenario"
	methodCreatePlatform = "/aalyria.spacetime.api.nbi.v1alpha.PlatformService/CreatePlatform"
	methodCreateNode     = "/aalyria.spacetime.api.nbi.v1alpha.NetworkNodeService/CreateNode"
	methodCreateLink     = "/aalyria.spacetime.api.nbi.v1alpha.NetworkLinkService/CreateLink"
)

// Client issues NBI scenario-building RPCs. Each call is stateless and
// independent; the caller sequences them (create platforms before the nodes
// that reference them, and so on).
type Client struct {
	inv     *dynrpc.Invoker
	log     logging.Logger
	metrics *observability.ClientCollector
	timeout time.Duration

	platformType protoreflect.MessageType
	nodeType     protoreflect.MessageType
	linkType     protoreflect.MessageType
	clearReqType protoreflect.MessageType
	getReqType   protoreflect.MessageType
	snapshotType protoreflect.MessageType
	emptyType    protoreflect.MessageType

	motionUnknown protoreflect.EnumNumber
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout bounds every RPC issued by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics lets the client feed snapshot entity gauges after GetScenario.
func WithMetrics(collector *observability.ClientCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// New resolves every message type and enum value the client needs from the
// registry, failing fast with schema.ErrNotFound when the bundle does not
// match the expected NBI surface.
func New(conn grpc.ClientConnInterface, reg *schema.Registry, opts ...Option) (*Client, error) {
	c := &Client{log: logging.Noop(), timeout: dynrpc.DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	c.inv = dynrpc.NewInvoker(conn, dynrpc.WithTimeout(c.timeout), dynrpc.WithLogger(c.log))

	var err error
	if c.platformType, err = reg.MessageType(platformTypeName); err != nil {
		return nil, err
	}
	if c.nodeType, err = reg.MessageType(nodeTypeName); err != nil {
		return nil, err
	}
	if _, err = reg.MessageType(interfaceTypeName); err != nil {
		return nil, err
	}
	if c.linkType, err = reg.MessageType(linkTypeName); err != nil {
		return nil, err
	}
	if c.clearReqType, err = reg.MessageType(clearReqTypeName); err != nil {
		return nil, err
	}
	if c.getReqType, err = reg.MessageType(getReqTypeName); err != nil {
		return nil, err
	}
	if c.snapshotType, err = reg.MessageType(snapshotTypeName); err != nil {
		return nil, err
	}
	if c.emptyType, err = reg.MessageType(emptyTypeName); err != nil {
		return nil, err
	}
	if c.motionUnknown, err = reg.EnumNumber(motionSourceEnumName, motionSourceUnknownValue); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearScenario removes every entity the server currently tracks. Clearing an
// already empty scenario succeeds.
func (c *Client) ClearScenario(ctx context.Context) error {
	req := c.clearReqType.New().Interface()
	resp := c.emptyType.New().Interface()
	return c.inv.Invoke(ctx, methodClearScenario, req, resp)
}

// CreatePlatform registers a platform at a fixed earth-centered position.
func (c *Client) CreatePlatform(ctx context.Context, name, platformType string, pos Coordinate) error {
	msg := c.platformType.New()
	if err := setString(msg, "name", name); err != nil {
		return err
	}
	if err := setString(msg, "type", platformType); err != nil {
		return err
	}
	if err := setEnum(msg, "motion_source", c.motionUnknown); err != nil {
		return err
	}

	coords, err := mutableMessage(msg, "coordinates")
	if err != nil {
		return err
	}
	ecef, err := mutableMessage(coords, "ecef_fixed")
	if err != nil {
		return err
	}
	point, err := mutableMessage(ecef, "point")
	if err != nil {
		return err
	}
	for field, v := range map[string]float64{"x_m": pos.X, "y_m": pos.Y, "z_m": pos.Z} {
		if err := setDouble(point, field, v); err != nil {
			return err
		}
	}

	resp := c.platformType.New().Interface()
	if err := c.inv.Invoke(ctx, methodCreatePlatform, msg.Interface(), resp); err != nil {
		return fmt.Errorf("create platform %s: %w", name, err)
	}
	c.log.Info(ctx, "created platform", logging.String("name", name), logging.String("type", platformType))
	return nil
}

// CreateNode registers a router node with a single wireless interface hosted
// on platformID and using the given transceiver model.
func (c *Client) CreateNode(ctx context.Context, nodeID, platformID, interfaceID, transceiverID string) error {
	msg := c.nodeType.New()
	if err := setString(msg, "node_id", nodeID); err != nil {
		return err
	}
	if err := setString(msg, "type", "ROUTER"); err != nil {
		return err
	}

	iface, err := appendMessage(msg, "node_interface")
	if err != nil {
		return err
	}
	if err := setString(iface, "interface_id", interfaceID); err != nil {
		return err
	}
	wireless, err := mutableMessage(iface, "wireless")
	if err != nil {
		return err
	}
	if err := setString(wireless, "platform", platformID); err != nil {
		return err
	}
	trx, err := mutableMessage(wireless, "transceiver_model_id")
	if err != nil {
		return err
	}
	if err := setString(trx, "transceiver_model_id", transceiverID); err != nil {
		return err
	}

	resp := c.nodeType.New().Interface()
	if err := c.inv.Invoke(ctx, methodCreateNode, msg.Interface(), resp); err != nil {
		return fmt.Errorf("create node %s: %w", nodeID, err)
	}
	c.log.Info(ctx, "created node", logging.String("node_id", nodeID), logging.String("platform", platformID))
	return nil
}

// CreateLink registers a symmetric link between two node/interface endpoints.
// Each side transmits and receives on the same interface.
func (c *Client) CreateLink(ctx context.Context, aNode, aInterface, bNode, bInterface string) error {
	msg := c.linkType.New()
	fields := map[string]string{
		"a_network_node_id": aNode,
		"a_tx_interface_id": aInterface,
		"a_rx_interface_id": aInterface,
		"b_network_node_id": bNode,
		"b_tx_interface_id": bInterface,
		"b_rx_interface_id": bInterface,
	}
	for field, v := range fields {
		if err := setString(msg, field, v); err != nil {
			return err
		}
	}

	resp := c.linkType.New().Interface()
	if err := c.inv.Invoke(ctx, methodCreateLink, msg.Interface(), resp); err != nil {
		return fmt.Errorf("create link %s/%s <-> %s/%s: %w", aNode, aInterface, bNode, bInterface, err)
	}
	c.log.Info(ctx, "created link",
		logging.String("a", aNode+"/"+aInterface),
		logging.String("b", bNode+"/"+bInterface),
	)
	return nil
}

// GetScenario fetches the full scenario snapshot and decodes it into the
// plain view structs.
func (c *Client) GetScenario(ctx context.Context) (*Snapshot, error) {
	req := c.getReqType.New().Interface()
	resp := c.snapshotType.New()
	if err := c.inv.Invoke(ctx, methodGetScenario, req, resp.Interface()); err != nil {
		return nil, fmt.Errorf("get scenario: %w", err)
	}

	snap, err := snapshotFromMessage(resp)
	if err != nil {
		return nil, err
	}
	c.metrics.SetSnapshotCounts(len(snap.Platforms), len(snap.Nodes), len(snap.Links))
	return snap, nil
}

// Apply sequences the create calls for a whole topology: platforms first,
// then nodes, then links. A failure aborts mid-way with no rollback; entities
// already created remain on the server.
func (c *Client) Apply(ctx context.Context, topo *Topology, defaultTransceiverID string) error {
	for _, p := range topo.Platforms {
		if p.Position == nil {
			return fmt.Errorf("platform %s: position unresolved", p.Name)
		}
		if err := c.CreatePlatform(ctx, p.Name, p.Type, *p.Position); err != nil {
			return err
		}
	}
	for _, n := range topo.Nodes {
		trx := n.TransceiverID
		if trx == "" {
			trx = defaultTransceiverID
		}
		if err := c.CreateNode(ctx, n.ID, n.Platform, n.Interface, trx); err != nil {
			return err
		}
	}
	for _, l := range topo.Links {
		if err := c.CreateLink(ctx, l.ANode, l.AInterface, l.BNode, l.BInterface); err != nil {
			return err
		}
	}
	return nil
}
