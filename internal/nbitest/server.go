package nbitest

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Server is an in-memory NBI scenario service for tests. It keeps platforms,
// nodes, and links keyed by their caller-supplied identifiers, rejects
// duplicates, and validates link endpoints, which is the remote-side behavior
// the client's error taxonomy is exercised against.
type Server struct {
	addr       string
	grpcServer *grpc.Server
	delay      time.Duration

	platformType protoreflect.MessageType
	nodeType     protoreflect.MessageType
	linkType     protoreflect.MessageType
	snapshotType protoreflect.MessageType
	emptyType    protoreflect.MessageType
	clearReqType protoreflect.MessageType
	getReqType   protoreflect.MessageType

	mu             sync.Mutex
	platforms      map[string]*dynamicpb.Message
	platformOrder  []string
	nodes          map[string]*dynamicpb.Message
	nodeOrder      []string
	nodeInterfaces map[string]map[string]bool
	links          []*dynamicpb.Message
}

// ServerOption customises a test server.
type ServerOption func(*Server)

// WithHandlerDelay makes every handler sleep before answering, for deadline
// tests.
func WithHandlerDelay(d time.Duration) ServerOption {
	return func(s *Server) { s.delay = d }
}

// StartServer resolves the NBI types from the miniature bundle, starts a gRPC
// server on a loopback port, and registers a cleanup that stops it.
func StartServer(tb testing.TB, opts ...ServerOption) *Server {
	tb.Helper()

	reg := NewRegistry(tb)
	s := &Server{
		platforms:      make(map[string]*dynamicpb.Message),
		nodes:          make(map[string]*dynamicpb.Message),
		nodeInterfaces: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	resolve := func(name string) protoreflect.MessageType {
		mt, err := reg.MessageType(name)
		if err != nil {
			tb.Fatalf("resolve %s: %v", name, err)
		}
		return mt
	}
	s.platformType = resolve(commonPackage + ".PlatformDefinition")
	s.nodeType = resolve(resourcesPackage + ".NetworkNode")
	s.linkType = resolve(resourcesPackage + ".BidirectionalLink")
	s.snapshotType = resolve(nbiPackage + ".ScenarioSnapshot")
	s.emptyType = resolve("google.protobuf.Empty")
	s.clearReqType = resolve(nbiPackage + ".ClearScenarioRequest")
	s.getReqType = resolve(nbiPackage + ".GetScenarioRequest")

	s.grpcServer = grpc.NewServer()
	for _, desc := range s.serviceDescs() {
		s.grpcServer.RegisterService(desc, s)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}
	s.addr = lis.Addr().String()

	go func() { _ = s.grpcServer.Serve(lis) }()
	tb.Cleanup(s.grpcServer.Stop)

	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return s.addr }

// Registry returns a fresh registry over the same bundle the server uses.
func (s *Server) Registry(tb testing.TB) *schema.Registry { return NewRegistry(tb) }

func (s *Server) serviceDescs() []*grpc.ServiceDesc {
	return []*grpc.ServiceDesc{
		{
			ServiceName: nbiPackage + ".ScenarioService",
			HandlerType: (*any)(nil),
			Methods: []grpc.MethodDesc{
				{MethodName: "ClearScenario", Handler: s.unary(s.clearReqType, s.handleClearScenario)},
				{MethodName: "GetScenario", Handler: s.unary(s.getReqType, s.handleGetScenario)},
			},
		},
		{
			ServiceName: nbiPackage + ".PlatformService",
			HandlerType: (*any)(nil),
			Methods: []grpc.MethodDesc{
				{MethodName: "CreatePlatform", Handler: s.unary(s.platformType, s.handleCreatePlatform)},
			},
		},
		{
			ServiceName: nbiPackage + ".NetworkNodeService",
			HandlerType: (*any)(nil),
			Methods: []grpc.MethodDesc{
				{MethodName: "CreateNode", Handler: s.unary(s.nodeType, s.handleCreateNode)},
			},
		},
		{
			ServiceName: nbiPackage + ".NetworkLinkService",
			HandlerType: (*any)(nil),
			Methods: []grpc.MethodDesc{
				{MethodName: "CreateLink", Handler: s.unary(s.linkType, s.handleCreateLink)},
			},
		},
	}
}

type unaryHandler func(ctx context.Context, req *dynamicpb.Message) (proto.Message, error)

// unary adapts a handler onto the signature grpc.MethodDesc expects, decoding
// the wire payload into a fresh dynamic message of the method's request type.
func (s *Server) unary(reqType protoreflect.MessageType, h unaryHandler) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := reqType.New().Interface().(*dynamicpb.Message)
		if err := dec(req); err != nil {
			return nil, err
		}
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, status.FromContextError(ctx.Err()).Err()
			}
		}
		if interceptor == nil {
			return h(ctx, req)
		}
		return interceptor(ctx, req, &grpc.UnaryServerInfo{Server: s}, func(ctx context.Context, in any) (any, error) {
			return h(ctx, in.(*dynamicpb.Message))
		})
	}
}

func (s *Server) handleCreatePlatform(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	name := msgString(req, "name")
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "platform name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.platforms[name]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "platform %q already exists", name)
	}
	s.platforms[name] = proto.Clone(req).(*dynamicpb.Message)
	s.platformOrder = append(s.platformOrder, name)
	return req, nil
}

func (s *Server) handleCreateNode(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	nodeID := msgString(req, "node_id")
	if nodeID == "" {
		return nil, status.Error(codes.InvalidArgument, "node_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[nodeID]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "node %q already exists", nodeID)
	}

	ifaces := make(map[string]bool)
	for _, im := range msgList(req, "node_interface") {
		ifaceID := msgString(im, "interface_id")
		if ifaceID == "" {
			return nil, status.Errorf(codes.InvalidArgument, "node %q: interface_id is required", nodeID)
		}
		if wireless, ok := msgSub(im, "wireless"); ok {
			platformID := msgString(wireless, "platform")
			if platformID != "" {
				if _, exists := s.platforms[platformID]; !exists {
					return nil, status.Errorf(codes.NotFound, "platform %q not found", platformID)
				}
			}
		}
		ifaces[ifaceID] = true
	}

	s.nodes[nodeID] = proto.Clone(req).(*dynamicpb.Message)
	s.nodeOrder = append(s.nodeOrder, nodeID)
	s.nodeInterfaces[nodeID] = ifaces
	return req, nil
}

func (s *Server) handleCreateLink(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	endpoints := []struct {
		node, tx, rx string
	}{
		{msgString(req, "a_network_node_id"), msgString(req, "a_tx_interface_id"), msgString(req, "a_rx_interface_id")},
		{msgString(req, "b_network_node_id"), msgString(req, "b_tx_interface_id"), msgString(req, "b_rx_interface_id")},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range endpoints {
		if ep.node == "" || ep.tx == "" || ep.rx == "" {
			return nil, status.Error(codes.InvalidArgument, "both link endpoints are required")
		}
		ifaces, exists := s.nodeInterfaces[ep.node]
		if !exists {
			return nil, status.Errorf(codes.NotFound, "node %q not found", ep.node)
		}
		for _, ifaceID := range []string{ep.tx, ep.rx} {
			if !ifaces[ifaceID] {
				return nil, status.Errorf(codes.NotFound, "interface %q not found on node %q", ifaceID, ep.node)
			}
		}
	}

	s.links = append(s.links, proto.Clone(req).(*dynamicpb.Message))
	return req, nil
}

func (s *Server) handleClearScenario(context.Context, *dynamicpb.Message) (proto.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platforms = make(map[string]*dynamicpb.Message)
	s.platformOrder = nil
	s.nodes = make(map[string]*dynamicpb.Message)
	s.nodeOrder = nil
	s.nodeInterfaces = make(map[string]map[string]bool)
	s.links = nil
	return s.emptyType.New().Interface(), nil
}

func (s *Server) handleGetScenario(context.Context, *dynamicpb.Message) (proto.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotType.New()
	appendAll := func(field string, msgs []*dynamicpb.Message) error {
		fd := snap.Descriptor().Fields().ByName(protoreflect.Name(field))
		if fd == nil {
			return fmt.Errorf("snapshot has no field %q", field)
		}
		list := snap.Mutable(fd).List()
		for _, m := range msgs {
			list.Append(protoreflect.ValueOfMessage(proto.Clone(m).ProtoReflect()))
		}
		return nil
	}

	var platforms, nodes []*dynamicpb.Message
	for _, name := range s.platformOrder {
		platforms = append(platforms, s.platforms[name])
	}
	for _, id := range s.nodeOrder {
		nodes = append(nodes, s.nodes[id])
	}

	for field, msgs := range map[string][]*dynamicpb.Message{
		"platforms": platforms,
		"nodes":     nodes,
		"links":     s.links,
	} {
		if err := appendAll(field, msgs); err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
	}
	return snap.Interface(), nil
}

// ---- dynamic field access, fields known-present in the bundle ----

func msgString(m *dynamicpb.Message, name string) string {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return ""
	}
	return m.Get(fd).String()
}

func msgList(m *dynamicpb.Message, name string) []*dynamicpb.Message {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil || !fd.IsList() {
		return nil
	}
	list := m.Get(fd).List()
	out := make([]*dynamicpb.Message, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		out = append(out, list.Get(i).Message().Interface().(*dynamicpb.Message))
	}
	return out
}

func msgSub(m *dynamicpb.Message, name string) (*dynamicpb.Message, bool) {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil || fd.Kind() != protoreflect.MessageKind || !m.Has(fd) {
		return nil, false
	}
	return m.Get(fd).Message().Interface().(*dynamicpb.Message), true
}
