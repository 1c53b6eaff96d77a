// Package nbitest provides test fixtures for the dynamic NBI client: a
// self-contained miniature descriptor bundle declaring the NBI message
// surface, and an in-memory NBI server that speaks it over real gRPC.
package nbitest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	commonPackage    = "aalyria.spacetime.api.common"
	resourcesPackage = "aalyria.spacetime.api.nbi.v1alpha.resources"
	nbiPackage       = "aalyria.spacetime.api.nbi.v1alpha"

	commonFile    = "aalyria/spacetime/api/common/common.proto"
	resourcesFile = "aalyria/spacetime/api/nbi/v1alpha/resources/resources.proto"
	nbiFile       = "aalyria/spacetime/api/nbi/v1alpha/nbi.proto"
	emptyFile     = "google/protobuf/empty.proto"
)

// DescriptorSet builds a FileDescriptorSet covering every type and service
// the client resolves. It mirrors the shape of the production bundle: proto2
// resource definitions plus the well-known empty.proto the services import.
func DescriptorSet() *descriptorpb.FileDescriptorSet {
	return &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			emptyProto(),
			commonProto(),
			resourcesProto(),
			nbiProto(),
		},
	}
}

// DescriptorBytes returns the serialized bundle.
func DescriptorBytes(tb testing.TB) []byte {
	tb.Helper()
	data, err := proto.Marshal(DescriptorSet())
	if err != nil {
		tb.Fatalf("marshal descriptor set: %v", err)
	}
	return data
}

// WriteDescriptorFile writes the bundle into a temp file and returns its path.
func WriteDescriptorFile(tb testing.TB) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "nbi_descriptor.pb")
	if err := os.WriteFile(path, DescriptorBytes(tb), 0o644); err != nil {
		tb.Fatalf("write descriptor file: %v", err)
	}
	return path
}

// NewRegistry parses the bundle into a schema registry.
func NewRegistry(tb testing.TB) *schema.Registry {
	tb.Helper()
	reg, err := schema.Parse(DescriptorBytes(tb))
	if err != nil {
		tb.Fatalf("parse descriptor set: %v", err)
	}
	return reg
}

func emptyProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(emptyFile),
		Package: proto.String("google.protobuf"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String("Empty")},
		},
	}
}

func commonProto() *descriptorpb.FileDescriptorProto {
	cartesian := &descriptorpb.DescriptorProto{
		Name: proto.String("Cartesian"),
		Field: []*descriptorpb.FieldDescriptorProto{
			doubleField("x_m", 1),
			doubleField("y_m", 2),
			doubleField("z_m", 3),
		},
	}

	pointAxes := &descriptorpb.DescriptorProto{
		Name: proto.String("PointAxes"),
		Field: []*descriptorpb.FieldDescriptorProto{
			messageField("point", 1, "."+commonPackage+".Cartesian"),
		},
	}

	motion := &descriptorpb.DescriptorProto{
		Name: proto.String("Motion"),
		Field: []*descriptorpb.FieldDescriptorProto{
			oneofMessageField("ecef_fixed", 1, "."+commonPackage+".PointAxes", 0),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{
			{Name: proto.String("type")},
		},
	}

	platform := &descriptorpb.DescriptorProto{
		Name: proto.String("PlatformDefinition"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField("name", 1),
			stringField("type", 2),
			enumField("motion_source", 3, "."+commonPackage+".PlatformDefinition.MotionSource"),
			messageField("coordinates", 4, "."+commonPackage+".Motion"),
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			{
				Name: proto.String("MotionSource"),
				Value: []*descriptorpb.EnumValueDescriptorProto{
					{Name: proto.String("UNKNOWN_SOURCE"), Number: proto.Int32(0)},
					{Name: proto.String("SPACETRACK_ORG"), Number: proto.Int32(1)},
				},
			},
		},
	}

	transceiverModelID := &descriptorpb.DescriptorProto{
		Name: proto.String("TransceiverModelId"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField("transceiver_model_id", 1),
		},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(commonFile),
		Package: proto.String(commonPackage),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			cartesian, pointAxes, motion, platform, transceiverModelID,
		},
	}
}

func resourcesProto() *descriptorpb.FileDescriptorProto {
	wired := &descriptorpb.DescriptorProto{
		Name: proto.String("WiredDevice"),
	}

	wireless := &descriptorpb.DescriptorProto{
		Name: proto.String("WirelessDevice"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField("platform", 1),
			messageField("transceiver_model_id", 2, "."+commonPackage+".TransceiverModelId"),
		},
	}

	networkInterface := &descriptorpb.DescriptorProto{
		Name: proto.String("NetworkInterface"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField("interface_id", 1),
			oneofMessageField("wired", 2, "."+resourcesPackage+".WiredDevice", 0),
			oneofMessageField("wireless", 3, "."+resourcesPackage+".WirelessDevice", 0),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{
			{Name: proto.String("interface_medium")},
		},
	}

	networkNode := &descriptorpb.DescriptorProto{
		Name: proto.String("NetworkNode"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField("node_id", 1),
			stringField("type", 2),
			repeatedMessageField("node_interface", 3, "."+resourcesPackage+".NetworkInterface"),
		},
	}

	link := &descriptorpb.DescriptorProto{
		Name: proto.String("BidirectionalLink"),
		Field: []*descriptorpb.FieldDescriptorProto{
			stringField("a_network_node_id", 1),
			stringField("a_tx_interface_id", 2),
			stringField("a_rx_interface_id", 3),
			stringField("b_network_node_id", 4),
			stringField("b_tx_interface_id", 5),
			stringField("b_rx_interface_id", 6),
		},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(resourcesFile),
		Package:    proto.String(resourcesPackage),
		Syntax:     proto.String("proto2"),
		Dependency: []string{commonFile},
		MessageType: []*descriptorpb.DescriptorProto{
			wired, wireless, networkInterface, networkNode, link,
		},
	}
}

func nbiProto() *descriptorpb.FileDescriptorProto {
	clearReq := &descriptorpb.DescriptorProto{Name: proto.String("ClearScenarioRequest")}
	getReq := &descriptorpb.DescriptorProto{Name: proto.String("GetScenarioRequest")}

	snapshot := &descriptorpb.DescriptorProto{
		Name: proto.String("ScenarioSnapshot"),
		Field: []*descriptorpb.FieldDescriptorProto{
			repeatedMessageField("platforms", 1, "."+commonPackage+".PlatformDefinition"),
			repeatedMessageField("nodes", 2, "."+resourcesPackage+".NetworkNode"),
			repeatedMessageField("links", 3, "."+resourcesPackage+".BidirectionalLink"),
		},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:        proto.String(nbiFile),
		Package:     proto.String(nbiPackage),
		Syntax:      proto.String("proto2"),
		Dependency:  []string{commonFile, resourcesFile, emptyFile},
		MessageType: []*descriptorpb.DescriptorProto{clearReq, getReq, snapshot},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("ScenarioService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					method("ClearScenario", "."+nbiPackage+".ClearScenarioRequest", ".google.protobuf.Empty"),
					method("GetScenario", "."+nbiPackage+".GetScenarioRequest", "."+nbiPackage+".ScenarioSnapshot"),
				},
			},
			{
				Name: proto.String("PlatformService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					method("CreatePlatform", "."+commonPackage+".PlatformDefinition", "."+commonPackage+".PlatformDefinition"),
				},
			},
			{
				Name: proto.String("NetworkNodeService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					method("CreateNode", "."+resourcesPackage+".NetworkNode", "."+resourcesPackage+".NetworkNode"),
				},
			},
			{
				Name: proto.String("NetworkLinkService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					method("CreateLink", "."+resourcesPackage+".BidirectionalLink", "."+resourcesPackage+".BidirectionalLink"),
				},
			},
		},
	}
}

func stringField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
	}
}

func doubleField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE.Enum(),
	}
}

func enumField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(),
		TypeName: proto.String(typeName),
	}
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName),
	}
}

func repeatedMessageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := messageField(name, number, typeName)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func oneofMessageField(name string, number int32, typeName string, oneofIndex int32) *descriptorpb.FieldDescriptorProto {
	f := messageField(name, number, typeName)
	f.OneofIndex = proto.Int32(oneofIndex)
	return f
}

func method(name, input, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(input),
		OutputType: proto.String(output),
	}
}
