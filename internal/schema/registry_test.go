package schema_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/nbi-tools/internal/nbitest"
	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const platformName = "aalyria.spacetime.api.common.PlatformDefinition"

func TestMessageTypeYieldsZeroValuedInstance(t *testing.T) {
	reg := nbitest.NewRegistry(t)

	mt, err := reg.MessageType(platformName)
	if err != nil {
		t.Fatalf("MessageType: %v", err)
	}

	msg := mt.New()
	fields := msg.Descriptor().Fields()

	name := fields.ByName("name")
	if name == nil {
		t.Fatalf("PlatformDefinition has no name field")
	}
	if got := msg.Get(name).String(); got != "" {
		t.Fatalf("fresh instance name = %q, want empty", got)
	}

	coords := fields.ByName("coordinates")
	if coords == nil {
		t.Fatalf("PlatformDefinition has no coordinates field")
	}
	if msg.Has(coords) {
		t.Fatalf("fresh instance has coordinates set, want absent")
	}
}

func TestMessageTypeUnknownName(t *testing.T) {
	reg := nbitest.NewRegistry(t)

	mt, err := reg.MessageType("aalyria.spacetime.api.common.NoSuchMessage")
	if !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("expected schema.ErrNotFound, got %v", err)
	}
	if mt != nil {
		t.Fatalf("expected nil type handle on lookup failure, got %v", mt)
	}
}

func TestMessageTypeRejectsNonMessageNames(t *testing.T) {
	reg := nbitest.NewRegistry(t)

	// An enum resolves as a descriptor but is not a message type.
	_, err := reg.MessageType(platformName + ".MotionSource")
	if !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("expected schema.ErrNotFound for enum name, got %v", err)
	}
}

func TestEnumNumber(t *testing.T) {
	reg := nbitest.NewRegistry(t)
	enumName := platformName + ".MotionSource"

	tests := []struct {
		value   string
		want    protoreflect.EnumNumber
		wantErr bool
	}{
		{value: "UNKNOWN_SOURCE", want: 0},
		{value: "SPACETRACK_ORG", want: 1},
		{value: "NO_SUCH_VALUE", wantErr: true},
	}
	for _, tc := range tests {
		got, err := reg.EnumNumber(enumName, tc.value)
		if tc.wantErr {
			if !errors.Is(err, schema.ErrNotFound) {
				t.Fatalf("EnumNumber(%s): expected schema.ErrNotFound, got %v", tc.value, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("EnumNumber(%s): %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("EnumNumber(%s) = %d, want %d", tc.value, got, tc.want)
		}
	}

	if _, err := reg.EnumNumber("aalyria.no.such.Enum", "UNKNOWN_SOURCE"); !errors.Is(err, schema.ErrNotFound) {
		t.Fatalf("expected schema.ErrNotFound for unknown enum, got %v", err)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	reg := nbitest.NewRegistry(t)

	mt, err := reg.MessageType(platformName)
	if err != nil {
		t.Fatalf("MessageType: %v", err)
	}

	original := mt.New()
	fields := original.Descriptor().Fields()
	original.Set(fields.ByName("name"), protoreflect.ValueOfString("platform-A"))
	original.Set(fields.ByName("type"), protoreflect.ValueOfString("GROUND_STATION"))

	data, err := proto.Marshal(original.Interface())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded := mt.New()
	if err := proto.Unmarshal(data, decoded.Interface()); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !proto.Equal(original.Interface(), decoded.Interface()) {
		t.Fatalf("round-trip mismatch:\noriginal: %v\ndecoded: %v", original.Interface(), decoded.Interface())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := schema.Parse([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("expected error for malformed bundle bytes")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := schema.Load(filepath.Join(t.TempDir(), "absent.pb")); err == nil {
		t.Fatalf("expected error for missing bundle file")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := nbitest.WriteDescriptorFile(t)

	reg, err := schema.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := reg.MessageType(platformName); err != nil {
		t.Fatalf("MessageType after Load: %v", err)
	}
}
