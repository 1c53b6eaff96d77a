package nbiclient

import (
	"fmt"

	"github.com/signalsfoundry/nbi-tools/internal/schema"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// All field access goes through descriptors looked up by name, so a bundle
// that drifted from the expected NBI surface shows up as schema.ErrNotFound
// instead of a panic deep inside protoreflect.

func fieldByName(m protoreflect.Message, name string) (protoreflect.FieldDescriptor, error) {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return nil, fmt.Errorf("%w: message %q has no field %q", schema.ErrNotFound, m.Descriptor().FullName(), name)
	}
	return fd, nil
}

func setString(m protoreflect.Message, name, value string) error {
	fd, err := fieldByName(m, name)
	if err != nil {
		return err
	}
	m.Set(fd, protoreflect.ValueOfString(value))
	return nil
}

func setDouble(m protoreflect.Message, name string, value float64) error {
	fd, err := fieldByName(m, name)
	if err != nil {
		return err
	}
	m.Set(fd, protoreflect.ValueOfFloat64(value))
	return nil
}

func setEnum(m protoreflect.Message, name string, value protoreflect.EnumNumber) error {
	fd, err := fieldByName(m, name)
	if err != nil {
		return err
	}
	m.Set(fd, protoreflect.ValueOfEnum(value))
	return nil
}

// mutableMessage returns the mutable sub-message stored in the named field,
// allocating it if absent.
func mutableMessage(m protoreflect.Message, name string) (protoreflect.Message, error) {
	fd, err := fieldByName(m, name)
	if err != nil {
		return nil, err
	}
	if fd.Kind() != protoreflect.MessageKind {
		return nil, fmt.Errorf("%w: field %q of %q is not a message", schema.ErrNotFound, name, m.Descriptor().FullName())
	}
	return m.Mutable(fd).Message(), nil
}

// appendMessage appends a fresh element to the named repeated message field
// and returns it for population.
func appendMessage(m protoreflect.Message, name string) (protoreflect.Message, error) {
	fd, err := fieldByName(m, name)
	if err != nil {
		return nil, err
	}
	if !fd.IsList() || fd.Kind() != protoreflect.MessageKind {
		return nil, fmt.Errorf("%w: field %q of %q is not a repeated message", schema.ErrNotFound, name, m.Descriptor().FullName())
	}
	list := m.Mutable(fd).List()
	elem := list.NewElement()
	list.Append(elem)
	return elem.Message(), nil
}

func getString(m protoreflect.Message, name string) (string, error) {
	fd, err := fieldByName(m, name)
	if err != nil {
		return "", err
	}
	return m.Get(fd).String(), nil
}

// getMessage returns the sub-message in the named field and whether it is
// present. Absent optional sub-messages report ok=false rather than a
// zero-valued view.
func getMessage(m protoreflect.Message, name string) (protoreflect.Message, bool, error) {
	fd, err := fieldByName(m, name)
	if err != nil {
		return nil, false, err
	}
	if fd.Kind() != protoreflect.MessageKind {
		return nil, false, fmt.Errorf("%w: field %q of %q is not a message", schema.ErrNotFound, name, m.Descriptor().FullName())
	}
	if !m.Has(fd) {
		return nil, false, nil
	}
	return m.Get(fd).Message(), true, nil
}

func getDouble(m protoreflect.Message, name string) (float64, error) {
	fd, err := fieldByName(m, name)
	if err != nil {
		return 0, err
	}
	return m.Get(fd).Float(), nil
}

// messageList iterates the named repeated message field.
func messageList(m protoreflect.Message, name string) ([]protoreflect.Message, error) {
	fd, err := fieldByName(m, name)
	if err != nil {
		return nil, err
	}
	if !fd.IsList() || fd.Kind() != protoreflect.MessageKind {
		return nil, fmt.Errorf("%w: field %q of %q is not a repeated message", schema.ErrNotFound, name, m.Descriptor().FullName())
	}
	list := m.Get(fd).List()
	out := make([]protoreflect.Message, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		out = append(out, list.Get(i).Message())
	}
	return out, nil
}
