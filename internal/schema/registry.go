// Package schema loads a serialized FileDescriptorSet bundle and resolves
// message and enum types by fully-qualified name, so clients can build protobuf
// messages for APIs whose generated code is not compiled in.
package schema

import (
	"errors"
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ErrNotFound is returned when a message type, enum type, or enum value name
// cannot be resolved against the loaded descriptor bundle.
var ErrNotFound = errors.New("schema lookup failed")

// Registry is an immutable index over a descriptor bundle. It is safe for
// concurrent use after construction.
type Registry struct {
	files *protoregistry.Files
}

// Load reads a descriptor bundle from path and parses it.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor bundle: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from the serialized bytes of a FileDescriptorSet.
// The set must be self-contained: every import of every file has to be
// present in the set itself.
func Parse(data []byte) (*Registry, error) {
	fds := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, fds); err != nil {
		return nil, fmt.Errorf("parse descriptor bundle: %w", err)
	}
	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return nil, fmt.Errorf("build descriptor registry: %w", err)
	}
	return &Registry{files: files}, nil
}

// MessageType resolves a fully-qualified message name to a dynamic message
// type. The returned handle's New() always yields a fresh mutable message with
// schema defaults (zero numerics, empty strings, absent sub-messages).
func (r *Registry) MessageType(name string) (protoreflect.MessageType, error) {
	desc, err := r.files.FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		return nil, fmt.Errorf("%w: message type %q: %v", ErrNotFound, name, err)
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %T, not a message", ErrNotFound, name, desc)
	}
	return dynamicpb.NewMessageType(md), nil
}

// NewMessage resolves name and returns an empty mutable instance of it.
func (r *Registry) NewMessage(name string) (*dynamicpb.Message, error) {
	mt, err := r.MessageType(name)
	if err != nil {
		return nil, err
	}
	return mt.New().Interface().(*dynamicpb.Message), nil
}

// EnumNumber resolves the numeric value of valueName within the enum type
// enumName.
func (r *Registry) EnumNumber(enumName, valueName string) (protoreflect.EnumNumber, error) {
	desc, err := r.files.FindDescriptorByName(protoreflect.FullName(enumName))
	if err != nil {
		return 0, fmt.Errorf("%w: enum type %q: %v", ErrNotFound, enumName, err)
	}
	ed, ok := desc.(protoreflect.EnumDescriptor)
	if !ok {
		return 0, fmt.Errorf("%w: %q is a %T, not an enum", ErrNotFound, enumName, desc)
	}
	val := ed.Values().ByName(protoreflect.Name(valueName))
	if val == nil {
		return 0, fmt.Errorf("%w: enum %q has no value %q", ErrNotFound, enumName, valueName)
	}
	return val.Number(), nil
}
