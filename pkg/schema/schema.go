// In-process representation of the SSM wire schema. The schema is not known
// at build time: the server publishes its .proto file over HTTP and the
// provisioner compiles it into a file descriptor set that this type indexes.
// All request/response messages are built dynamically against it.
package schema

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Schema is one immutable, loaded version of the server's protocol
// definition. A forced refresh produces a new Schema; handles already given
// out keep working against the version they were built with.
type Schema struct {
	version  int
	services map[string]protoreflect.ServiceDescriptor
}

// Method is a callable handle on one rpc of one service.
type Method struct {
	desc protoreflect.MethodDescriptor
	path string
}

// Load parses a serialized FileDescriptorSet (the output of protoc
// --descriptor_set_out) and indexes every service it declares by simple
// name. The server's proto package name is not assumed.
func Load(descBytes []byte, version int) (*Schema, error) {
	fds := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(descBytes, fds); err != nil {
		return nil, errors.Wrap(err, "Failed to parse descriptor set")
	}

	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build file descriptors")
	}

	s := &Schema{
		version:  version,
		services: make(map[string]protoreflect.ServiceDescriptor),
	}
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		svcs := fd.Services()
		for i := 0; i < svcs.Len(); i++ {
			sd := svcs.Get(i)
			s.services[string(sd.Name())] = sd
		}
		return true
	})

	if len(s.services) == 0 {
		return nil, errors.New("Descriptor set declares no services")
	}
	return s, nil
}

// Version identifies this loaded schema generation. It only grows; a
// refresh that swaps the active schema bumps it.
func (s *Schema) Version() int {
	return s.version
}

// Services lists the simple names of every indexed service.
func (s *Schema) Services() []string {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	return names
}

// Method resolves one rpc by service and method name as they appear in the
// fetched .proto (e.g. "AssetService", "add_asset").
func (s *Schema) Method(service, method string) (*Method, error) {
	sd, ok := s.services[service]
	if !ok {
		return nil, errors.Errorf("Schema (version %d) has no service %q", s.version, service)
	}
	md := sd.Methods().ByName(protoreflect.Name(method))
	if md == nil {
		return nil, errors.Errorf("Service %q has no method %q", service, method)
	}
	return &Method{
		desc: md,
		path: "/" + string(sd.FullName()) + "/" + method,
	}, nil
}

// FullPath is the grpc method path ("/package.Service/method").
func (m *Method) FullPath() string {
	return m.path
}

// NewInput returns an empty request message for this method.
func (m *Method) NewInput() *dynamicpb.Message {
	return dynamicpb.NewMessage(m.desc.Input())
}

// NewOutput returns an empty response message for this method.
func (m *Method) NewOutput() *dynamicpb.Message {
	return dynamicpb.NewMessage(m.desc.Output())
}

// SetString sets a string field by name, failing if the fetched schema does
// not declare the field.
func SetString(msg *dynamicpb.Message, field, value string) error {
	fd, err := fieldByName(msg, field)
	if err != nil {
		return err
	}
	msg.Set(fd, protoreflect.ValueOfString(value))
	return nil
}

// SetBytes sets a bytes field by name.
func SetBytes(msg *dynamicpb.Message, field string, value []byte) error {
	fd, err := fieldByName(msg, field)
	if err != nil {
		return err
	}
	msg.Set(fd, protoreflect.ValueOfBytes(value))
	return nil
}

// GetString reads a string field by name, returning "" if the schema does
// not declare the field. Reads are forgiving where writes are strict: a
// server may serve a newer schema with fields this client never sets.
func GetString(msg *dynamicpb.Message, field string) string {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(field))
	if fd == nil {
		return ""
	}
	return msg.Get(fd).String()
}

// GetBytes reads a bytes field by name, nil if absent from the schema.
func GetBytes(msg *dynamicpb.Message, field string) []byte {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(field))
	if fd == nil {
		return nil
	}
	return msg.Get(fd).Bytes()
}

// GetBool reads a bool field by name, false if absent from the schema.
func GetBool(msg *dynamicpb.Message, field string) bool {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(field))
	if fd == nil {
		return false
	}
	return msg.Get(fd).Bool()
}

func fieldByName(msg *dynamicpb.Message, field string) (protoreflect.FieldDescriptor, error) {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(field))
	if fd == nil {
		return nil, errors.Errorf("Message %q has no field %q", msg.Descriptor().FullName(), field)
	}
	return fd, nil
}
