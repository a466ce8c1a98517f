// Test fixtures shared by the schema and client packages: a hand-built
// descriptor set matching the schema the SSM server publishes, a fake
// invoker standing in for the gRPC channel, and an in-memory rendition of
// the two services for scenario tests. Nothing here touches the network.
package prototest

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ProtoSource is the .proto text as the server would publish it. Used by
// provisioner tests as an HTTP response body.
const ProtoSource = `syntax = "proto3";

package opac;

message Asset {
    bytes file = 1;
    string filename = 2;
    string type = 3;
    string metadata = 4;
    string uuid = 5;
    string bucket = 6;
}

message TaskId {
    string id = 1;
}

message AssetExists {
    bool exist = 1;
}

message AssetInfo {
    string url = 1;
    string url_path = 2;
}

message TaskState {
    string state = 1;
}

message Bucket {
    string id = 1;
}

message BucketName {
    string name = 1;
    string new_name = 2;
}

message BucketExists {
    bool exist = 1;
}

service AssetService {
    rpc add_asset (Asset) returns (TaskId) {}
    rpc get_asset (TaskId) returns (Asset) {}
    rpc get_asset_info (TaskId) returns (AssetInfo) {}
    rpc get_task_state (TaskId) returns (TaskState) {}
    rpc exists_asset (TaskId) returns (AssetExists) {}
    rpc update_asset (Asset) returns (TaskId) {}
    rpc remove_asset (TaskId) returns (TaskId) {}
}

service BucketService {
    rpc add_bucket (BucketName) returns (Bucket) {}
    rpc add_update (BucketName) returns (Bucket) {}
    rpc exists_bucket (BucketName) returns (BucketExists) {}
    rpc remove_bucket (BucketName) returns (Bucket) {}
}
`

// FileDescriptorSet builds, in memory, the descriptor set protoc would
// emit for ProtoSource. Keeping it programmatic means the tests never need
// a protoc binary.
func FileDescriptorSet() *descriptorpb.FileDescriptorSet {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	byt := descriptorpb.FieldDescriptorProto_TYPE_BYTES
	bol := descriptorpb.FieldDescriptorProto_TYPE_BOOL

	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("opac.proto"),
		Package: proto.String("opac"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("Asset",
				field("file", 1, byt),
				field("filename", 2, str),
				field("type", 3, str),
				field("metadata", 4, str),
				field("uuid", 5, str),
				field("bucket", 6, str)),
			message("TaskId", field("id", 1, str)),
			message("AssetExists", field("exist", 1, bol)),
			message("AssetInfo", field("url", 1, str), field("url_path", 2, str)),
			message("TaskState", field("state", 1, str)),
			message("Bucket", field("id", 1, str)),
			message("BucketName", field("name", 1, str), field("new_name", 2, str)),
			message("BucketExists", field("exist", 1, bol)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("AssetService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					rpc("add_asset", ".opac.Asset", ".opac.TaskId"),
					rpc("get_asset", ".opac.TaskId", ".opac.Asset"),
					rpc("get_asset_info", ".opac.TaskId", ".opac.AssetInfo"),
					rpc("get_task_state", ".opac.TaskId", ".opac.TaskState"),
					rpc("exists_asset", ".opac.TaskId", ".opac.AssetExists"),
					rpc("update_asset", ".opac.Asset", ".opac.TaskId"),
					rpc("remove_asset", ".opac.TaskId", ".opac.TaskId"),
				},
			},
			{
				Name: proto.String("BucketService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					rpc("add_bucket", ".opac.BucketName", ".opac.Bucket"),
					rpc("add_update", ".opac.BucketName", ".opac.Bucket"),
					rpc("exists_bucket", ".opac.BucketName", ".opac.BucketExists"),
					rpc("remove_bucket", ".opac.BucketName", ".opac.Bucket"),
				},
			},
		},
	}

	return &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{file},
	}
}

// DescriptorBytes is FileDescriptorSet serialized the way protoc writes it
// to --descriptor_set_out.
func DescriptorBytes() []byte {
	raw, err := proto.Marshal(FileDescriptorSet())
	if err != nil {
		panic(err)
	}
	return raw
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

func field(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Type:   kind.Enum(),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
}

func rpc(name, input, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(input),
		OutputType: proto.String(output),
	}
}

// Call is one recorded invocation through the FakeInvoker.
type Call struct {
	// Method is the full grpc path, e.g. "/opac.AssetService/add_asset".
	Method string
	// In is a deep copy of the request message at invocation time.
	In *dynamicpb.Message
}

// Handler serves one method: read the request, fill in the reply.
type Handler func(in, out *dynamicpb.Message) error

// FakeInvoker records every call and dispatches to per-method handlers
// keyed by the bare method name. Methods without a handler succeed with an
// empty reply.
type FakeInvoker struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

func NewFakeInvoker() *FakeInvoker {
	return &FakeInvoker{handlers: make(map[string]Handler)}
}

// Handle registers a handler for a bare method name like "add_asset".
func (f *FakeInvoker) Handle(method string, h Handler) {
	f.handlers[method] = h
}

// Calls returns a snapshot of every recorded invocation, in order.
func (f *FakeInvoker) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount is the number of round-trips performed so far.
func (f *FakeInvoker) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *FakeInvoker) Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	in := args.(*dynamicpb.Message)
	out := reply.(*dynamicpb.Message)

	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Method: method,
		In:     proto.Clone(in).(*dynamicpb.Message),
	})
	f.mu.Unlock()

	name := method
	if i := strings.LastIndex(method, "/"); i >= 0 {
		name = method[i+1:]
	}
	if h, ok := f.handlers[name]; ok {
		return h(in, out)
	}
	return nil
}

// Server is an in-memory rendition of the asset and bucket services,
// wired onto a FakeInvoker. Ids are minted as UUIDs the way the real
// server assigns them.
type Server struct {
	Invoker *FakeInvoker

	mu      sync.Mutex
	assets  map[string]map[string]string // uuid -> field -> value
	files   map[string][]byte            // uuid -> content
	buckets map[string]string            // name -> id
	states  map[string]string            // task id -> state label
}

func NewServer() *Server {
	s := &Server{
		Invoker: NewFakeInvoker(),
		assets:  make(map[string]map[string]string),
		files:   make(map[string][]byte),
		buckets: make(map[string]string),
		states:  make(map[string]string),
	}

	s.Invoker.Handle("add_asset", s.addAsset)
	s.Invoker.Handle("get_asset", s.getAsset)
	s.Invoker.Handle("get_asset_info", s.getAssetInfo)
	s.Invoker.Handle("get_task_state", s.getTaskState)
	s.Invoker.Handle("exists_asset", s.existsAsset)
	s.Invoker.Handle("update_asset", s.updateAsset)
	s.Invoker.Handle("remove_asset", s.removeAsset)
	s.Invoker.Handle("add_bucket", s.addBucket)
	s.Invoker.Handle("add_update", s.renameBucket)
	s.Invoker.Handle("exists_bucket", s.existsBucket)
	s.Invoker.Handle("remove_bucket", s.removeBucket)

	return s
}

// SetTaskState seeds the state label returned for a task id.
func (s *Server) SetTaskState(id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
}

func (s *Server) addAsset(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.assets[id] = map[string]string{
		"filename": getString(in, "filename"),
		"type":     getString(in, "type"),
		"metadata": getString(in, "metadata"),
		"bucket":   getString(in, "bucket"),
	}
	s.files[id] = getBytes(in, "file")
	setString(out, "id", id)
	return nil
}

func (s *Server) getAsset(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := getString(in, "id")
	rec, ok := s.assets[id]
	if !ok {
		return nil
	}
	setBytes(out, "file", s.files[id])
	setString(out, "uuid", id)
	for _, f := range []string{"filename", "type", "metadata", "bucket"} {
		setString(out, f, rec[f])
	}
	return nil
}

func (s *Server) getAssetInfo(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := getString(in, "id")
	rec, ok := s.assets[id]
	if !ok {
		return nil
	}
	path := "/media/assets/" + rec["bucket"] + "/" + rec["filename"]
	setString(out, "url", "http://ssm.test"+path)
	setString(out, "url_path", path)
	return nil
}

func (s *Server) getTaskState(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[getString(in, "id")]
	if !ok {
		state = "PENDING"
	}
	setString(out, "state", state)
	return nil
}

func (s *Server) existsAsset(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.assets[getString(in, "id")]
	setBool(out, "exist", ok)
	return nil
}

func (s *Server) updateAsset(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := getString(in, "uuid")
	rec, ok := s.assets[id]
	if !ok {
		return nil
	}
	for _, f := range []string{"filename", "type", "metadata", "bucket"} {
		if v := getString(in, f); v != "" {
			rec[f] = v
		}
	}
	if content := getBytes(in, "file"); len(content) > 0 {
		s.files[id] = content
	}
	setString(out, "id", id)
	return nil
}

func (s *Server) removeAsset(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := getString(in, "id")
	delete(s.assets, id)
	delete(s.files, id)
	setString(out, "id", id)
	return nil
}

func (s *Server) addBucket(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := getString(in, "name")
	id, ok := s.buckets[name]
	if !ok {
		id = uuid.New().String()
		s.buckets[name] = id
	}
	setString(out, "id", id)
	return nil
}

func (s *Server) renameBucket(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := getString(in, "name")
	newName := getString(in, "new_name")
	id, ok := s.buckets[name]
	if !ok {
		id = uuid.New().String()
	} else {
		delete(s.buckets, name)
	}
	s.buckets[newName] = id
	setString(out, "id", id)
	return nil
}

func (s *Server) existsBucket(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.buckets[getString(in, "name")]
	setBool(out, "exist", ok)
	return nil
}

func (s *Server) removeBucket(in, out *dynamicpb.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := getString(in, "name")
	id := s.buckets[name]
	delete(s.buckets, name)
	setString(out, "id", id)
	return nil
}

// Field access below is by name so the fixtures stay independent of any
// generated types, same as the code under test.

func getString(m *dynamicpb.Message, name string) string {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return ""
	}
	return m.Get(fd).String()
}

func getBytes(m *dynamicpb.Message, name string) []byte {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return nil
	}
	return m.Get(fd).Bytes()
}

func setString(m *dynamicpb.Message, name, value string) {
	if fd := m.Descriptor().Fields().ByName(protoreflect.Name(name)); fd != nil {
		m.Set(fd, protoreflect.ValueOfString(value))
	}
}

func setBytes(m *dynamicpb.Message, name string, value []byte) {
	if fd := m.Descriptor().Fields().ByName(protoreflect.Name(name)); fd != nil {
		m.Set(fd, protoreflect.ValueOfBytes(value))
	}
}

func setBool(m *dynamicpb.Message, name string, value bool) {
	if fd := m.Descriptor().Fields().ByName(protoreflect.Name(name)); fd != nil {
		m.Set(fd, protoreflect.ValueOfBool(value))
	}
}
