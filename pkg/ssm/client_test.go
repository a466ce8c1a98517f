package ssm

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scieloorg/ssm-go/pkg/prototest"
	"github.com/scieloorg/ssm-go/pkg/schema"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"
)

func newTestClient(t *testing.T, inv Invoker) *Client {
	sch, err := schema.Load(prototest.DescriptorBytes(), 1)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	c := &Client{log: log}
	c.bindStubs(inv, sch)
	return c
}

func methodNames(calls []prototest.Call) []string {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Method[strings.LastIndex(call.Method, "/")+1:]
	}
	return names
}

func TestAddAssetRequiresSource(t *testing.T) {
	inv := prototest.NewFakeInvoker()
	c := newTestClient(t, inv)

	_, err := c.AddAsset(context.Background(), nil, "txt", nil, "")
	assert.True(t, IsInvalidArgument(err))
	assert.Equal(t, 0, inv.CallCount())
}

func TestAddAssetReaderRequiresFilename(t *testing.T) {
	inv := prototest.NewFakeInvoker()
	c := newTestClient(t, inv)

	src := FromReader(strings.NewReader("data"), "")
	_, err := c.AddAsset(context.Background(), src, "txt", nil, "")
	assert.True(t, IsInvalidArgument(err))
	assert.Equal(t, 0, inv.CallCount())
}

func TestAddAssetMissingFileIsIOError(t *testing.T) {
	inv := prototest.NewFakeInvoker()
	c := newTestClient(t, inv)

	src := FromPath(filepath.Join(t.TempDir(), "no-such-file"))
	_, err := c.AddAsset(context.Background(), src, "txt", nil, "")
	require.Error(t, err)
	assert.False(t, IsInvalidArgument(err))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, inv.CallCount())
}

func TestAddAssetFromReader(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("hello"), "hello.txt"),
		"text", map[string]interface{}{"a": 1}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	calls := server.Invoker.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/opac.AssetService/add_asset", calls[0].Method)

	asset, err := c.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), asset.File)
	assert.Equal(t, "hello.txt", asset.Filename)
	assert.Equal(t, "text", asset.Type)
	assert.Equal(t, DefaultBucket, asset.Bucket)
	assert.Equal(t, id, asset.UUID)
}

func TestAddAssetFromPath(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	path := filepath.Join(t.TempDir(), "article.xml")
	require.NoError(t, os.WriteFile(path, []byte("<doc/>"), 0644))

	id, err := c.AddAsset(context.Background(), FromPath(path), "xml", nil, "articles")
	require.NoError(t, err)

	asset, err := c.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "article.xml", asset.Filename)
	assert.Equal(t, []byte("<doc/>"), asset.File)
	assert.Equal(t, "articles", asset.Bucket)
}

// Metadata is serialized once on the way in and handed back verbatim on
// the way out; the library never decodes it.
func TestMetadataStaysEncoded(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("x"), "x.bin"),
		"", map[string]interface{}{"a": 1}, "")
	require.NoError(t, err)

	asset, err := c.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, asset.Metadata)
}

func TestNilMetadataSentAsEmptyMapping(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("x"), "x.bin"), "", nil, "")
	require.NoError(t, err)

	asset, err := c.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "{}", asset.Metadata)
}

func TestEmptyArgumentsFailBeforeAnyRoundTrip(t *testing.T) {
	inv := prototest.NewFakeInvoker()
	c := newTestClient(t, inv)
	ctx := context.Background()

	checks := map[string]func() error{
		"get_asset":      func() error { _, err := c.GetAsset(ctx, ""); return err },
		"get_asset_info": func() error { _, err := c.GetAssetInfo(ctx, ""); return err },
		"get_task_state": func() error { _, err := c.GetTaskState(ctx, ""); return err },
		"exists_asset":   func() error { _, err := c.ExistsAsset(ctx, ""); return err },
		"update_asset":   func() error { _, err := c.UpdateAsset(ctx, "", Update{}); return err },
		"remove_asset":   func() error { _, err := c.RemoveAsset(ctx, ""); return err },
		"add_bucket":     func() error { _, err := c.AddBucket(ctx, ""); return err },
		"rename_from":    func() error { _, err := c.UpdateBucket(ctx, "", "b"); return err },
		"rename_to":      func() error { _, err := c.UpdateBucket(ctx, "a", ""); return err },
		"exists_bucket":  func() error { _, err := c.ExistsBucket(ctx, ""); return err },
		"remove_bucket":  func() error { _, err := c.RemoveBucket(ctx, ""); return err },
	}
	for name, call := range checks {
		err := call()
		assert.Truef(t, IsInvalidArgument(err), "%s should reject the empty argument", name)
	}
	assert.Equal(t, 0, inv.CallCount())
}

func TestGetAssetInfo(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("x"), "pic.png"), "png", nil, "photos")
	require.NoError(t, err)

	info, err := c.GetAssetInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "/media/assets/photos/pic.png", info.URLPath)
	assert.True(t, strings.HasSuffix(info.URL, info.URLPath))
}

func TestGetTaskState(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("x"), "x.bin"), "", nil, "")
	require.NoError(t, err)

	state, err := c.GetTaskState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", state)

	server.SetTaskState(id, "SUCCESS")
	state, err = c.GetTaskState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", state)
}

func TestUpdateAsset(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("v1"), "doc.txt"), "text", nil, "")
	require.NoError(t, err)

	updated, err := c.UpdateAsset(context.Background(), id, Update{
		Source: FromReader(strings.NewReader("v2"), "doc2.txt"),
		Type:   "plain",
		Bucket: "docs",
	})
	require.NoError(t, err)
	assert.Equal(t, id, updated)

	asset, err := c.GetAsset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), asset.File)
	assert.Equal(t, "doc2.txt", asset.Filename)
	assert.Equal(t, "plain", asset.Type)
	assert.Equal(t, "docs", asset.Bucket)
}

// A false existence probe skips the mutation quietly: empty id, nil error,
// and exactly one round-trip (the probe).
func TestUpdateAssetNoOpWhenMissing(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.UpdateAsset(context.Background(), "ghost", Update{Type: "x"})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, []string{"exists_asset"}, methodNames(server.Invoker.Calls()))
}

func TestRemoveAsset(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	id, err := c.AddAsset(context.Background(),
		FromReader(strings.NewReader("x"), "x.bin"), "", nil, "")
	require.NoError(t, err)

	removed, err := c.RemoveAsset(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.RemoveAsset(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveAssetNoOpSendsNoMutation(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	removed, err := c.RemoveAsset(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []string{"exists_asset"}, methodNames(server.Invoker.Calls()))
}

func TestBucketLifecycle(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)
	ctx := context.Background()

	id, err := c.AddBucket(ctx, "photos")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	renamed, err := c.UpdateBucket(ctx, "photos", "photos2")
	require.NoError(t, err)
	assert.Equal(t, id, renamed)

	exists, err := c.ExistsBucket(ctx, "photos")
	require.NoError(t, err)
	assert.False(t, exists)

	removed, err := c.RemoveBucket(ctx, "photos2")
	require.NoError(t, err)
	assert.True(t, removed)

	// Second removal is the quiet no-op.
	removed, err = c.RemoveBucket(ctx, "photos2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveBucketNoOpSendsNoMutation(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	removed, err := c.RemoveBucket(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []string{"exists_bucket"}, methodNames(server.Invoker.Calls()))
}

// Remote faults come back exactly as the transport produced them.
func TestRemoteErrorsPropagateUnwrapped(t *testing.T) {
	inv := prototest.NewFakeInvoker()
	boom := status.Error(codes.Internal, "disk on fire")
	inv.Handle("get_asset", func(in, out *dynamicpb.Message) error {
		return boom
	})

	c := newTestClient(t, inv)
	_, err := c.GetAsset(context.Background(), "some-id")
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Same(t, boom, err)
}

func TestRefreshSchemaRebindsStubs(t *testing.T) {
	server := prototest.NewServer()
	c := newTestClient(t, server.Invoker)

	old := c.assets.sch
	fresh, err := schema.Load(prototest.DescriptorBytes(), old.Version()+1)
	require.NoError(t, err)

	c.bindStubs(server.Invoker, fresh)
	assert.Equal(t, old.Version()+1, c.assets.sch.Version())
	assert.Equal(t, old.Version()+1, c.buckets.sch.Version())

	// Calls still work against the new handle.
	_, err = c.AddBucket(context.Background(), "after-refresh")
	assert.NoError(t, err)
}

// Construction against an unreachable schema endpoint with an empty cache
// fails with a fetch error before any channel is opened.
func TestNewFailsWithoutSchemaSource(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.HTTPPort = port
	cfg.CacheDir = t.TempDir()

	log := logrus.New()
	log.SetOutput(io.Discard)

	_, err = New(cfg, log)
	var fe *schema.FetchError
	assert.ErrorAs(t, err, &fe)
}
