// Client facade for the remote Simple Storage Manager (SSM). Every public
// operation validates and normalizes its arguments locally, builds a wire
// message against the dynamically provisioned schema, performs one or two
// blocking round-trips over the shared channel, and maps the response back
// into plain values. Remote errors come back from the transport untouched.
package ssm

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/scieloorg/ssm-go/pkg/schema"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/dynamicpb"
)

// DefaultBucket is the sentinel bucket assets land in when the caller does
// not name one. It is a server-side convention.
const DefaultBucket = "UNKNOWN"

const (
	assetService  = "AssetService"
	bucketService = "BucketService"

	emptyMetadata = "{}"
)

// Config carries everything the client needs, resolved once at the call
// site. ssmmgr fills it from the environment; nothing below this point
// reads ambient state.
type Config struct {
	// Host of the SSM server, shared by the gRPC and HTTP endpoints.
	Host string
	// Port is the gRPC port.
	Port string
	// HTTPPort publishes the .proto schema file.
	HTTPPort string
	// ProtoPath is the schema resource path on HTTPPort.
	ProtoPath string
	// CacheDir stores the fetched .proto and compiled descriptor set.
	CacheDir string
	// RefreshSchema forces a refetch and recompile at construction even
	// when a compiled schema is cached locally.
	RefreshSchema bool
}

// DefaultConfig mirrors the server's stock deployment: everything on
// localhost, schema cached under ~/.ssm.
func DefaultConfig() Config {
	cacheDir := filepath.Join(os.TempDir(), "ssm")
	if home, err := homedir.Dir(); err == nil {
		cacheDir = filepath.Join(home, ".ssm")
	}
	return Config{
		Host:      "localhost",
		Port:      "5000",
		HTTPPort:  "8001",
		ProtoPath: "/static/proto/opac.proto",
		CacheDir:  cacheDir,
	}
}

// Invoker is the one-method slice of grpc.ClientConn the stubs depend on.
type Invoker interface {
	Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error
}

// Asset is the full record returned by GetAsset. Metadata stays the raw
// string the server holds; decoding it is the caller's business.
type Asset struct {
	File     []byte
	Filename string
	Type     string
	Metadata string
	UUID     string
	Bucket   string
}

// AssetInfo is the retrieval location of a stored asset.
type AssetInfo struct {
	URL     string
	URLPath string
}

// Update names the asset fields to replace. Zero-valued fields are left
// alone server-side, except Metadata which is always sent (an empty mapping
// when nil).
type Update struct {
	Source   *Source
	Type     string
	Metadata map[string]interface{}
	Bucket   string
}

// stub binds the shared channel to one service of one schema version. A
// schema refresh builds new stubs; existing ones keep their version.
type stub struct {
	inv     Invoker
	sch     *schema.Schema
	service string
}

func (s *stub) call(ctx context.Context, method string, build func(*dynamicpb.Message) error) (*dynamicpb.Message, error) {
	m, err := s.sch.Method(s.service, method)
	if err != nil {
		return nil, err
	}

	in := m.NewInput()
	if build != nil {
		if err := build(in); err != nil {
			return nil, err
		}
	}

	out := m.NewOutput()
	if err := s.inv.Invoke(ctx, m.FullPath(), in, out); err != nil {
		// Transport and server faults propagate as-is.
		return nil, err
	}
	return out, nil
}

// Client owns one channel to the SSM server and the two service stubs
// derived from it. It is created eagerly, performs no handshake, and is
// not safe for concurrent use unless the caller serializes access.
type Client struct {
	cfg     Config
	log     logrus.FieldLogger
	prov    *schema.Provisioner
	conn    *grpc.ClientConn
	assets  *stub
	buckets *stub
}

// New provisions the wire schema (fetching and compiling it if absent or
// forced), opens an insecure channel to {host}:{port}, and derives the
// asset and bucket stubs. Schema failures are fatal here; re-invoke with
// RefreshSchema set or fix connectivity.
func New(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
	}

	prov := schema.NewProvisioner(schema.Config{
		Host:      cfg.Host,
		HTTPPort:  cfg.HTTPPort,
		ProtoPath: cfg.ProtoPath,
		CacheDir:  cfg.CacheDir,
	}, logger)

	sch, err := prov.Ensure(cfg.RefreshSchema)
	if err != nil {
		return nil, err
	}

	target := net.JoinHostPort(cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open channel to "+target)
	}

	c := &Client{
		cfg:  cfg,
		log:  logger,
		prov: prov,
		conn: conn,
	}
	c.bindStubs(conn, sch)
	return c, nil
}

// RefreshSchema refetches and recompiles the wire schema, then rebinds the
// stubs to the new version. In-flight calls on the old stubs finish against
// the version they started with.
func (c *Client) RefreshSchema() error {
	sch, err := c.prov.Refresh()
	if err != nil {
		return err
	}
	c.bindStubs(c.assets.inv, sch)
	c.log.Infof("Rebound stubs to schema version %d", sch.Version())
	return nil
}

// Close releases the channel. The client is unusable afterwards; there is
// no reconnect.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) bindStubs(inv Invoker, sch *schema.Schema) {
	c.assets = &stub{inv: inv, sch: sch, service: assetService}
	c.buckets = &stub{inv: inv, sch: sch, service: bucketService}
}

// AddAsset stores new content under bucket (DefaultBucket when empty) and
// returns the server-assigned asset id. metadata is JSON-encoded before
// transmission; nil means an empty mapping. All validation and local I/O
// happen before any round-trip.
func (c *Client) AddAsset(ctx context.Context, src *Source, filetype string, metadata map[string]interface{}, bucket string) (string, error) {
	if src == nil {
		return "", invalidArg("source", "a content source is required")
	}

	meta, err := encodeMetadata(metadata)
	if err != nil {
		return "", err
	}

	content, filename, err := src.resolve()
	if err != nil {
		c.log.WithError(err).Error("Could not resolve asset content source")
		return "", err
	}

	if bucket == "" {
		bucket = DefaultBucket
	}

	out, err := c.assets.call(ctx, "add_asset", func(in *dynamicpb.Message) error {
		if err := schema.SetBytes(in, "file", content); err != nil {
			return err
		}
		if err := schema.SetString(in, "filename", filename); err != nil {
			return err
		}
		if err := schema.SetString(in, "type", filetype); err != nil {
			return err
		}
		if err := schema.SetString(in, "metadata", meta); err != nil {
			return err
		}
		return schema.SetString(in, "bucket", bucket)
	})
	if err != nil {
		return "", err
	}
	return schema.GetString(out, "id"), nil
}

// GetAsset fetches the full asset record. Metadata comes back as the raw
// encoded string, untouched.
func (c *Client) GetAsset(ctx context.Context, id string) (*Asset, error) {
	if err := requireArg("id", id); err != nil {
		return nil, err
	}

	out, err := c.assets.call(ctx, "get_asset", taskID(id))
	if err != nil {
		return nil, err
	}
	return &Asset{
		File:     schema.GetBytes(out, "file"),
		Filename: schema.GetString(out, "filename"),
		Type:     schema.GetString(out, "type"),
		Metadata: schema.GetString(out, "metadata"),
		UUID:     schema.GetString(out, "uuid"),
		Bucket:   schema.GetString(out, "bucket"),
	}, nil
}

// GetAssetInfo returns the retrieval URL and path for an asset.
func (c *Client) GetAssetInfo(ctx context.Context, id string) (*AssetInfo, error) {
	if err := requireArg("id", id); err != nil {
		return nil, err
	}

	out, err := c.assets.call(ctx, "get_asset_info", taskID(id))
	if err != nil {
		return nil, err
	}
	return &AssetInfo{
		URL:     schema.GetString(out, "url"),
		URLPath: schema.GetString(out, "url_path"),
	}, nil
}

// GetTaskState polls the processing state of an asynchronous asset task.
// The label is opaque and never cached.
func (c *Client) GetTaskState(ctx context.Context, id string) (string, error) {
	if err := requireArg("id", id); err != nil {
		return "", err
	}

	out, err := c.assets.call(ctx, "get_task_state", taskID(id))
	if err != nil {
		return "", err
	}
	return schema.GetString(out, "state"), nil
}

// ExistsAsset is the read-only probe guarding asset mutations. Exported
// because it is useful on its own.
func (c *Client) ExistsAsset(ctx context.Context, id string) (bool, error) {
	if err := requireArg("id", id); err != nil {
		return false, err
	}

	out, err := c.assets.call(ctx, "exists_asset", taskID(id))
	if err != nil {
		return false, err
	}
	return schema.GetBool(out, "exist"), nil
}

// UpdateAsset replaces the supplied fields of an existing asset and returns
// its id. When the existence probe comes back false the update is skipped:
// the returned id is empty and the error nil. The probe and the mutation
// are separate round-trips, so a concurrent remover can race between them.
func (c *Client) UpdateAsset(ctx context.Context, uuid string, upd Update) (string, error) {
	if err := requireArg("uuid", uuid); err != nil {
		return "", err
	}

	meta, err := encodeMetadata(upd.Metadata)
	if err != nil {
		return "", err
	}

	var content []byte
	var filename string
	if upd.Source != nil {
		content, filename, err = upd.Source.resolve()
		if err != nil {
			c.log.WithError(err).Error("Could not resolve asset content source")
			return "", err
		}
	}

	exists, err := c.ExistsAsset(ctx, uuid)
	if err != nil {
		return "", err
	}
	if !exists {
		c.log.Errorf("No asset exists with id: %s", uuid)
		return "", nil
	}

	out, err := c.assets.call(ctx, "update_asset", func(in *dynamicpb.Message) error {
		if err := schema.SetString(in, "uuid", uuid); err != nil {
			return err
		}
		if err := schema.SetString(in, "metadata", meta); err != nil {
			return err
		}
		if upd.Source != nil {
			if err := schema.SetBytes(in, "file", content); err != nil {
				return err
			}
			if err := schema.SetString(in, "filename", filename); err != nil {
				return err
			}
		}
		if upd.Type != "" {
			if err := schema.SetString(in, "type", upd.Type); err != nil {
				return err
			}
		}
		if upd.Bucket != "" {
			if err := schema.SetString(in, "bucket", upd.Bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return schema.GetString(out, "id"), nil
}

// RemoveAsset deletes an asset after probing that it exists. A false probe
// is a quiet no-op: removed is false and the error nil.
func (c *Client) RemoveAsset(ctx context.Context, id string) (bool, error) {
	if err := requireArg("id", id); err != nil {
		return false, err
	}

	exists, err := c.ExistsAsset(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		c.log.Errorf("No asset exists with id: %s", id)
		return false, nil
	}

	if _, err := c.assets.call(ctx, "remove_asset", taskID(id)); err != nil {
		return false, err
	}
	return true, nil
}

// AddBucket creates a bucket and returns its server-assigned id.
func (c *Client) AddBucket(ctx context.Context, name string) (string, error) {
	if err := requireArg("name", name); err != nil {
		return "", err
	}

	out, err := c.buckets.call(ctx, "add_bucket", bucketName(name, ""))
	if err != nil {
		return "", err
	}
	return schema.GetString(out, "id"), nil
}

// UpdateBucket renames a bucket and returns its id. The remote method is
// "add_update", a server naming quirk.
func (c *Client) UpdateBucket(ctx context.Context, name, newName string) (string, error) {
	if err := requireArg("name", name); err != nil {
		return "", err
	}
	if err := requireArg("new_name", newName); err != nil {
		return "", err
	}

	out, err := c.buckets.call(ctx, "add_update", bucketName(name, newName))
	if err != nil {
		return "", err
	}
	return schema.GetString(out, "id"), nil
}

// ExistsBucket is the read-only probe guarding bucket removal.
func (c *Client) ExistsBucket(ctx context.Context, name string) (bool, error) {
	if err := requireArg("name", name); err != nil {
		return false, err
	}

	out, err := c.buckets.call(ctx, "exists_bucket", bucketName(name, ""))
	if err != nil {
		return false, err
	}
	return schema.GetBool(out, "exist"), nil
}

// RemoveBucket deletes a bucket after probing that it exists. A false
// probe is a quiet no-op: removed is false and the error nil.
func (c *Client) RemoveBucket(ctx context.Context, name string) (bool, error) {
	if err := requireArg("name", name); err != nil {
		return false, err
	}

	exists, err := c.ExistsBucket(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		c.log.Errorf("No bucket exists with name: %s", name)
		return false, nil
	}

	if _, err := c.buckets.call(ctx, "remove_bucket", bucketName(name, "")); err != nil {
		return false, err
	}
	return true, nil
}

func requireArg(param, value string) error {
	if value == "" {
		return invalidArg(param, "must be a non-empty string")
	}
	return nil
}

// encodeMetadata serializes the caller's mapping to the string encoding
// the wire expects. nil means an empty mapping; the library never decodes
// metadata on the way back.
func encodeMetadata(metadata map[string]interface{}) (string, error) {
	if metadata == nil {
		return emptyMetadata, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", invalidArg("metadata", "must be JSON-encodable: "+err.Error())
	}
	return string(raw), nil
}

func taskID(id string) func(*dynamicpb.Message) error {
	return func(in *dynamicpb.Message) error {
		return schema.SetString(in, "id", id)
	}
}

func bucketName(name, newName string) func(*dynamicpb.Message) error {
	return func(in *dynamicpb.Message) error {
		if err := schema.SetString(in, "name", name); err != nil {
			return err
		}
		if newName != "" {
			return schema.SetString(in, "new_name", newName)
		}
		return nil
	}
}
