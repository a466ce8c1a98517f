package ssmmgr

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/scieloorg/ssm-go/pkg/prototest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSchemaCache leaves a compiled descriptor set where the provisioner
// looks for it, so manager construction needs no network and no protoc.
func seedSchemaCache(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "opac.desc"), prototest.DescriptorBytes(), 0644))
	return dir
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewManagerDefaults(t *testing.T) {
	t.Setenv("OPAC_SSM_SCHEMA_CACHE_DIR", seedSchemaCache(t))

	mgr, err := NewManager(map[string]interface{}{"logger": quietLogger()})
	require.NoError(t, err)
	defer mgr.Destroy()

	assert.NotNil(t, mgr.Client)
	assert.Equal(t, "localhost", mgr.Cfg.GetString("server.host"))
	assert.Equal(t, "5000", mgr.Cfg.GetString("server.port"))
	assert.Equal(t, "8001", mgr.Cfg.GetString("server.httpPort"))
	assert.Equal(t, "/static/proto/opac.proto", mgr.Cfg.GetString("server.protoPath"))
}

func TestNewManagerEnvOverrides(t *testing.T) {
	t.Setenv("OPAC_SSM_SCHEMA_CACHE_DIR", seedSchemaCache(t))
	t.Setenv("OPAC_SSM_GRPC_SERVER_HOST", "ssm.internal")
	t.Setenv("OPAC_SSM_GRPC_SERVER_PORT", "6000")
	t.Setenv("OPAC_SSM_PORT", "9001")
	t.Setenv("OPAC_SSM_PROTO_FILE_PATH", "/proto/ssm.proto")

	mgr, err := NewManager(map[string]interface{}{"logger": quietLogger()})
	require.NoError(t, err)
	defer mgr.Destroy()

	assert.Equal(t, "ssm.internal", mgr.Cfg.GetString("server.host"))
	assert.Equal(t, "6000", mgr.Cfg.GetString("server.port"))
	assert.Equal(t, "9001", mgr.Cfg.GetString("server.httpPort"))
	assert.Equal(t, "/proto/ssm.proto", mgr.Cfg.GetString("server.protoPath"))
}

func TestNewManagerConfigFile(t *testing.T) {
	cacheDir := seedSchemaCache(t)
	cfgFile := filepath.Join(t.TempDir(), "ssm.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"server:\n  host: cfg.example.org\n  port: \"7000\"\nschema:\n  cacheDir: "+cacheDir+"\n"), 0644))

	mgr, err := NewManager(map[string]interface{}{
		"config-file": cfgFile,
		"logger":      quietLogger(),
	})
	require.NoError(t, err)
	defer mgr.Destroy()

	assert.Equal(t, "cfg.example.org", mgr.Cfg.GetString("server.host"))
	assert.Equal(t, "7000", mgr.Cfg.GetString("server.port"))
}

func TestNewManagerBadOptions(t *testing.T) {
	_, err := NewManager(map[string]interface{}{"config-file": 42})
	assert.Error(t, err)

	_, err = NewManager(map[string]interface{}{"logger": "not a logger"})
	assert.Error(t, err)

	_, err = NewManager(map[string]interface{}{
		"config-file": "/does/not/exist.yaml",
		"logger":      quietLogger(),
	})
	assert.Error(t, err)
}
