// Convenience wiring for the ssm client: resolves configuration from
// defaults, an optional config file, and the environment variables the SSM
// server deployment documents, then hands a ready client back. Deeper
// components never read the environment themselves.
package ssmmgr

import (
	"github.com/pkg/errors"
	"github.com/scieloorg/ssm-go/pkg/ssm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type SsmManager struct {
	Client *ssm.Client
	Logger logrus.FieldLogger
	Cfg    *viper.Viper
}

// NewManager builds a manager from a loosely typed option map. Recognized
// options:
//
//	"config-file"    : string, path to a viper-readable config file
//	"logger"         : logrus.FieldLogger, substitute for the default logger
//	"refresh-schema" : bool, force a schema refetch and recompile
func NewManager(userCfg map[string]interface{}) (*SsmManager, error) {
	var err error
	mgr := &SsmManager{}

	if cfgPathRaw, ok := userCfg["config-file"]; ok {
		if cfgPath, ok := cfgPathRaw.(string); ok {
			err = mgr.initConfig(&cfgPath)
		} else {
			return nil, errors.New("option 'config-file' must be of type string")
		}
	} else {
		err = mgr.initConfig(nil)
	}
	if err != nil {
		return nil, err
	}

	if loggerRaw, ok := userCfg["logger"]; ok {
		if logger, ok := loggerRaw.(logrus.FieldLogger); ok {
			mgr.Logger = logger
		} else {
			return nil, errors.New("option 'logger' must satisfy logrus.FieldLogger")
		}
	} else {
		mgr.Logger = logrus.New()
	}

	if refreshRaw, ok := userCfg["refresh-schema"]; ok {
		if refresh, ok := refreshRaw.(bool); ok {
			mgr.Cfg.Set("schema.refresh", refresh)
		} else {
			return nil, errors.New("option 'refresh-schema' must be of type bool")
		}
	}

	if err = mgr.initClient(); err != nil {
		return nil, err
	}

	return mgr, nil
}

// Destroy releases the client's channel. The manager is unusable afterwards.
func (mgr *SsmManager) Destroy() {
	if mgr.Client != nil {
		mgr.Client.Close()
	}
}

func (mgr *SsmManager) initConfig(cfgPath *string) error {
	// A private viper context just for ssm, so as not to conflict with the
	// importer's usage.
	mgr.Cfg = viper.New()

	def := ssm.DefaultConfig()
	mgr.Cfg.SetDefault("server.host", def.Host)
	mgr.Cfg.SetDefault("server.port", def.Port)
	mgr.Cfg.SetDefault("server.httpPort", def.HTTPPort)
	mgr.Cfg.SetDefault("server.protoPath", def.ProtoPath)
	mgr.Cfg.SetDefault("schema.cacheDir", def.CacheDir)
	mgr.Cfg.SetDefault("schema.refresh", false)

	// Environment names match the SSM server deployment docs. Order of
	// precedence: ENV, config file, defaults.
	mgr.Cfg.BindEnv("server.host", "OPAC_SSM_GRPC_SERVER_HOST")
	mgr.Cfg.BindEnv("server.port", "OPAC_SSM_GRPC_SERVER_PORT")
	mgr.Cfg.BindEnv("server.httpPort", "OPAC_SSM_PORT")
	mgr.Cfg.BindEnv("server.protoPath", "OPAC_SSM_PROTO_FILE_PATH")
	mgr.Cfg.BindEnv("schema.cacheDir", "OPAC_SSM_SCHEMA_CACHE_DIR")
	mgr.Cfg.BindEnv("schema.refresh", "OPAC_SSM_SCHEMA_REFRESH")

	if cfgPath != nil {
		mgr.Cfg.SetConfigFile(*cfgPath)
		if err := mgr.Cfg.ReadInConfig(); err != nil {
			return errors.Wrap(err, "Failed to load config")
		}
	}
	return nil
}

func (mgr *SsmManager) initClient() error {
	cfg := ssm.Config{
		Host:          mgr.Cfg.GetString("server.host"),
		Port:          mgr.Cfg.GetString("server.port"),
		HTTPPort:      mgr.Cfg.GetString("server.httpPort"),
		ProtoPath:     mgr.Cfg.GetString("server.protoPath"),
		CacheDir:      mgr.Cfg.GetString("schema.cacheDir"),
		RefreshSchema: mgr.Cfg.GetBool("schema.refresh"),
	}

	client, err := ssm.New(cfg, mgr.Logger.WithField("module", "ssm.client"))
	if err != nil {
		return errors.Wrap(err, "Failed to initialize ssm client")
	}
	mgr.Client = client
	return nil
}
