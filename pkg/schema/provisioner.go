package schema

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	protoFileName = "opac.proto"
	descFileName  = "opac.desc"
)

// Config locates the server's published .proto and the local cache for the
// compiled descriptor set. All fields are resolved by the caller up front;
// nothing here reads the environment.
type Config struct {
	// Host serves both the gRPC endpoint and the schema file.
	Host string
	// HTTPPort is the plain-HTTP port the .proto is published on.
	HTTPPort string
	// ProtoPath is the resource path of the .proto on that port.
	ProtoPath string
	// CacheDir holds the fetched .proto and compiled descriptor set
	// between process runs.
	CacheDir string
}

// FetchError reports a failed HTTP retrieval of the schema file. It is
// fatal to client construction; an existing client is unaffected.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching schema from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching schema from %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Provisioner ensures a compiled, callable schema is available locally. It
// holds the active Schema behind an atomic pointer: Ensure resolves the
// current handle, Refresh builds a new one and swaps the reference. Handles
// already resolved keep their version.
type Provisioner struct {
	cfg      Config
	log      logrus.FieldLogger
	compiler Compiler
	client   *http.Client

	mu      sync.Mutex
	version int
	active  atomic.Pointer[Schema]
}

func NewProvisioner(cfg Config, logger logrus.FieldLogger) *Provisioner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Provisioner{
		cfg:      cfg,
		log:      logger,
		compiler: &ProtocCompiler{},
		client:   &http.Client{},
	}
}

// SetCompiler replaces the external compiler invocation. Must be called
// before the first Ensure.
func (p *Provisioner) SetCompiler(c Compiler) {
	p.compiler = c
}

// Active returns the currently loaded schema, or nil if Ensure has not
// succeeded yet.
func (p *Provisioner) Active() *Schema {
	return p.active.Load()
}

// Ensure returns a loaded schema, doing as little work as possible: an
// already-active handle wins, then a previously compiled descriptor set on
// disk, and only then the network. force skips both shortcuts and refetches
// from the server. Any fetch/compile/load failure is returned as-is; there
// is no retry loop.
func (p *Provisioner) Ensure(force bool) (*Schema, error) {
	if !force {
		if s := p.active.Load(); s != nil {
			return s, nil
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !force {
		// Lost a race to another Ensure.
		if s := p.active.Load(); s != nil {
			return s, nil
		}
		if s, err := p.loadCached(); err == nil {
			p.active.Store(s)
			return s, nil
		}
	}

	s, err := p.fetchAndCompile()
	if err != nil {
		return nil, err
	}
	p.active.Store(s)
	return s, nil
}

// Refresh refetches, recompiles, and atomically swaps the active schema.
func (p *Provisioner) Refresh() (*Schema, error) {
	return p.Ensure(true)
}

// loadCached loads the descriptor set left on disk by a previous run. A
// stale cached schema is used without refetching unless the caller forces
// a refresh.
func (p *Provisioner) loadCached() (*Schema, error) {
	descBytes, err := os.ReadFile(p.descPath())
	if err != nil {
		return nil, err
	}
	p.version++
	s, err := Load(descBytes, p.version)
	if err != nil {
		p.log.WithError(err).Warnf("Cached descriptor set at %s is unusable", p.descPath())
		return nil, err
	}
	p.log.Debugf("Loaded cached schema (version %d) from %s", s.Version(), p.descPath())
	return s, nil
}

func (p *Provisioner) fetchAndCompile() (*Schema, error) {
	url := fmt.Sprintf("http://%s%s",
		net.JoinHostPort(p.cfg.Host, p.cfg.HTTPPort), p.cfg.ProtoPath)
	p.log.Infof("Retrieving proto file from URL: %s", url)

	resp, err := p.client.Get(url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	if err := os.MkdirAll(p.cfg.CacheDir, 0755); err != nil {
		return nil, errors.Wrap(err, "Failed to create schema cache directory")
	}
	if err := os.WriteFile(p.protoPath(), body, 0644); err != nil {
		return nil, errors.Wrap(err, "Failed to write proto file")
	}

	if err := p.compiler.Compile(p.protoPath(), p.descPath()); err != nil {
		return nil, errors.Wrap(err, "Failed to compile proto file")
	}

	descBytes, err := os.ReadFile(p.descPath())
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read compiled descriptor set")
	}

	p.version++
	s, err := Load(descBytes, p.version)
	if err != nil {
		return nil, err
	}
	p.log.Infof("Loaded schema version %d (services: %v)", s.Version(), s.Services())
	return s, nil
}

func (p *Provisioner) protoPath() string {
	return filepath.Join(p.cfg.CacheDir, protoFileName)
}

func (p *Provisioner) descPath() string {
	return filepath.Join(p.cfg.CacheDir, descFileName)
}
