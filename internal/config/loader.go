package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/linen/internal/ctxlog"
	"github.com/specialistvlad/linen/internal/fsutil"
)

// Loader is the interface for a configuration loader.
type Loader interface {
	// Load reads every configuration file under paths and merges them, in
	// order, into a validated model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// decodeFunc turns one file's bytes into its contribution to the model.
type decodeFunc func(path string, src []byte, environ []string) (*filePart, error)

var decoders = map[string]decodeFunc{
	".hcl":  decodeHCL,
	".yaml": decodeYAML,
	".yml":  decodeYAML,
}

// FileLoader loads HCL and YAML files. It is the default Loader.
type FileLoader struct {
	environ func() []string
}

// LoaderOption customizes a FileLoader.
type LoaderOption func(*FileLoader)

// WithEnviron replaces os.Environ as the source of env.NAME values and
// LINEN_* overrides.
func WithEnviron(environ []string) LoaderOption {
	return func(l *FileLoader) {
		l.environ = func() []string { return environ }
	}
}

// NewLoader creates a new file configuration loader.
func NewLoader(opts ...LoaderOption) *FileLoader {
	l := &FileLoader{environ: os.Environ}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements Loader. With no paths the defaults are returned, still
// subject to environment overrides.
func (l *FileLoader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Config loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl", ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered config files.", "files", files)

	environ := l.environ()
	model := NewModel()
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		decode := decoders[strings.ToLower(filepath.Ext(file))]
		part, err := decode(file, src, environ)
		if err != nil {
			return nil, err
		}
		if err := model.merge(part); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if err := ApplyEnv(&model.Runtime, environ); err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("Config loading complete.", "files", len(files), "modules", len(model.Modules), "tick_rate", model.Runtime.TickRate)
	return model, nil
}
