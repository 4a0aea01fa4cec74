// Package deployconfig loads the layered deployment configuration and resolves it
// for one environment.
package deployconfig

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/dahlia-labs/deployctl/internal/envid"
	"github.com/dahlia-labs/deployctl/internal/infra/filesystem"
	"github.com/dahlia-labs/deployctl/internal/logger"
)

// TimestampLayout renders as YYYYMMDDHHmmss.
const TimestampLayout = "20060102150405"

const (
	envIDKey      = "envId"
	envIDUpperKey = "ENVID"
	timestampKey  = "timestamp"
)

type (
	identityResolver interface {
		Resolve(ctx context.Context, doc *document.Map, explicit string) (envid.Identity, error)
	}

	variableResolver interface {
		Resolve(doc *document.Map, environmentType string, injected *document.Map) (*document.Map, error)
	}

	Loader struct {
		path      string
		reader    filesystem.Reader
		identity  identityResolver
		variables variableResolver
		timestamp string
		logger    *slog.Logger
	}

	// ResolvedConfig is a fully substituted configuration document for one environment.
	ResolvedConfig struct {
		Doc       *document.Map
		Identity  envid.Identity
		Timestamp string
	}
)

// NewLoader reads the base document from path. The timestamp injected into every
// loaded config is taken from now once, so repeated loads agree on it.
func NewLoader(path string, reader filesystem.Reader, identity identityResolver, variables variableResolver, now time.Time) *Loader {
	return &Loader{
		path:      path,
		reader:    reader,
		identity:  identity,
		variables: variables,
		timestamp: now.Format(TimestampLayout),
		logger:    logger.Named("config_loader"),
	}
}

// Load merges extra on top of the base document, determines the environment and
// resolves every placeholder.
func (l *Loader) Load(ctx context.Context, env string, extra *document.Map) (*ResolvedConfig, error) {
	base, err := l.reader.ReadYAML(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	merged := document.Merge(base, extra)

	identity, err := l.identity.Resolve(ctx, merged, env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve environment: %w", err)
	}

	injected := document.NewMap()
	if identity.EnvID != "" {
		injected.SetString(envIDKey, identity.EnvID)
		injected.SetString(envIDUpperKey, strings.ToUpper(identity.EnvID))
	}
	injected.SetString(timestampKey, l.timestamp)

	resolved, err := l.variables.Resolve(merged, identity.EnvironmentType, injected)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config variables: %w", err)
	}

	l.logger.
		With("config_file", l.path).
		With("env_id", identity.EnvID).
		With("environment_type", identity.EnvironmentType).
		Debug("config loaded")

	return &ResolvedConfig{Doc: resolved, Identity: identity, Timestamp: l.timestamp}, nil
}

// String returns the scalar at the dotted path key.
func (c *ResolvedConfig) String(key string) (string, error) {
	return c.Doc.StringAt(key)
}

// RequireSettings fails with a ConfigValidationError naming every key that is
// absent, null or empty.
func (c *ResolvedConfig) RequireSettings(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if !c.has(key) {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return &ConfigValidationError{Missing: missing}
	}
	return nil
}

func (c *ResolvedConfig) has(key string) bool {
	v, ok := c.Doc.Lookup(key)
	if !ok || v.Kind() == document.KindNull {
		return false
	}
	return !(v.Kind() == document.KindString && v.Text() == "")
}

// Log reports the environment as envId/environmentType, "-" standing for an empty part.
func (c *ResolvedConfig) Log(log *slog.Logger) {
	log.With("environment", c.Identity.String()).Info("using environment")
}
