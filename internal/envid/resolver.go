// Package envid decides which named environment a configuration is resolved for.
package envid

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/dahlia-labs/deployctl/internal/logger"
)

const (
	environmentsKey = "environments"
	staticKey       = "static"
	defaultKey      = "default"

	maxBranchIDLength = 13
)

type (
	branchReader interface {
		CurrentBranch(ctx context.Context) (string, error)
	}

	// Identity is the active environment: EnvID is the raw token, EnvironmentType
	// the key holding the environment-specific overrides. Either may be empty.
	Identity struct {
		EnvID           string
		EnvironmentType string
	}

	Resolver struct {
		branch branchReader
		logger *slog.Logger
	}
)

func NewResolver(branch branchReader) *Resolver {
	return &Resolver{
		branch: branch,
		logger: logger.Named("envid"),
	}
}

// EnvID returns explicit when set, otherwise an identifier derived from the current
// git branch. Failures are logged and produce "".
func (r *Resolver) EnvID(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if r.branch == nil {
		return ""
	}

	branch, err := r.branch.CurrentBranch(ctx)
	if err != nil {
		r.logger.With("err", err.Error()).Warn("could not derive environment from git branch")
		return ""
	}

	return BranchToEnvID(branch)
}

// BranchToEnvID keeps the last path segment of a branch name, without line breaks,
// truncated to 13 characters and without trailing hyphens.
func BranchToEnvID(branch string) string {
	if i := strings.LastIndex(branch, "/"); i >= 0 {
		branch = branch[i+1:]
	}
	branch = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(branch)

	if runes := []rune(branch); len(runes) > maxBranchIDLength {
		branch = string(runes[:maxBranchIDLength])
	}

	return strings.TrimRight(branch, "-")
}

// Resolve computes the identity of doc for the given explicit environment.
func (r *Resolver) Resolve(ctx context.Context, doc *document.Map, explicit string) (Identity, error) {
	envID := r.EnvID(ctx, explicit)

	candidates, fallback, err := Candidates(doc)
	if err != nil {
		return Identity{}, err
	}

	identity := Identity{EnvID: envID, EnvironmentType: fallback}
	if envID != "" && slices.Contains(candidates, envID) {
		identity.EnvironmentType = envID
	}

	return identity, nil
}

// Candidates returns the recognized environment names and the configured default.
// Names come from environments.static when present, else from the top-level keys.
func Candidates(doc *document.Map) ([]string, string, error) {
	if absent(doc, environmentsKey) {
		return doc.Keys(), "", nil
	}
	environments, err := doc.Map(environmentsKey)
	if err != nil {
		return nil, "", fmt.Errorf("invalid environments section: %w", err)
	}

	candidates := doc.Keys()
	if !absent(environments, staticKey) {
		if candidates, err = environments.Strings(staticKey); err != nil {
			return nil, "", fmt.Errorf("invalid environments section: %w", err)
		}
	}

	var fallback string
	if !absent(environments, defaultKey) {
		if fallback, err = environments.String(defaultKey); err != nil {
			return nil, "", fmt.Errorf("invalid environments section: %w", err)
		}
	}

	return candidates, fallback, nil
}

// absent treats a key left empty in YAML (null) like a missing one.
func absent(m *document.Map, key string) bool {
	v, ok := m.Get(key)
	return !ok || v.Kind() == document.KindNull
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%s", orDash(i.EnvID), orDash(i.EnvironmentType))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
