package envid

import (
	"context"
	"errors"
	"testing"

	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBranch struct {
	name string
	err  error
	hits int
}

func (f *fakeBranch) CurrentBranch(context.Context) (string, error) {
	f.hits++
	return f.name, f.err
}

func docOf(t *testing.T, x map[string]any) *document.Map {
	t.Helper()
	m, err := document.MustFromAny(x).AsMap()
	require.NoError(t, err)
	return m
}

func TestBranchToEnvID(t *testing.T) {
	tests := []struct {
		branch string
		want   string
	}{
		{"main\n", "main"},
		{"feature/cartio\n", "cartio"},
		{"remotes/origin/very-long-branch-name\n", "very-long-bra"},
		{"fix/abcdefghijkl-mn\r\n", "abcdefghijkl"},
		{"release-\n", "release"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.branch, func(t *testing.T) {
			assert.Equal(t, tt.want, BranchToEnvID(tt.branch))
		})
	}
}

func TestEnvIDPrefersExplicit(t *testing.T) {
	branch := &fakeBranch{name: "main\n"}
	r := NewResolver(branch)

	assert.Equal(t, "cartio", r.EnvID(context.Background(), "cartio"))
	assert.Equal(t, 0, branch.hits)

	assert.Equal(t, "main", r.EnvID(context.Background(), ""))
	assert.Equal(t, 1, branch.hits)
}

func TestEnvIDSwallowsBranchErrors(t *testing.T) {
	r := NewResolver(&fakeBranch{err: errors.New("not a git repository")})
	assert.Equal(t, "", r.EnvID(context.Background(), ""))

	assert.Equal(t, "", NewResolver(nil).EnvID(context.Background(), ""))
}

func TestResolve(t *testing.T) {
	withStatic := docOf(t, map[string]any{
		"environments": map[string]any{"static": []any{"local", "remote"}, "default": "local"},
		"cartio":       map[string]any{"RPC_PORT": 8546},
	})
	withoutStatic := docOf(t, map[string]any{
		"environments": map[string]any{"default": "mainnet"},
		"mainnet":      map[string]any{},
		"cartio":       map[string]any{},
	})
	bare := docOf(t, map[string]any{"cartio": map[string]any{}})
	emptySection, err := document.Parse([]byte("environments:\nlocal: {c: 1}\n"), "default.yml")
	require.NoError(t, err)
	nullKeys := docOf(t, map[string]any{
		"environments": map[string]any{"static": nil, "default": nil},
		"cartio":       map[string]any{},
	})

	tests := []struct {
		name     string
		doc      *document.Map
		explicit string
		want     Identity
	}{
		{"static match", withStatic, "remote", Identity{EnvID: "remote", EnvironmentType: "remote"}},
		{"not in static list falls back", withStatic, "cartio", Identity{EnvID: "cartio", EnvironmentType: "local"}},
		{"top-level keys as candidates", withoutStatic, "cartio", Identity{EnvID: "cartio", EnvironmentType: "cartio"}},
		{"unknown uses default", withoutStatic, "sepolia", Identity{EnvID: "sepolia", EnvironmentType: "mainnet"}},
		{"no environments section", bare, "cartio", Identity{EnvID: "cartio", EnvironmentType: "cartio"}},
		{"nothing resolves", bare, "sepolia", Identity{EnvID: "sepolia"}},
		{"empty environments section", emptySection, "local", Identity{EnvID: "local", EnvironmentType: "local"}},
		{"null static uses top-level keys", nullKeys, "cartio", Identity{EnvID: "cartio", EnvironmentType: "cartio"}},
		{"null default resolves nothing", nullKeys, "sepolia", Identity{EnvID: "sepolia"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeBranch{err: errors.New("no git")})
			got, err := r.Resolve(context.Background(), tt.doc, tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsMalformedEnvironments(t *testing.T) {
	r := NewResolver(nil)

	_, err := r.Resolve(context.Background(), docOf(t, map[string]any{"environments": "oops"}), "x")
	var shapeErr *document.ShapeError
	require.True(t, errors.As(err, &shapeErr))

	_, err = r.Resolve(context.Background(), docOf(t, map[string]any{
		"environments": map[string]any{"static": "local"},
	}), "x")
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "static", shapeErr.Path)
}

func TestIdentityString(t *testing.T) {
	assert.Equal(t, "-/-", Identity{}.String())
	assert.Equal(t, "cartio/local", Identity{EnvID: "cartio", EnvironmentType: "local"}.String())
}
