package resolve

import (
	"errors"
	"testing"

	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docOf(t *testing.T, x map[string]any) *document.Map {
	t.Helper()
	v, err := document.FromAny(x)
	require.NoError(t, err)
	m, err := v.AsMap()
	require.NoError(t, err)
	return m
}

func envOf(vars map[string]string) LookupEnv {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestSubstitute(t *testing.T) {
	r := New(WithLookupEnv(envOf(map[string]string{"FOO": "from-env", "b": "shadowed"})))
	scope := docOf(t, map[string]any{
		"b":      "x",
		"nested": map[string]any{"port": 8545},
		"list":   []any{"one", "two"},
	})

	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"config key", "${b}", "x", true},
		{"config wins over env", "${b}-${FOO}", "x-from-env", true},
		{"dotted path", "http://localhost:${nested.port}", "http://localhost:8545", true},
		{"sequence index", "${list.1}", "two", true},
		{"sequence render", "${list}", "one,two", true},
		{"env fallback", "${FOO}", "from-env", true},
		{"unknown kept verbatim", "${MISSING}", "${MISSING}", false},
		{"mixed known and unknown", "${b}/${MISSING}", "x/${MISSING}", true},
		{"no tokens", "plain", "plain", false},
		{"invalid identifier untouched", "${not valid}", "${not valid}", false},
		{"hyphenated identifier", "${with-dash}", "${with-dash}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, got := r.Substitute(scope, tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestTransformWalksMapsAndSequences(t *testing.T) {
	r := New(WithLookupEnv(envOf(nil)))
	doc := docOf(t, map[string]any{
		"name": "vault",
		"items": []any{
			"${name}",
			map[string]any{"label": "${name}-0"},
			[]any{"${name}"},
			7,
		},
		"count": 3,
	})

	changed, out := r.Transform(doc, document.FromMap(doc))
	require.True(t, changed)

	m, err := out.AsMap()
	require.NoError(t, err)
	items, err := m.Sequence("items")
	require.NoError(t, err)

	assert.Equal(t, "vault", items[0].Text())
	label, err := m.StringAt("items.1.label")
	require.NoError(t, err)
	assert.Equal(t, "vault-0", label)
	nested, _ := items[2].AsSequence()
	assert.Equal(t, "${name}", nested[0].Text(), "nested sequences are left unchanged")
	assert.Equal(t, document.KindInt, items[3].Kind())

	original, _ := doc.Sequence("items")
	assert.Equal(t, "${name}", original[0].Text(), "input document is not mutated")
}

func TestReadAndSwapChain(t *testing.T) {
	r := New(WithLookupEnv(envOf(nil)))
	doc := docOf(t, map[string]any{
		"a": "${b}",
		"b": "${c}",
		"c": "${d}",
		"d": "end",
	})

	out, err := r.ReadAndSwap(doc)
	require.NoError(t, err)
	for _, key := range []string{"a", "b", "c", "d"} {
		v, err := out.String(key)
		require.NoError(t, err)
		assert.Equal(t, "end", v, key)
	}
}

func TestReadAndSwapIsIdempotent(t *testing.T) {
	r := New(WithLookupEnv(envOf(map[string]string{"HOME_DIR": "/home/dev"})))
	doc := docOf(t, map[string]any{
		"a":     "${b}",
		"b":     "${HOME_DIR}/x",
		"keep":  "${UNKNOWN}",
		"multi": []any{"${a}", map[string]any{"k": "${b}"}},
	})

	once, err := r.ReadAndSwap(doc)
	require.NoError(t, err)

	changed, again := r.Transform(once, document.FromMap(once))
	assert.False(t, changed, "resolved output must be a fixed point")
	assert.True(t, document.FromMap(once).Equal(again))

	keep, _ := once.String("keep")
	assert.Equal(t, "${UNKNOWN}", keep)
}

func TestReadAndSwapDetectsCycles(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		key  string
	}{
		{"two keys", map[string]any{"a": "${b}", "b": "${a}"}, "a"},
		{"self reference", map[string]any{"ok": "fine", "self": "${self}"}, "self"},
		{"growing", map[string]any{"x": "${x}${x}"}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithLookupEnv(envOf(nil)), WithMaxPasses(8))
			_, err := r.ReadAndSwap(docOf(t, tt.doc))
			require.Error(t, err)

			var cycleErr *CycleError
			require.True(t, errors.As(err, &cycleErr))
			assert.Equal(t, tt.key, cycleErr.Key)
			assert.Equal(t, 8, cycleErr.Passes)
		})
	}
}

func TestResolveEnvironmentPrecedence(t *testing.T) {
	r := New(WithLookupEnv(envOf(nil)))
	doc := docOf(t, map[string]any{
		"RPC_URL": "https://base.example.org",
		"LABEL":   "${NAME}@${RPC_URL}",
		"NAME":    "base",
		"nested":  map[string]any{"x": "1", "y": "2"},
		"mainnet": map[string]any{
			"RPC_URL": "https://mainnet.example.org",
			"nested":  map[string]any{"y": "20"},
		},
	})
	injected := docOf(t, map[string]any{"envId": "mainnet", "ENVID": "MAINNET", "timestamp": "20240102030405"})

	out, err := r.Resolve(doc, "mainnet", injected)
	require.NoError(t, err)

	rpc, _ := out.String("RPC_URL")
	assert.Equal(t, "https://mainnet.example.org", rpc)

	// LABEL was substituted before the environment merge
	label, _ := out.String("LABEL")
	assert.Equal(t, "base@https://base.example.org", label)

	x, _ := out.StringAt("nested.x")
	y, _ := out.StringAt("nested.y")
	assert.Equal(t, "1", x)
	assert.Equal(t, "20", y)

	envID, _ := out.String("ENVID")
	assert.Equal(t, "MAINNET", envID)
}

func TestResolveLateReferences(t *testing.T) {
	r := New(WithLookupEnv(envOf(nil)))
	doc := docOf(t, map[string]any{
		"COMPOSE_PROJECT": "dahlia-${envId}",
		"local":           map[string]any{"c": "${COMPOSE_PROJECT}-${timestamp}"},
	})
	injected := docOf(t, map[string]any{"envId": "local", "timestamp": "20240102030405"})

	out, err := r.Resolve(doc, "local", injected)
	require.NoError(t, err)

	c, _ := out.String("c")
	assert.Equal(t, "dahlia-local-20240102030405", c)
}

func TestResolveWithoutEnvironment(t *testing.T) {
	r := New(WithLookupEnv(envOf(nil)))
	doc := docOf(t, map[string]any{"a": "x", "local": "not a map"})

	out, err := r.Resolve(doc, "local", nil)
	require.NoError(t, err)
	a, _ := out.String("a")
	assert.Equal(t, "x", a)

	out, err = r.Resolve(doc, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestResolveReportsCycles(t *testing.T) {
	r := New(WithLookupEnv(envOf(nil)), WithMaxPasses(4))
	doc := docOf(t, map[string]any{"a": "ok", "dev": map[string]any{"p": "${q}", "q": "${p}"}})

	_, err := r.Resolve(doc, "dev", nil)
	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, "dev.p", cycleErr.Key)
}
