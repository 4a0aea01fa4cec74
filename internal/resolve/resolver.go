package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/dahlia-labs/deployctl/internal/document"
	"github.com/dahlia-labs/deployctl/internal/logger"
)

// DefaultMaxPasses bounds ReadAndSwap. Acyclic references settle in at most as many
// passes as the longest reference chain.
const DefaultMaxPasses = 64

var tokenPattern = regexp.MustCompile(`\$\{([\w.-]+)\}`)

type (
	// LookupEnv resolves a name against the process environment.
	LookupEnv func(name string) (string, bool)

	Option func(*Resolver)

	// Resolver substitutes ${path.to.key} placeholders to a fixed point.
	Resolver struct {
		lookupEnv LookupEnv
		maxPasses int
		logger    *slog.Logger
	}
)

func WithLookupEnv(fn LookupEnv) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookupEnv = fn
		}
	}
}

func WithMaxPasses(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{
		lookupEnv: os.LookupEnv,
		maxPasses: DefaultMaxPasses,
		logger:    logger.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Substitute replaces every ${name} in s found in scope (as a dotted path) or,
// failing that, in the environment. Unknown tokens are left verbatim.
func (r *Resolver) Substitute(scope *document.Map, s string) (bool, string) {
	changed := false
	result := tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-1]

		if v, ok := scope.Lookup(name); ok {
			changed = true
			return v.Render()
		}
		if env, ok := r.lookupEnv(name); ok {
			changed = true
			return env
		}
		return token
	})
	return changed, result
}

// Transform applies Substitute to every string reachable from node and returns a
// new tree; node itself is left untouched.
func (r *Resolver) Transform(scope *document.Map, node *document.Value) (bool, *document.Value) {
	var changed []string
	result := r.transform(scope, node, "", &changed)
	return len(changed) > 0, result
}

func (r *Resolver) transform(scope *document.Map, node *document.Value, path string, changed *[]string) *document.Value {
	switch node.Kind() {
	case document.KindMap:
		src, _ := node.AsMap()
		out := document.NewMap()
		for _, key := range src.Keys() {
			child, _ := src.Get(key)
			out.Set(key, r.transform(scope, child, join(path, key), changed))
		}
		return document.FromMap(out)

	case document.KindSequence:
		items, _ := node.AsSequence()
		out := make([]*document.Value, len(items))
		for i, item := range items {
			switch item.Kind() {
			case document.KindMap, document.KindString:
				out[i] = r.transform(scope, item, join(path, strconv.Itoa(i)), changed)
			default:
				out[i] = item.Clone()
			}
		}
		return document.Sequence(out...)

	case document.KindString:
		s, _ := node.AsString()
		ok, replaced := r.Substitute(scope, s)
		if ok {
			*changed = append(*changed, path)
		}
		return document.String(replaced)

	default:
		return node.Clone()
	}
}

// ReadAndSwap repeats Transform(doc, doc), each pass looking values up in the
// previous pass's output, until a pass changes nothing.
func (r *Resolver) ReadAndSwap(doc *document.Map) (*document.Map, error) {
	current := document.FromMap(doc)

	for pass := 1; ; pass++ {
		var changed []string
		scope, _ := current.AsMap()
		next := r.transform(scope, current, "", &changed)

		if len(changed) == 0 {
			r.logger.With("passes", pass).Debug("substitution reached a fixed point")
			out, _ := next.AsMap()
			return out, nil
		}

		if pass >= r.maxPasses {
			slices.Sort(changed)
			return nil, &CycleError{Key: changed[0], Passes: pass}
		}

		current = next
	}
}

// Resolve runs the full resolution sequence: substitute the base document, merge
// the environment-specific subtree and the injected fields on top, substitute again.
func (r *Resolver) Resolve(doc *document.Map, environmentType string, injected *document.Map) (*document.Map, error) {
	swapped, err := r.ReadAndSwap(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base document: %w", err)
	}

	var overlay *document.Map
	if environmentType != "" {
		if v, ok := swapped.Get(environmentType); ok && v.Kind() == document.KindMap {
			overlay, _ = v.AsMap()
		} else if ok {
			r.logger.With("environment_type", environmentType, "kind", v.Kind().String()).
				Warn("environment entry is not a map, skipping environment merge")
		}
	}

	merged := document.Merge(swapped, overlay, injected)

	resolved, err := r.ReadAndSwap(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve merged document: %w", err)
	}

	return resolved, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
