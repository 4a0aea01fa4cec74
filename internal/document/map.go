package document

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Map is an insertion-ordered string-keyed map of values.
type Map struct {
	keys   []string
	values map[string]*Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]*Value)}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

func (m *Map) SortedKeys() []string {
	keys := m.Keys()
	slices.Sort(keys)
	return keys
}

func (m *Map) Get(key string) (*Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key. Existing keys keep their position.
func (m *Map) Set(key string, v *Value) {
	if v == nil {
		v = Null()
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Map) SetString(key, s string) {
	m.Set(key, String(s))
}

// String returns the scalar stored under key.
func (m *Map) String(key string) (string, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", &NotFoundError{Path: key}
	}
	s, err := v.AsScalar()
	if err != nil {
		return "", withPath(err, key)
	}
	return s, nil
}

// Map returns the nested map stored under key.
func (m *Map) Map(key string) (*Map, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, &NotFoundError{Path: key}
	}
	nested, err := v.AsMap()
	if err != nil {
		return nil, withPath(err, key)
	}
	return nested, nil
}

// Sequence returns the sequence stored under key.
func (m *Map) Sequence(key string) ([]*Value, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, &NotFoundError{Path: key}
	}
	items, err := v.AsSequence()
	if err != nil {
		return nil, withPath(err, key)
	}
	return items, nil
}

// Strings returns the sequence stored under key, requiring string elements.
func (m *Map) Strings(key string) ([]string, error) {
	items, err := m.Sequence(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := item.AsString()
		if err != nil {
			return nil, withPath(err, key+"."+strconv.Itoa(i))
		}
		out = append(out, s)
	}
	return out, nil
}

// Lookup resolves a dotted path. A literal key equal to the whole path wins over
// traversal; numeric segments index into sequences.
func (m *Map) Lookup(path string) (*Value, bool) {
	if v, ok := m.Get(path); ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	cur := FromMap(m)
	for _, segment := range strings.Split(path, ".") {
		switch cur.Kind() {
		case KindMap:
			next, ok := cur.m.Get(segment)
			if !ok {
				return nil, false
			}
			cur = next
		case KindSequence:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(cur.items) {
				return nil, false
			}
			cur = cur.items[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// StringAt resolves a dotted path to a scalar.
func (m *Map) StringAt(path string) (string, error) {
	v, ok := m.Lookup(path)
	if !ok {
		return "", &NotFoundError{Path: path}
	}
	s, err := v.AsScalar()
	if err != nil {
		return "", withPath(err, path)
	}
	return s, nil
}

// StringEntries returns the top-level entries holding strings.
func (m *Map) StringEntries() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		if v := m.values[k]; v.Kind() == KindString {
			out[k] = v.text
		}
	}
	return out
}

func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{keys: slices.Clone(m.keys), values: make(map[string]*Value, len(m.values))}
	for k, v := range m.values {
		out.values[k] = v.Clone()
	}
	return out
}

func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	if m.Len() == 0 {
		return true
	}
	if !slices.Equal(m.keys, o.keys) {
		return false
	}
	for _, k := range m.keys {
		if !m.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}

func (m *Map) Interface() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out[k] = m.values[k].Interface()
	}
	return out
}

// Merge returns a new map holding base with every source deep-merged on top.
// Later sources win key by key; nested maps are merged recursively and any other
// value replaces the previous one. Nil sources are ignored.
func Merge(base *Map, sources ...*Map) *Map {
	out := base.Clone()
	if out == nil {
		out = NewMap()
	}
	for _, src := range sources {
		mergeInto(out, src)
	}
	return out
}

func mergeInto(dst, src *Map) {
	if src == nil {
		return
	}
	for _, k := range src.keys {
		sv := src.values[k]
		if dv, ok := dst.values[k]; ok && dv.Kind() == KindMap && sv.Kind() == KindMap {
			nested := dv.m.Clone()
			mergeInto(nested, sv.m)
			dst.Set(k, FromMap(nested))
			continue
		}
		dst.Set(k, sv.Clone())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp.Compare[string])
	return keys
}
