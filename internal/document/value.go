// Package document implements the schema-less configuration tree shared by the
// config loader, the variable resolver and the deployed-contracts bookkeeping.
//
// A document is a tagged value tree: every node is a Value of one Kind. Maps keep
// the insertion order of their keys so that documents read from YAML can be walked
// in file order; they are written back with sorted keys.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindSequence
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single node of a document.
// Scalars keep their source text verbatim, numbers included, so that large
// integers such as wei amounts never lose precision.
type Value struct {
	kind  Kind
	text  string
	items []*Value
	m     *Map
}

func Null() *Value { return &Value{kind: KindNull} }

func String(s string) *Value { return &Value{kind: KindString, text: s} }

func Int(i int64) *Value { return &Value{kind: KindInt, text: strconv.FormatInt(i, 10)} }

func Float(f float64) *Value {
	return &Value{kind: KindFloat, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

func Bool(b bool) *Value { return &Value{kind: KindBool, text: strconv.FormatBool(b)} }

// Scalar builds a scalar of the given kind from its textual form.
func Scalar(kind Kind, text string) *Value {
	return &Value{kind: kind, text: text}
}

func Sequence(items ...*Value) *Value {
	return &Value{kind: KindSequence, items: items}
}

func FromMap(m *Map) *Value {
	if m == nil {
		m = NewMap()
	}
	return &Value{kind: KindMap, m: m}
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

func (v *Value) IsScalar() bool {
	return v.Kind() != KindSequence && v.Kind() != KindMap
}

// Text returns the textual form of a scalar. Containers return "".
func (v *Value) Text() string {
	if v == nil || !v.IsScalar() {
		return ""
	}
	if v.kind == KindNull {
		return "null"
	}
	return v.text
}

// AsString returns the value when it is a string.
func (v *Value) AsString() (string, error) {
	if v.Kind() != KindString {
		return "", &ShapeError{Want: KindString, Got: v.Kind()}
	}
	return v.text, nil
}

// AsScalar returns the text of any non-null scalar.
func (v *Value) AsScalar() (string, error) {
	if !v.IsScalar() || v.Kind() == KindNull {
		return "", &ShapeError{Want: KindString, Got: v.Kind()}
	}
	return v.text, nil
}

func (v *Value) AsMap() (*Map, error) {
	if v.Kind() != KindMap {
		return nil, &ShapeError{Want: KindMap, Got: v.Kind()}
	}
	return v.m, nil
}

func (v *Value) AsSequence() ([]*Value, error) {
	if v.Kind() != KindSequence {
		return nil, &ShapeError{Want: KindSequence, Got: v.Kind()}
	}
	return v.items, nil
}

// Render converts the value to the string spliced into a ${...} placeholder.
// Sequences are joined with commas and maps are rendered as compact JSON.
func (v *Value) Render() string {
	switch v.Kind() {
	case KindSequence:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.Render()
		}
		return strings.Join(parts, ",")
	case KindMap:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprint(v.Interface())
		}
		return string(data)
	default:
		return v.Text()
	}
}

// Interface converts the value to plain Go values.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindString:
		return v.text
	case KindInt:
		if i, err := strconv.ParseInt(v.text, 0, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(v.text, 0, 64); err == nil {
			return u
		}
		return json.Number(v.text)
	case KindFloat:
		if f, err := strconv.ParseFloat(v.text, 64); err == nil {
			return f
		}
		return v.text
	case KindBool:
		return v.text == "true"
	case KindSequence:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		return v.m.Interface()
	}
	return nil
}

func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, text: v.text}
	if v.items != nil {
		out.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	}
	if v.m != nil {
		out.m = v.m.Clone()
	}
	return out
}

// Equal reports deep equality, including map key order.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindSequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return v.Text() == o.Text()
	}
}

// FromAny converts plain Go values into a document value.
// Go maps are converted with sorted keys.
func FromAny(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		return t.Clone(), nil
	case *Map:
		return FromMap(t.Clone()), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint64:
		return Scalar(KindInt, strconv.FormatUint(t, 10)), nil
	case float64:
		return Float(t), nil
	case []string:
		items := make([]*Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Sequence(items...), nil
	case []any:
		items := make([]*Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return Sequence(items...), nil
	case map[string]string:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			m.Set(k, String(t[k]))
		}
		return FromMap(m), nil
	case map[string]any:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			v, err := FromAny(t[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, v)
		}
		return FromMap(m), nil
	default:
		return nil, fmt.Errorf("unsupported document value of type %T", x)
	}
}

// MustFromAny is FromAny for literals known to be convertible.
func MustFromAny(x any) *Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}
