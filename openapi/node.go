package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"go.yaml.in/yaml/v4"
)

// Kind identifies the shape of a Node.
type Kind uint8

const (
	ScalarKind Kind = iota
	MappingKind
	SequenceKind
)

func (k Kind) String() string {
	switch k {
	case MappingKind:
		return "mapping"
	case SequenceKind:
		return "sequence"
	default:
		return "scalar"
	}
}

// Node is one value of a loosely typed OpenAPI document: an ordered mapping,
// a sequence, or a scalar (string, int64, float64, bool or nil).
//
// Mapping keys keep the order they had in the source text. A nil *Node reads
// as an absent value: lookups on it miss and accessors return zero values.
type Node struct {
	kind   Kind
	keys   []string
	fields map[string]*Node
	items  []*Node
	value  any
}

// NewMapping returns an empty mapping node.
func NewMapping() *Node {
	return &Node{kind: MappingKind, fields: make(map[string]*Node)}
}

// NewSequence returns a sequence node holding items.
func NewSequence(items ...*Node) *Node {
	return &Node{kind: SequenceKind, items: items}
}

// NewScalar returns a scalar node. Integers are stored as int64 and floats as
// float64; types outside the JSON scalar set are stored as their fmt form.
func NewScalar(v any) *Node {
	return &Node{kind: ScalarKind, value: normalizeScalar(v)}
}

func normalizeScalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uintScalar(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintScalar(x)
	case float32:
		return float64(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func uintScalar(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// FromValue converts plain Go values (map[string]any, []any, scalars) into a
// Node tree. Go maps have no order, so their keys are sorted. Values of any
// other type are converted through their JSON encoding.
func FromValue(v any) (*Node, error) {
	switch x := v.(type) {
	case *Node:
		return x.Clone(), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMapping()
		for _, k := range keys {
			child, err := FromValue(x[k])
			if err != nil {
				return nil, fmt.Errorf("converting key %q: %w", k, err)
			}
			m.Set(k, child)
		}
		return m, nil
	case []any:
		seq := NewSequence()
		for i, item := range x {
			child, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("converting item %d: %w", i, err)
			}
			seq.items = append(seq.items, child)
		}
		return seq, nil
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return NewScalar(x), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a JSON text into a Node, preserving object key order.
// Malformed input, and numbers outside the float64 range, yield a *ParseError.
func ParseJSON(data []byte) (*Node, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Format: "JSON", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	n, err := decodeJSON(dec)
	if err != nil {
		return nil, &ParseError{Format: "JSON", Err: err}
	}
	return n, nil
}

func decodeJSON(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", keyTok)
				}
				child, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			seq := NewSequence()
			for dec.More() {
				child, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				seq.items = append(seq.items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewScalar(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range", t)
		}
		return NewScalar(f), nil
	}
	// string, bool or nil
	return NewScalar(tok), nil
}

// ParseYAML decodes a YAML text into a Node, preserving mapping key order.
func ParseYAML(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Format: "YAML", Err: err}
	}
	if root.Kind == 0 {
		return NewScalar(nil), nil
	}
	n, err := fromYAML(&root)
	if err != nil {
		return nil, &ParseError{Format: "YAML", Err: err}
	}
	return n, nil
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return NewScalar(nil), nil
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		if y.Alias == nil {
			return nil, fmt.Errorf("line %d: dangling alias", y.Line)
		}
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(y.Content); i += 2 {
			child, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(y.Content[i].Value, child)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := NewSequence()
		for _, c := range y.Content {
			child, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			seq.items = append(seq.items, child)
		}
		return seq, nil
	case yaml.ScalarNode:
		return scalarFromYAML(y)
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", y.Line, y.Kind)
}

func scalarFromYAML(y *yaml.Node) (*Node, error) {
	switch y.ShortTag() {
	case "!!null":
		return NewScalar(nil), nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", y.Line, err)
		}
		return NewScalar(b), nil
	case "!!int":
		var i int64
		if err := y.Decode(&i); err == nil {
			return NewScalar(i), nil
		}
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", y.Line, err)
		}
		return NewScalar(f), nil
	case "!!float":
		var f float64
		if err := y.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", y.Line, err)
		}
		return NewScalar(f), nil
	}
	return NewScalar(y.Value), nil
}

// Kind reports the node's shape. A nil node is a scalar.
func (n *Node) Kind() Kind {
	if n == nil {
		return ScalarKind
	}
	return n.kind
}

// Get returns the value stored under key. It misses when n is not a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != MappingKind {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Lookup walks keys through nested mappings and returns nil on the first miss.
func (n *Node) Lookup(keys ...string) *Node {
	cur := n
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Has reports whether key is present in a mapping node.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep their
// position. Set on a non-mapping node panics.
func (n *Node) Set(key string, value *Node) *Node {
	if n.kind != MappingKind {
		panic("openapi: Set on " + n.kind.String() + " node")
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
	return n
}

// Append adds items to a sequence node. Append on other kinds panics.
func (n *Node) Append(items ...*Node) *Node {
	if n.kind != SequenceKind {
		panic("openapi: Append on " + n.kind.String() + " node")
	}
	n.items = append(n.items, items...)
	return n
}

// Keys returns mapping keys in document order.
func (n *Node) Keys() []string {
	if n == nil || n.kind != MappingKind {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Items returns the elements of a sequence node.
func (n *Node) Items() []*Node {
	if n == nil || n.kind != SequenceKind {
		return nil
	}
	return append([]*Node(nil), n.items...)
}

// Len is the number of keys or items; scalars have length zero.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.kind {
	case MappingKind:
		return len(n.keys)
	case SequenceKind:
		return len(n.items)
	}
	return 0
}

// Value returns the scalar value, or nil for mappings and sequences.
func (n *Node) Value() any {
	if n == nil || n.kind != ScalarKind {
		return nil
	}
	return n.value
}

// Str returns the scalar string value, or "" when n is not a string.
func (n *Node) Str() string {
	s, _ := n.Value().(string)
	return s
}

// Bool returns the scalar boolean value, or false when n is not a bool.
func (n *Node) Bool() bool {
	b, _ := n.Value().(bool)
	return b
}

// IsString reports whether n is a string scalar.
func (n *Node) IsString() bool {
	_, ok := n.Value().(string)
	return ok
}

// Interface converts the node back into plain Go values: map[string]any,
// []any and scalars. The result shares nothing with n.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.kind {
	case MappingKind:
		m := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			m[k] = n.fields[k].Interface()
		}
		return m
	case SequenceKind:
		s := make([]any, len(n.items))
		for i, item := range n.items {
			s[i] = item.Interface()
		}
		return s
	}
	return n.value
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{kind: n.kind, value: n.value}
	switch n.kind {
	case MappingKind:
		c.keys = append([]string(nil), n.keys...)
		c.fields = make(map[string]*Node, len(n.fields))
		for k, v := range n.fields {
			c.fields[k] = v.Clone()
		}
	case SequenceKind:
		c.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			c.items[i] = item.Clone()
		}
	}
	return c
}

// Equal reports structural equality. Mapping key order is ignored and numbers
// compare by value, so 1 and 1.0 are equal.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n.isNull() && other.isNull()
	}
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case MappingKind:
		if len(n.keys) != len(other.keys) {
			return false
		}
		for k, v := range n.fields {
			ov, ok := other.fields[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	case SequenceKind:
		if len(n.items) != len(other.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	}
	return scalarEqual(n.value, other.value)
}

func (n *Node) isNull() bool {
	return n == nil || (n.kind == ScalarKind && n.value == nil)
}

func scalarEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// MarshalJSON encodes the node with mapping keys in document order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.kind {
	case MappingKind:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := n.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case SequenceKind:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(n.value)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// UnmarshalJSON decodes data into n, preserving object key order.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}
