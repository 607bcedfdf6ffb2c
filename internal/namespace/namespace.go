// Package namespace provides an ordered, name-addressable mapping shared by
// parsed command arguments and loaded configuration documents.
package namespace

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Namespace keeps keys in insertion order. Re-setting a key keeps its
// original position. The zero value is ready to use.
type Namespace struct {
	keys   []string
	values map[string]any
}

func New() *Namespace {
	return &Namespace{values: map[string]any{}}
}

func (n *Namespace) Set(key string, value any) {
	if n.values == nil {
		n.values = map[string]any{}
	}
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = value
}

func (n *Namespace) Get(key string) (any, bool) {
	if n == nil || n.values == nil {
		return nil, false
	}
	v, ok := n.values[key]
	return v, ok
}

func (n *Namespace) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Keys returns a copy of the keys in declaration order.
func (n *Namespace) Keys() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.keys...)
}

func (n *Namespace) Len() int {
	if n == nil {
		return 0
	}
	return len(n.keys)
}

// Lookup resolves a dotted path ("telegram.bot_token") through nested namespaces.
func (n *Namespace) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	cur := n
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(*Namespace)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func (n *Namespace) String(key string) string {
	v, ok := n.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (n *Namespace) Int64(key string) (int64, bool) {
	v, ok := n.Get(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func (n *Namespace) Int(key string) (int, bool) {
	v, ok := n.Int64(key)
	return int(v), ok
}

func (n *Namespace) Bool(key string) bool {
	v, ok := n.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Strings returns list values rendered as strings; a single scalar becomes a
// one-element slice.
func (n *Namespace) Strings(key string) []string {
	v, ok := n.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(x)}
	}
}

func (n *Namespace) Namespace(key string) *Namespace {
	v, ok := n.Get(key)
	if !ok {
		return nil
	}
	sub, _ := v.(*Namespace)
	return sub
}

// ToMap converts the namespace into plain nested maps and slices.
func (n *Namespace) ToMap() map[string]any {
	out := make(map[string]any, n.Len())
	if n == nil {
		return out
	}
	for _, k := range n.keys {
		out[k] = plain(n.values[k])
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case *Namespace:
		return x.ToMap()
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = plain(x[i])
		}
		return out
	default:
		return v
	}
}

// MarshalYAML keeps key order when the namespace is encoded.
func (n *Namespace) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if n == nil {
		return node, nil
	}
	for _, k := range n.keys {
		var val yaml.Node
		if err := val.Encode(n.values[k]); err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &val)
	}
	return node, nil
}
