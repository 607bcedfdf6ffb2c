package yamlconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/namespace"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownTag        = errors.New("yamlconfig: unknown tag")
	ErrMultipleDocuments = errors.New("yamlconfig: expected a single document")
)

// build parses serialized text into values.
func (l *Loader) build(text []byte) (any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(text))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("yamlconfig: parse: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("yamlconfig: parse: %w", err)
		}
		return nil, ErrMultipleDocuments
	}
	return l.construct(&doc)
}

func (l *Loader) construct(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return l.construct(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("yamlconfig: line %d: dangling alias %q", n.Line, n.Value)
		}
		return l.construct(n.Alias)
	case yaml.MappingNode:
		if tag := n.ShortTag(); tag != "!!map" {
			return nil, fmt.Errorf("%w %s on a mapping at line %d", ErrUnknownTag, tag, n.Line)
		}
		ns := namespace.New()
		if err := l.constructMapping(ns, n); err != nil {
			return nil, err
		}
		return ns, nil
	case yaml.SequenceNode:
		if tag := n.ShortTag(); tag != "!!seq" {
			return nil, fmt.Errorf("%w %s on a sequence at line %d", ErrUnknownTag, tag, n.Line)
		}
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := l.construct(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return l.constructScalar(n)
	}
	return nil, fmt.Errorf("yamlconfig: line %d: unexpected node kind %d", n.Line, n.Kind)
}

func (l *Loader) constructScalar(n *yaml.Node) (any, error) {
	switch tag := n.ShortTag(); {
	case tag == TagTime:
		secs, err := ParseSeconds(n.Value)
		if err != nil {
			return nil, fmt.Errorf("yamlconfig: line %d: %w", n.Line, err)
		}
		return secs, nil
	case tag == TagEnv:
		if v, ok := l.lookupEnv(strings.TrimSpace(n.Value)); ok {
			return v, nil
		}
		return nil, nil
	case strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!"):
		return nil, fmt.Errorf("%w %s at line %d", ErrUnknownTag, tag, n.Line)
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("yamlconfig: line %d: %w", n.Line, err)
	}
	return v, nil
}

// constructMapping fills ns in key order. Keys pulled in through "<<" come
// first; keys written in the mapping itself override them.
func (l *Loader) constructMapping(ns *namespace.Namespace, n *yaml.Node) error {
	var own [][2]*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Kind == yaml.ScalarNode && key.ShortTag() == "!!merge" {
			if err := l.merge(ns, val); err != nil {
				return err
			}
			continue
		}
		own = append(own, [2]*yaml.Node{key, val})
	}
	for _, kv := range own {
		key, err := l.constructKey(kv[0])
		if err != nil {
			return err
		}
		v, err := l.construct(kv[1])
		if err != nil {
			return err
		}
		ns.Set(key, v)
	}
	return nil
}

func (l *Loader) merge(ns *namespace.Namespace, src *yaml.Node) error {
	if src.Kind == yaml.AliasNode && src.Alias != nil {
		src = src.Alias
	}
	switch src.Kind {
	case yaml.MappingNode:
		return l.constructMapping(ns, src)
	case yaml.SequenceNode:
		// Earlier mappings in the list win.
		for i := len(src.Content) - 1; i >= 0; i-- {
			item := src.Content[i]
			if item.Kind == yaml.AliasNode && item.Alias != nil {
				item = item.Alias
			}
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("yamlconfig: line %d: merge list items must be mappings", item.Line)
			}
			if err := l.constructMapping(ns, item); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("yamlconfig: line %d: merge value must be a mapping or a list of mappings", src.Line)
}

func (l *Loader) constructKey(n *yaml.Node) (string, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("yamlconfig: line %d: mapping keys must be scalars", n.Line)
	}
	v, err := l.constructScalar(n)
	if err != nil {
		return "", err
	}
	if v == nil {
		return n.Value, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
