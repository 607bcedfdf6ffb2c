package yamlconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"

	"gopkg.in/yaml.v3"
)

type EventKind int

const (
	StreamStart EventKind = iota
	StreamEnd
	DocumentStart
	DocumentEnd
	MappingStart
	MappingEnd
	SequenceStart
	SequenceEnd
	Scalar
	Alias
)

var kindNames = map[EventKind]string{
	StreamStart:   "stream-start",
	StreamEnd:     "stream-end",
	DocumentStart: "document-start",
	DocumentEnd:   "document-end",
	MappingStart:  "mapping-start",
	MappingEnd:    "mapping-end",
	SequenceStart: "sequence-start",
	SequenceEnd:   "sequence-end",
	Scalar:        "scalar",
	Alias:         "alias",
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one structural parse event. For Alias, Anchor names the anchor
// being referenced.
type Event struct {
	Kind   EventKind
	Tag    string
	Anchor string
	Value  string
	Style  yaml.Style
	// Implicit is true when the source did not spell the tag out.
	Implicit bool
}

// Stream is a lazy event sequence. A non-nil error ends it.
type Stream = iter.Seq2[Event, error]

// Transform rewrites one stream into another.
type Transform func(Stream) Stream

var ErrMalformedStream = errors.New("yamlconfig: malformed event stream")

// MapEvents builds a Transform that rewrites events one at a time.
func MapEvents(fn func(Event) (Event, error)) Transform {
	return func(in Stream) Stream {
		return func(yield func(Event, error) bool) {
			for ev, err := range in {
				if err == nil {
					ev, err = fn(ev)
				}
				if !yield(ev, err) || err != nil {
					return
				}
			}
		}
	}
}

// Events parses every document in data into an event stream.
func Events(data []byte) Stream {
	return func(yield func(Event, error) bool) {
		if !yield(Event{Kind: StreamStart}, nil) {
			return
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var doc yaml.Node
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(Event{}, fmt.Errorf("yamlconfig: parse: %w", err))
				return
			}
			if !walk(&doc, yield) {
				return
			}
		}
		yield(Event{Kind: StreamEnd}, nil)
	}
}

func nodeEvent(kind EventKind, n *yaml.Node) Event {
	return Event{
		Kind:     kind,
		Tag:      n.Tag,
		Anchor:   n.Anchor,
		Value:    n.Value,
		Style:    n.Style,
		Implicit: n.Style&yaml.TaggedStyle == 0,
	}
}

func walk(n *yaml.Node, yield func(Event, error) bool) bool {
	var start, end EventKind
	switch n.Kind {
	case yaml.DocumentNode:
		start, end = DocumentStart, DocumentEnd
	case yaml.MappingNode:
		start, end = MappingStart, MappingEnd
	case yaml.SequenceNode:
		start, end = SequenceStart, SequenceEnd
	case yaml.ScalarNode:
		return yield(nodeEvent(Scalar, n), nil)
	case yaml.AliasNode:
		return yield(Event{Kind: Alias, Anchor: n.Value}, nil)
	default:
		return yield(Event{}, fmt.Errorf("%w: unexpected node kind %d", ErrMalformedStream, n.Kind))
	}
	ev := nodeEvent(start, n)
	ev.Value = ""
	if start == DocumentStart {
		ev = Event{Kind: DocumentStart}
	}
	if !yield(ev, nil) {
		return false
	}
	for _, child := range n.Content {
		if !walk(child, yield) {
			return false
		}
	}
	return yield(Event{Kind: end}, nil)
}

// Emit serializes an event stream back to YAML text.
func Emit(s Stream) ([]byte, error) {
	b := &treeBuilder{anchors: map[string]*yaml.Node{}}
	for ev, err := range s {
		if err != nil {
			return nil, err
		}
		if err := b.add(ev); err != nil {
			return nil, err
		}
	}
	if len(b.stack) != 0 {
		return nil, fmt.Errorf("%w: stream ended inside a document", ErrMalformedStream)
	}
	if len(b.docs) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range b.docs {
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("yamlconfig: emit: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yamlconfig: emit: %w", err)
	}
	return buf.Bytes(), nil
}

// treeBuilder turns events back into yaml.Node documents.
type treeBuilder struct {
	docs    []*yaml.Node
	stack   []*yaml.Node
	anchors map[string]*yaml.Node
}

func (b *treeBuilder) top() *yaml.Node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *treeBuilder) add(ev Event) error {
	switch ev.Kind {
	case StreamStart, StreamEnd:
		return nil
	case DocumentStart:
		if len(b.stack) != 0 {
			return fmt.Errorf("%w: document start inside a document", ErrMalformedStream)
		}
		b.stack = append(b.stack, &yaml.Node{Kind: yaml.DocumentNode})
	case DocumentEnd:
		doc := b.top()
		if len(b.stack) != 1 || doc.Kind != yaml.DocumentNode {
			return fmt.Errorf("%w: unbalanced document end", ErrMalformedStream)
		}
		if len(doc.Content) == 0 {
			doc.Content = append(doc.Content, nullNode())
		}
		b.stack = b.stack[:0]
		b.docs = append(b.docs, doc)
	case MappingStart, SequenceStart:
		kind := yaml.MappingNode
		if ev.Kind == SequenceStart {
			kind = yaml.SequenceNode
		}
		n := &yaml.Node{Kind: kind, Tag: ev.Tag, Anchor: ev.Anchor, Style: ev.Style}
		if err := b.attach(n); err != nil {
			return err
		}
		b.stack = append(b.stack, n)
	case MappingEnd, SequenceEnd:
		want := yaml.MappingNode
		if ev.Kind == SequenceEnd {
			want = yaml.SequenceNode
		}
		n := b.top()
		if n == nil || n.Kind != want {
			return fmt.Errorf("%w: unbalanced %s", ErrMalformedStream, ev.Kind)
		}
		if want == yaml.MappingNode && len(n.Content)%2 != 0 {
			return fmt.Errorf("%w: mapping key without value", ErrMalformedStream)
		}
		b.stack = b.stack[:len(b.stack)-1]
	case Scalar:
		return b.attach(&yaml.Node{Kind: yaml.ScalarNode, Tag: ev.Tag, Anchor: ev.Anchor, Value: ev.Value, Style: ev.Style})
	case Alias:
		target, ok := b.anchors[ev.Anchor]
		if !ok {
			return fmt.Errorf("%w: unknown anchor %q", ErrMalformedStream, ev.Anchor)
		}
		return b.attach(&yaml.Node{Kind: yaml.AliasNode, Value: ev.Anchor, Alias: target})
	default:
		return fmt.Errorf("%w: unknown event %s", ErrMalformedStream, ev.Kind)
	}
	return nil
}

func (b *treeBuilder) attach(n *yaml.Node) error {
	parent := b.top()
	if parent == nil {
		return fmt.Errorf("%w: node outside a document", ErrMalformedStream)
	}
	if parent.Kind == yaml.DocumentNode && len(parent.Content) > 0 {
		return fmt.Errorf("%w: document with more than one root", ErrMalformedStream)
	}
	parent.Content = append(parent.Content, n)
	if n.Anchor != "" {
		b.anchors[n.Anchor] = n
	}
	return nil
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
