// Package yamlconfig loads YAML configuration through a rewritable event
// stream. Registered transforms see the parse events of the raw text before
// it is serialized again and built into values, which is how !yamlenv
// splices documents kept in environment variables into the outer document.
//
// Tags understood while building values:
//
//	!time      duration phrase ("5m", "1h30m", "2 days") to integer seconds
//	!env       value of the named environment variable, or null when unset
//	!yamlenv   YAML document kept in the named environment variable
package yamlconfig

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/namespace"
)

const (
	TagTime    = "!time"
	TagEnv     = "!env"
	TagYAMLEnv = "!yamlenv"

	// UnsetSentinel stands in for an unset or empty !yamlenv variable. An
	// empty document would splice nothing into the outer stream.
	UnsetSentinel = "__yamlenv_unset__:"

	DefaultMaxDepth = 8
)

var (
	ErrExpansionCycle = errors.New("yamlconfig: !yamlenv expansion cycle")
	ErrExpansionDepth = errors.New("yamlconfig: !yamlenv expansion too deep")
)

type Loader struct {
	lookupEnv func(string) (string, bool)
	maxDepth  int
	expandEnv bool
	stages    []Transform
}

type Option func(*Loader)

// WithLookupEnv replaces os.LookupEnv for !env and !yamlenv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *Loader) {
		if fn != nil {
			l.lookupEnv = fn
		}
	}
}

func WithMaxDepth(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxDepth = n
		}
	}
}

// WithoutEnvExpansion leaves !yamlenv scalars in the stream, where the final
// build rejects them as unknown tags.
func WithoutEnvExpansion() Option {
	return func(l *Loader) {
		l.expandEnv = false
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{
		lookupEnv: os.LookupEnv,
		maxDepth:  DefaultMaxDepth,
		expandEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Use appends transforms; they run in registration order after the
// !yamlenv expansion.
func (l *Loader) Use(ts ...Transform) *Loader {
	for _, t := range ts {
		if t != nil {
			l.stages = append(l.stages, t)
		}
	}
	return l
}

// Parse returns the transformed event stream of data.
func (l *Loader) Parse(data []byte) Stream {
	return l.run(data, nil)
}

func (l *Loader) run(data []byte, chain []string) Stream {
	s := Events(data)
	if l.expandEnv {
		s = l.expansion(chain)(s)
	}
	for _, t := range l.stages {
		s = t(s)
	}
	return s
}

// expansion replaces every !yamlenv scalar with the inner events of the
// document held by the variable, run through the whole pipeline again.
// chain lists the variables being expanded around this stream.
func (l *Loader) expansion(chain []string) Transform {
	return func(in Stream) Stream {
		return func(yield func(Event, error) bool) {
			for ev, err := range in {
				if err != nil {
					yield(Event{}, err)
					return
				}
				if ev.Kind != Scalar || ev.Tag != TagYAMLEnv {
					if !yield(ev, nil) {
						return
					}
					continue
				}
				name := strings.TrimSpace(ev.Value)
				if slices.Contains(chain, name) {
					yield(Event{}, fmt.Errorf("%w: %s", ErrExpansionCycle, strings.Join(append(slices.Clone(chain), name), " -> ")))
					return
				}
				if len(chain) >= l.maxDepth {
					yield(Event{}, fmt.Errorf("%w: more than %d levels at %s", ErrExpansionDepth, l.maxDepth, name))
					return
				}
				data, ok := l.lookupEnv(name)
				if !ok || data == "" {
					data = UnsetSentinel
				}
				if !l.splice(yield, name, data, append(slices.Clone(chain), name)) {
					return
				}
			}
		}
	}
}

// splice yields the events between the first document's start and end.
func (l *Loader) splice(yield func(Event, error) bool, name, data string, chain []string) bool {
	started, emitted := false, false
	for ev, err := range l.run([]byte(data), chain) {
		if err != nil {
			yield(Event{}, fmt.Errorf("!yamlenv %s: %w", name, err))
			return false
		}
		if ev.Kind == DocumentEnd {
			break
		}
		if started {
			emitted = true
			if !yield(ev, nil) {
				return false
			}
			continue
		}
		if ev.Kind == DocumentStart {
			started = true
		}
	}
	if !emitted {
		// Comment-only documents have no events to splice.
		n := nullNode()
		return yield(Event{Kind: Scalar, Tag: n.Tag, Value: n.Value, Implicit: true}, nil)
	}
	return true
}

// Load runs data through the pipeline and builds the configuration value.
// Mappings become *namespace.Namespace; an empty document gives nil.
func (l *Loader) Load(data []byte) (any, error) {
	text, err := Emit(l.Parse(data))
	if err != nil {
		return nil, err
	}
	return l.build(text)
}

// LoadNamespace is Load for documents whose root is a mapping.
func (l *Loader) LoadNamespace(data []byte) (*namespace.Namespace, error) {
	v, err := l.Load(data)
	if err != nil {
		return nil, err
	}
	switch root := v.(type) {
	case nil:
		return namespace.New(), nil
	case *namespace.Namespace:
		return root, nil
	default:
		return nil, fmt.Errorf("yamlconfig: document root is %T, want a mapping", v)
	}
}

func (l *Loader) LoadFile(path string) (*namespace.Namespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ns, err := l.LoadNamespace(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ns, nil
}
