package argparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is one raw argument. Tokens from a chat message satisfy it and reach
// converters unchanged, so a converter can look at more than the text.
type Value = fmt.Stringer

// Rebinder is implemented by values that can produce a copy of themselves
// carrying different text, e.g. the "x" part of "--name=x".
type Rebinder interface {
	WithValue(text string) fmt.Stringer
}

// Converter turns a raw value into a typed one.
type Converter func(v Value) (any, error)

type plainValue string

func (p plainValue) String() string { return string(p) }

// Strings wraps plain strings as values.
func Strings(items ...string) []Value {
	out := make([]Value, 0, len(items))
	for _, s := range items {
		out = append(out, plainValue(s))
	}
	return out
}

func rebind(v Value, text string) Value {
	if r, ok := v.(Rebinder); ok {
		return r.WithValue(text)
	}
	return plainValue(text)
}

func String(v Value) (any, error) {
	return v.String(), nil
}

func Int(v Value) (any, error) {
	i, err := strconv.Atoi(strings.TrimSpace(v.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid int value: %q", v.String())
	}
	return i, nil
}

func Int64(v Value) (any, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid int value: %q", v.String())
	}
	return i, nil
}

func Float(v Value) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float value: %q", v.String())
	}
	return f, nil
}

func Bool(v Value) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid bool value: %q", v.String())
	}
	return b, nil
}

func Duration(v Value) (any, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid duration value: %q", v.String())
	}
	return d, nil
}
