// Package argparse is a declarative argument parser for chat commands. Unlike
// a process-level CLI parser it never exits: a usage error or a help request
// produces an *AbortError whose text is meant to be sent back to the user.
package argparse

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

type Action int

const (
	Store Action = iota
	StoreTrue
	StoreFalse
	Append
	Count
)

func (a Action) takesValue() bool {
	return a == Store || a == Append
}

// Nargs values besides NargsExactly.
const (
	NargsOne      = ""
	NargsOptional = "?"
	NargsAny      = "*"
	NargsSome     = "+"
)

// NargsExactly asks for exactly n values.
func NargsExactly(n int) string {
	return strconv.Itoa(n)
}

// Arg declares one option or positional argument. Names starting with '-'
// make an option ("-c", "--chat"); a single bare name makes a positional.
type Arg struct {
	Names    []string
	Dest     string
	Type     Converter
	Action   Action
	Nargs    string
	Default  any
	Required bool
	Choices  []string
	Help     string
	Metavar  string
}

type decl struct {
	Arg
	short    string
	long     string
	optional bool
	min      int
	max      int // -1 is unbounded
}

// Parser holds an argument declaration set. It is safe to share between
// concurrent parses once declared; Define after the first parse fails.
type Parser struct {
	prog        string
	description string
	addHelp     bool

	decls  []*decl
	byName map[string]*decl
	frozen atomic.Bool
}

type Option func(*Parser) error

func WithDescription(d string) Option {
	return func(p *Parser) error {
		p.description = strings.TrimSpace(d)
		return nil
	}
}

// WithoutHelp drops the implicit -h/--help option.
func WithoutHelp() Option {
	return func(p *Parser) error {
		p.addHelp = false
		return nil
	}
}

// WithParents copies every declaration of the given parsers into the new one,
// in order, before its own.
func WithParents(parents ...*Parser) Option {
	return func(p *Parser) error {
		for _, parent := range parents {
			if parent == nil {
				continue
			}
			for _, d := range parent.decls {
				if err := p.define(d.Arg); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func New(prog string, opts ...Option) (*Parser, error) {
	p := &Parser{
		prog:    strings.TrimSpace(prog),
		addHelp: true,
		byName:  map[string]*decl{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MustNew is New for package-level parsers; it panics on a bad declaration.
func MustNew(prog string, opts ...Option) *Parser {
	p, err := New(prog, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Parser) Prog() string {
	return p.prog
}

// Define adds arguments. It fails with ErrFrozen once the parser has parsed.
func (p *Parser) Define(args ...Arg) error {
	if p.frozen.Load() {
		return ErrFrozen
	}
	for _, a := range args {
		if err := p.define(a); err != nil {
			return err
		}
	}
	return nil
}

// MustDefine is Define that panics; it returns p for chaining.
func (p *Parser) MustDefine(args ...Arg) *Parser {
	if err := p.Define(args...); err != nil {
		panic(err)
	}
	return p
}

func (p *Parser) define(a Arg) error {
	if len(a.Names) == 0 {
		return fmt.Errorf("%w: argument without names", ErrBadDeclaration)
	}
	d := &decl{Arg: a}
	d.optional = strings.HasPrefix(a.Names[0], "-")
	if d.optional {
		for _, name := range a.Names {
			switch {
			case strings.HasPrefix(name, "--") && len(name) > 2:
				if d.long == "" {
					d.long = name[2:]
				}
			case strings.HasPrefix(name, "-") && len(name) == 2 && name[1] != '-':
				if d.short == "" {
					d.short = name[1:]
				}
			default:
				return fmt.Errorf("%w: bad option name %q", ErrBadDeclaration, name)
			}
		}
		if d.Dest == "" {
			if d.long != "" {
				d.Dest = strings.ReplaceAll(d.long, "-", "_")
			} else {
				d.Dest = d.short
			}
		}
		if (d.long == "help" || d.short == "h") && p.addHelp {
			return fmt.Errorf("%w: -h/--help is reserved", ErrBadDeclaration)
		}
	} else {
		if len(a.Names) != 1 {
			return fmt.Errorf("%w: positional %q takes a single name", ErrBadDeclaration, a.Names[0])
		}
		if a.Action != Store {
			return fmt.Errorf("%w: positional %q only supports Store", ErrBadDeclaration, a.Names[0])
		}
		if d.Dest == "" {
			d.Dest = a.Names[0]
		}
	}

	if d.optional && a.Nargs != NargsOne {
		return fmt.Errorf("%w: option %q takes a single value", ErrBadDeclaration, a.Names[0])
	}
	lo, hi, err := arity(d)
	if err != nil {
		return err
	}
	d.min, d.max = lo, hi

	for _, name := range a.Names {
		if _, dup := p.byName[name]; dup {
			return fmt.Errorf("%w: conflicting argument %q", ErrBadDeclaration, name)
		}
	}
	for _, name := range a.Names {
		p.byName[name] = d
	}
	p.decls = append(p.decls, d)
	return nil
}

func arity(d *decl) (int, int, error) {
	switch d.Nargs {
	case NargsOne:
		return 1, 1, nil
	case NargsOptional:
		return 0, 1, nil
	case NargsAny:
		return 0, -1, nil
	case NargsSome:
		return 1, -1, nil
	}
	n, err := strconv.Atoi(d.Nargs)
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("%w: bad nargs %q for %q", ErrBadDeclaration, d.Nargs, d.Names[0])
	}
	return n, n, nil
}

func (p *Parser) options() []*decl {
	var out []*decl
	for _, d := range p.decls {
		if d.optional {
			out = append(out, d)
		}
	}
	return out
}

func (p *Parser) positionals() []*decl {
	var out []*decl
	for _, d := range p.decls {
		if !d.optional {
			out = append(out, d)
		}
	}
	return out
}
