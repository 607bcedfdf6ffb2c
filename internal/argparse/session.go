package argparse

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/namespace"
	"github.com/spf13/pflag"
)

// holdPrefix marks a stand-in for a value in the argument list handed to
// pflag. Every token that is not an option goes through as "\x00<index>" so
// options and positionals map back to the exact value they came from.
const holdPrefix = "\x00"

var negativeNumber = regexp.MustCompile(`^-\d+$|^-\d*\.\d+$`)

// Session is one parse of a Parser. Messages produced while parsing (usage,
// help, errors) accumulate on the session until consumed.
type Session struct {
	parser *Parser
	prog   string
	msgs   strings.Builder
}

// NewSession starts a parse; prog overrides the parser's program name in
// messages when not empty.
func (p *Parser) NewSession(prog string) *Session {
	p.frozen.Store(true)
	prog = strings.TrimSpace(prog)
	if prog == "" {
		prog = p.prog
	}
	return &Session{parser: p, prog: prog}
}

// Parse runs a fresh session and returns its result. The messages of an
// aborted parse are available on the returned *AbortError.
func (p *Parser) Parse(values []Value) (*namespace.Namespace, error) {
	return p.NewSession("").Parse(values)
}

// ConsumeMessages returns everything written since the last call and clears
// the buffer.
func (s *Session) ConsumeMessages() string {
	out := s.msgs.String()
	s.msgs.Reset()
	return out
}

func (s *Session) Prog() string {
	return s.prog
}

// Fail records a usage error raised outside the parser, e.g. by tokenizing,
// and returns the matching abort.
func (s *Session) Fail(reason string) *AbortError {
	msg := s.parser.usage(s.prog) + fmt.Sprintf("%s: error: %s\n", s.prog, strings.TrimSpace(reason))
	s.msgs.WriteString(msg)
	return &AbortError{Prog: s.prog, Message: msg}
}

func (s *Session) help() *AbortError {
	msg := s.parser.help(s.prog)
	s.msgs.WriteString(msg)
	return &AbortError{Prog: s.prog, Message: msg, Help: true}
}

type parseState struct {
	held   []Value
	seen   map[*decl]bool
	values map[*decl]any
}

func (st *parseState) hold(v Value) string {
	st.held = append(st.held, v)
	return holdPrefix + strconv.Itoa(len(st.held)-1)
}

func (st *parseState) lookup(raw string) Value {
	if strings.HasPrefix(raw, holdPrefix) {
		if i, err := strconv.Atoi(raw[len(holdPrefix):]); err == nil && i >= 0 && i < len(st.held) {
			return st.held[i]
		}
	}
	return plainValue(raw)
}

func looksLikeOption(s string) bool {
	return len(s) > 1 && s[0] == '-' && !negativeNumber.MatchString(s)
}

// Parse parses values. Any usage problem or help request returns an
// *AbortError (errors.Is(err, ErrAborted)); the same text is left on the
// session's message buffer.
func (s *Session) Parse(values []Value) (*namespace.Namespace, error) {
	p := s.parser
	st := &parseState{seen: map[*decl]bool{}, values: map[*decl]any{}}
	args := s.prepare(st, values)

	fs := pflag.NewFlagSet(s.prog, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SortFlags = false
	for _, d := range p.options() {
		name := d.long
		if name == "" {
			name = d.short
		}
		f := fs.VarPF(&flagValue{decl: d}, name, d.short, d.Help)
		switch d.Action {
		case StoreTrue, StoreFalse:
			f.NoOptDefVal = "true"
		case Count:
			f.NoOptDefVal = "+1"
		}
	}

	err := fs.ParseAll(args, func(f *pflag.Flag, raw string) error {
		fv, ok := f.Value.(*flagValue)
		if !ok {
			return fmt.Errorf("unknown flag: %s", f.Name)
		}
		return s.apply(st, fv.decl, st.lookup(raw))
	})
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			if p.addHelp {
				return nil, s.help()
			}
			return nil, s.Fail("unrecognized arguments: -h")
		}
		return nil, s.Fail(err.Error())
	}

	rest := make([]Value, 0, len(fs.Args()))
	for _, raw := range fs.Args() {
		rest = append(rest, st.lookup(raw))
	}
	if err := s.assignPositionals(st, rest); err != nil {
		return nil, err
	}

	var missing []string
	for _, d := range p.decls {
		if d.optional && d.Required && !st.seen[d] {
			missing = append(missing, displayName(d))
		}
		if !d.optional && !st.seen[d] && d.min > 0 {
			missing = append(missing, displayName(d))
		}
	}
	if len(missing) > 0 {
		return nil, s.Fail("the following arguments are required: " + strings.Join(missing, ", "))
	}

	ns := namespace.New()
	for _, d := range p.decls {
		if st.seen[d] {
			ns.Set(d.Dest, st.values[d])
			continue
		}
		def, err := s.defaultFor(d)
		if err != nil {
			return nil, err
		}
		ns.Set(d.Dest, def)
	}
	return ns, nil
}

// prepare turns values into pflag arguments. "--name=v" and "-nv" for options
// that take a value are split so the value half stays a held value.
func (s *Session) prepare(st *parseState, values []Value) []string {
	p := s.parser
	args := make([]string, 0, len(values)+2)
	terminated := false
	for _, v := range values {
		text := v.String()
		if terminated || !looksLikeOption(text) {
			args = append(args, st.hold(v))
			continue
		}
		if text == "--" {
			terminated = true
			args = append(args, text)
			continue
		}
		if strings.HasPrefix(text, "--") {
			name, val, ok := strings.Cut(text[2:], "=")
			if d := p.byName["--"+name]; ok && d != nil && d.Action.takesValue() {
				args = append(args, "--"+name, st.hold(rebind(v, val)))
				continue
			}
			args = append(args, text)
			continue
		}
		if len(text) > 2 {
			if d := p.byName[text[:2]]; d != nil && d.Action.takesValue() {
				val := strings.TrimPrefix(text[2:], "=")
				args = append(args, text[:2], st.hold(rebind(v, val)))
				continue
			}
		}
		args = append(args, text)
	}
	return args
}

func (s *Session) apply(st *parseState, d *decl, v Value) error {
	switch d.Action {
	case StoreTrue, StoreFalse:
		b, err := strconv.ParseBool(v.String())
		if err != nil {
			return fmt.Errorf("argument %s: ignored explicit argument %q", displayName(d), v.String())
		}
		if d.Action == StoreFalse {
			b = !b
		}
		st.values[d] = b
	case Count:
		n, _ := st.values[d].(int)
		st.values[d] = n + 1
	case Append:
		conv, err := s.convert(d, v)
		if err != nil {
			return err
		}
		list, _ := st.values[d].([]any)
		st.values[d] = append(list, conv)
	default:
		conv, err := s.convert(d, v)
		if err != nil {
			return err
		}
		st.values[d] = conv
	}
	st.seen[d] = true
	return nil
}

func (s *Session) convert(d *decl, v Value) (any, error) {
	if len(d.Choices) > 0 && !slices.Contains(d.Choices, v.String()) {
		quoted := make([]string, 0, len(d.Choices))
		for _, c := range d.Choices {
			quoted = append(quoted, strconv.Quote(c))
		}
		return nil, fmt.Errorf("argument %s: invalid choice: %q (choose from %s)", displayName(d), v.String(), strings.Join(quoted, ", "))
	}
	conv := d.Type
	if conv == nil {
		conv = String
	}
	out, err := conv(v)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %v", displayName(d), err)
	}
	return out, nil
}

// assignPositionals hands out values left to right; each positional takes as
// many as it can while leaving enough for the minimum of those after it.
func (s *Session) assignPositionals(st *parseState, rest []Value) error {
	pos := s.parser.positionals()
	remaining := len(rest)
	next := 0
	for i, d := range pos {
		needAfter := 0
		for _, later := range pos[i+1:] {
			needAfter += later.min
		}
		take := remaining - needAfter
		if d.max >= 0 && take > d.max {
			take = d.max
		}
		if take < d.min {
			take = min(d.min, remaining)
		}
		if take < d.min {
			remaining -= take
			next += take
			continue
		}
		chunk := rest[next : next+take]
		next += take
		remaining -= take

		switch d.Nargs {
		case NargsOne:
			conv, err := s.convert(d, chunk[0])
			if err != nil {
				return s.Fail(err.Error())
			}
			st.values[d] = conv
		case NargsOptional:
			if len(chunk) == 0 {
				continue
			}
			conv, err := s.convert(d, chunk[0])
			if err != nil {
				return s.Fail(err.Error())
			}
			st.values[d] = conv
		default:
			list := make([]any, 0, len(chunk))
			for _, v := range chunk {
				conv, err := s.convert(d, v)
				if err != nil {
					return s.Fail(err.Error())
				}
				list = append(list, conv)
			}
			st.values[d] = list
		}
		st.seen[d] = true
	}
	if remaining > 0 {
		extra := make([]string, 0, remaining)
		for _, v := range rest[next:] {
			extra = append(extra, v.String())
		}
		return s.Fail("unrecognized arguments: " + strings.Join(extra, " "))
	}
	return nil
}

func (s *Session) defaultFor(d *decl) (any, error) {
	switch d.Action {
	case StoreTrue:
		if d.Default == nil {
			return false, nil
		}
	case StoreFalse:
		if d.Default == nil {
			return true, nil
		}
	case Count:
		if d.Default == nil {
			return 0, nil
		}
	}
	if raw, ok := d.Default.(string); ok && d.Type != nil {
		out, err := d.Type(plainValue(raw))
		if err != nil {
			return nil, s.Fail(fmt.Sprintf("argument %s: %v", displayName(d), err))
		}
		return out, nil
	}
	if d.Default == nil && !d.optional && d.Nargs == NargsAny {
		return []any{}, nil
	}
	return d.Default, nil
}

func displayName(d *decl) string {
	if !d.optional {
		return d.Names[0]
	}
	return strings.Join(d.Names, "/")
}

// flagValue registers a declaration with pflag. Values never go through Set;
// ParseAll hands them to Session.apply.
type flagValue struct {
	decl *decl
}

func (f *flagValue) String() string {
	if f.decl.Default == nil {
		return ""
	}
	return fmt.Sprint(f.decl.Default)
}

func (f *flagValue) Set(string) error { return nil }

func (f *flagValue) Type() string {
	switch f.decl.Action {
	case StoreTrue, StoreFalse:
		return "bool"
	case Count:
		return "count"
	}
	return "string"
}
