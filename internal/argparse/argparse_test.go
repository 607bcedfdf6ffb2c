package argparse

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type richValue struct {
	text string
	tag  string
}

func (r richValue) String() string { return r.text }

func (r richValue) WithValue(text string) fmt.Stringer {
	r.text = text
	return r
}

func subscribeParser(t *testing.T) *Parser {
	t.Helper()
	base := MustNew("base", WithoutHelp()).MustDefine(Arg{
		Names: []string{"-c", "--chat"},
		Type:  Int64,
		Help:  "target chat",
	})
	p, err := New("/subscribe", WithParents(base), WithDescription("Subscribe a chat to a feed."))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Define(
		Arg{Names: []string{"url"}, Help: "feed url"},
		Arg{Names: []string{"title"}, Nargs: NargsAny},
	); err != nil {
		t.Fatalf("Define() error = %v", err)
	}
	return p
}

func TestParse_MissingRequiredAbortsWithUsage(t *testing.T) {
	p := MustNew("/sub").MustDefine(Arg{Names: []string{"url"}})
	s := p.NewSession("")
	_, err := s.Parse(nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Parse() error = %v, want ErrAborted", err)
	}
	var abort *AbortError
	if !errors.As(err, &abort) || abort.Help {
		t.Fatalf("error = %#v, want non-help *AbortError", err)
	}
	want := "usage: /sub [-h] url\n/sub: error: the following arguments are required: url\n"
	if got := s.ConsumeMessages(); got != want {
		t.Fatalf("messages = %q, want %q", got, want)
	}
	if got := s.ConsumeMessages(); got != "" {
		t.Fatalf("second ConsumeMessages() = %q, want empty", got)
	}
}

func TestParse_ParentsOptionsAndNegativeNumbers(t *testing.T) {
	p := subscribeParser(t)
	ns, err := p.Parse(Strings("http://x.io/feed", "My", "Feed", "-c", "-100123"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := ns.String("url"); got != "http://x.io/feed" {
		t.Fatalf("url = %q", got)
	}
	if diff := cmp.Diff([]string{"My", "Feed"}, ns.Strings("title")); diff != "" {
		t.Fatalf("title mismatch (-want +got):\n%s", diff)
	}
	chat, ok := ns.Int64("chat")
	if !ok || chat != -100123 {
		t.Fatalf("chat = %d (ok=%v), want -100123", chat, ok)
	}
	if diff := cmp.Diff([]string{"chat", "url", "title"}, ns.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_NegativeNumberPositional(t *testing.T) {
	p := MustNew("/id").MustDefine(Arg{Names: []string{"chat"}, Type: Int64})
	ns, err := p.Parse(Strings("-42"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, _ := ns.Int64("chat"); got != -42 {
		t.Fatalf("chat = %d, want -42", got)
	}
}

func TestParse_DefaultsWhenAbsent(t *testing.T) {
	p := MustNew("/x").MustDefine(
		Arg{Names: []string{"-n", "--num"}, Type: Int, Default: "7"},
		Arg{Names: []string{"-q", "--quiet"}, Action: StoreTrue},
		Arg{Names: []string{"-v"}, Action: Count},
		Arg{Names: []string{"rest"}, Nargs: NargsAny},
	)
	ns, err := p.Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, _ := ns.Int("num"); got != 7 {
		t.Fatalf("num = %d, want 7", got)
	}
	if ns.Bool("quiet") {
		t.Fatalf("quiet = true, want false")
	}
	if v, _ := ns.Get("v"); v != 0 {
		t.Fatalf("v = %#v, want 0", v)
	}
	if v, _ := ns.Get("rest"); !cmp.Equal(v, []any{}) {
		t.Fatalf("rest = %#v, want empty list", v)
	}
}

func TestParse_FlagsCountsAndAppend(t *testing.T) {
	p := MustNew("/x").MustDefine(
		Arg{Names: []string{"-q", "--quiet"}, Action: StoreTrue},
		Arg{Names: []string{"-v"}, Action: Count},
		Arg{Names: []string{"-t", "--tag"}, Action: Append},
	)
	ns, err := p.Parse(Strings("-vvq", "--tag", "a", "-tb", "--tag=c"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !ns.Bool("quiet") {
		t.Fatalf("quiet = false, want true")
	}
	if v, _ := ns.Get("v"); v != 2 {
		t.Fatalf("v = %#v, want 2", v)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ns.Strings("tag")); diff != "" {
		t.Fatalf("tag mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_InlineValueKeepsRichValue(t *testing.T) {
	var got []Value
	capture := func(v Value) (any, error) {
		got = append(got, v)
		return v.String(), nil
	}
	p := MustNew("/x").MustDefine(
		Arg{Names: []string{"-c", "--chat"}, Type: capture},
		Arg{Names: []string{"target"}, Type: capture},
	)
	in := []Value{
		richValue{text: "--chat=@alice", tag: "mention"},
		richValue{text: "bob", tag: "plain"},
	}
	ns, err := p.Parse(in)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ns.String("chat") != "@alice" || ns.String("target") != "bob" {
		t.Fatalf("unexpected namespace: chat=%q target=%q", ns.String("chat"), ns.String("target"))
	}
	if len(got) != 2 {
		t.Fatalf("converter called %d times, want 2", len(got))
	}
	first, ok := got[0].(richValue)
	if !ok || first.tag != "mention" || first.text != "@alice" {
		t.Fatalf("option value = %#v, want rebound rich value", got[0])
	}
	if second, ok := got[1].(richValue); !ok || second.tag != "plain" {
		t.Fatalf("positional value = %#v, want original rich value", got[1])
	}
}

func TestParse_HelpAborts(t *testing.T) {
	p := subscribeParser(t)
	s := p.NewSession("/subscribe@feedbot")
	_, err := s.Parse(Strings("--help"))
	var abort *AbortError
	if !errors.As(err, &abort) || !abort.Help {
		t.Fatalf("Parse() error = %#v, want help abort", err)
	}
	msg := s.ConsumeMessages()
	for _, want := range []string{
		"usage: /subscribe@feedbot [-h] [-c CHAT] url [title ...]\n",
		"Subscribe a chat to a feed.",
		"positional arguments:",
		"-c, --chat CHAT",
		"-h, --help",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("help text missing %q:\n%s", want, msg)
		}
	}
}

func TestParse_UsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown option", args: []string{"u", "--nope"}, want: "unknown flag: --nope"},
		{name: "bad int", args: []string{"u", "-c", "abc"}, want: `argument -c/--chat: invalid int value: "abc"`},
		{name: "missing value", args: []string{"u", "--chat"}, want: "/subscribe: error: "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := subscribeParser(t).NewSession("")
			_, err := s.Parse(Strings(tc.args...))
			if !errors.Is(err, ErrAborted) {
				t.Fatalf("Parse() error = %v, want ErrAborted", err)
			}
			if msg := s.ConsumeMessages(); !strings.Contains(msg, tc.want) {
				t.Fatalf("messages = %q, want to contain %q", msg, tc.want)
			}
		})
	}
}

func TestParse_UnrecognizedArguments(t *testing.T) {
	p := MustNew("/list").MustDefine(Arg{Names: []string{"-c", "--chat"}})
	s := p.NewSession("")
	if _, err := s.Parse(Strings("extra", "words")); !errors.Is(err, ErrAborted) {
		t.Fatalf("Parse() error = %v, want ErrAborted", err)
	}
	if msg := s.ConsumeMessages(); !strings.Contains(msg, "unrecognized arguments: extra words") {
		t.Fatalf("messages = %q", msg)
	}
}

func TestParse_Choices(t *testing.T) {
	p := MustNew("/fmt").MustDefine(Arg{Names: []string{"mode"}, Choices: []string{"html", "text"}})
	if _, err := p.Parse(Strings("html")); err != nil {
		t.Fatalf("Parse(html) error = %v", err)
	}
	_, err := p.Parse(Strings("pdf"))
	if err == nil || !strings.Contains(err.Error(), "invalid choice") {
		t.Fatalf("Parse(pdf) error = %v, want invalid choice", err)
	}
}

func TestParse_DoubleDashEndsOptions(t *testing.T) {
	p := MustNew("/x").MustDefine(
		Arg{Names: []string{"-c"}},
		Arg{Names: []string{"words"}, Nargs: NargsAny},
	)
	ns, err := p.Parse(Strings("--", "-c", "--x"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"-c", "--x"}, ns.Strings("words")); diff != "" {
		t.Fatalf("words mismatch (-want +got):\n%s", diff)
	}
}

func TestPositionalAllocation(t *testing.T) {
	p := MustNew("/x").MustDefine(
		Arg{Names: []string{"first"}, Nargs: NargsSome},
		Arg{Names: []string{"last"}},
	)
	ns, err := p.Parse(Strings("a", "b", "c"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ns.Strings("first")); diff != "" {
		t.Fatalf("first mismatch (-want +got):\n%s", diff)
	}
	if ns.String("last") != "c" {
		t.Fatalf("last = %q, want c", ns.String("last"))
	}
}

func TestDefine_FrozenAfterParse(t *testing.T) {
	p := MustNew("/x")
	if _, err := p.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := p.Define(Arg{Names: []string{"late"}}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("Define() error = %v, want ErrFrozen", err)
	}
}

func TestDefine_Conflicts(t *testing.T) {
	p := MustNew("/x").MustDefine(Arg{Names: []string{"-c", "--chat"}})
	if err := p.Define(Arg{Names: []string{"--chat"}}); !errors.Is(err, ErrBadDeclaration) {
		t.Fatalf("Define() error = %v, want ErrBadDeclaration", err)
	}
	if err := p.Define(Arg{Names: []string{"--help"}}); !errors.Is(err, ErrBadDeclaration) {
		t.Fatalf("Define(--help) error = %v, want ErrBadDeclaration", err)
	}
}
