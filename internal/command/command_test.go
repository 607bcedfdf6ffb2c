package command

import (
	"strings"
	"testing"

	"github.com/JuniorJPDJ/telegram-rss/internal/argparse"
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
	"github.com/google/uuid"
)

func cmdMessage(text string, extra ...message.Annotation) *message.Message {
	name, _, _ := strings.Cut(text, " ")
	anns := append([]message.Annotation{{Kind: message.BotCommand, Offset: 0, Length: len(name)}}, extra...)
	msg := message.New(text, anns)
	return &msg
}

func subscribe() *Command {
	p := argparse.MustNew("/subscribe").MustDefine(
		argparse.Arg{Names: []string{"url"}},
		argparse.Arg{Names: []string{"title"}, Nargs: argparse.NargsAny},
	)
	return New("subscribe", p)
}

func TestMatch_ParsesArguments(t *testing.T) {
	inv, ok := subscribe().Match(cmdMessage(`/subscribe http://x.io/rss "My feed"`), "")
	if !ok {
		t.Fatalf("Match() = false, want true")
	}
	if !inv.OK() {
		t.Fatalf("Failure = %q", inv.Failure)
	}
	if inv.Args.String("url") != "http://x.io/rss" {
		t.Fatalf("url = %q", inv.Args.String("url"))
	}
	if got := inv.Args.Strings("title"); len(got) != 1 || got[0] != "My feed" {
		t.Fatalf("title = %v", got)
	}
	if inv.ID == uuid.Nil {
		t.Fatalf("invocation id not set")
	}
	if len(inv.Tokens) != 2 || inv.Tokens[0].Start != len("/subscribe")+1 {
		t.Fatalf("tokens = %#v", inv.Tokens)
	}
}

func TestMatch_FailedParseStillMatches(t *testing.T) {
	inv, ok := subscribe().Match(cmdMessage("/subscribe"), "")
	if !ok {
		t.Fatalf("Match() = false, want true on failed parse")
	}
	if inv.OK() || inv.Args != nil {
		t.Fatalf("invocation = %#v, want failure", inv)
	}
	if !strings.Contains(inv.Failure, "/subscribe: error: the following arguments are required: url") {
		t.Fatalf("Failure = %q", inv.Failure)
	}
}

func TestMatch_BotUsernameForm(t *testing.T) {
	c := subscribe()
	cases := []struct {
		name string
		text string
		bot  string
		want bool
	}{
		{name: "own username", text: "/subscribe@FeedBot u", bot: "feedbot", want: true},
		{name: "other bot", text: "/subscribe@otherbot u", bot: "feedbot", want: false},
		{name: "unknown own username", text: "/subscribe@feedbot u", bot: "", want: false},
		{name: "prefix of longer command", text: "/subscribers u", bot: "feedbot", want: false},
		{name: "bare form", text: "/subscribe u", bot: "feedbot", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv, ok := c.Match(cmdMessage(tc.text), tc.bot)
			if ok != tc.want {
				t.Fatalf("Match(%q, %q) = %v, want %v", tc.text, tc.bot, ok, tc.want)
			}
			if ok && !strings.HasPrefix(inv.Name, "/subscribe") {
				t.Fatalf("Name = %q", inv.Name)
			}
		})
	}
}

func TestMatch_UsesMatchedTextAsProg(t *testing.T) {
	inv, ok := subscribe().Match(cmdMessage("/subscribe@feedbot"), "feedbot")
	if !ok {
		t.Fatalf("Match() = false")
	}
	if !strings.Contains(inv.Failure, "usage: /subscribe@feedbot") {
		t.Fatalf("Failure = %q, want usage with matched text", inv.Failure)
	}
}

func TestMatch_OnlyAtStartOfMessage(t *testing.T) {
	msg := message.New("hello /subscribe u", []message.Annotation{{Kind: message.BotCommand, Offset: 6, Length: 10}})
	if _, ok := subscribe().Match(&msg, ""); ok {
		t.Fatalf("Match() = true for a command in the middle of a message")
	}
	plain := message.New("/subscribe u", nil)
	if _, ok := subscribe().Match(&plain, ""); ok {
		t.Fatalf("Match() = true without a bot command annotation")
	}
}

func TestMatch_TokenizeErrorBecomesFailure(t *testing.T) {
	inv, ok := subscribe().Match(cmdMessage(`/subscribe url \`), "")
	if !ok {
		t.Fatalf("Match() = false")
	}
	if !strings.Contains(inv.Failure, "no escaped character") || !strings.HasPrefix(inv.Failure, "usage: ") {
		t.Fatalf("Failure = %q", inv.Failure)
	}
}

func TestMatch_PanicInConverterIsRecovered(t *testing.T) {
	p := argparse.MustNew("/boom").MustDefine(argparse.Arg{
		Names: []string{"x"},
		Type: func(argparse.Value) (any, error) {
			panic("converter exploded")
		},
	})
	inv, ok := New("/boom", p).Match(cmdMessage("/boom 1"), "")
	if !ok {
		t.Fatalf("Match() = false")
	}
	if !strings.Contains(inv.Failure, "converter exploded") {
		t.Fatalf("Failure = %q", inv.Failure)
	}
}

func TestMatch_HelpIsFlagged(t *testing.T) {
	inv, ok := subscribe().Match(cmdMessage("/subscribe -h"), "")
	if !ok || !inv.Help {
		t.Fatalf("Match() = %v, help = %v", ok, inv != nil && inv.Help)
	}
}

func TestSet_FirstMatchWins(t *testing.T) {
	list := New("list", nil)
	set := NewSet(subscribe(), list, New("/list", nil))
	if len(set.Commands()) != 2 {
		t.Fatalf("Commands() = %d, want 2", len(set.Commands()))
	}
	inv, ok := set.Match(cmdMessage("/list"), "")
	if !ok || inv.Command != list {
		t.Fatalf("Match() = %#v, %v", inv, ok)
	}
	if !inv.OK() {
		t.Fatalf("Failure = %q", inv.Failure)
	}
	if _, ok := set.Lookup("subscribe"); !ok {
		t.Fatalf("Lookup(subscribe) = false")
	}
	if _, ok := set.Match(cmdMessage("/unknown"), ""); ok {
		t.Fatalf("Match(/unknown) = true")
	}
}
