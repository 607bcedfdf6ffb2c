package feedbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JuniorJPDJ/telegram-rss/internal/chattarget"
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
	"github.com/JuniorJPDJ/telegram-rss/internal/subscriptions"
)

const testChat = int64(100)

type fakeDirectory map[string]chattarget.Chat

func (d fakeDirectory) ResolveChat(_ context.Context, ref chattarget.Ref) (chattarget.Chat, error) {
	if c, ok := d[ref.String()]; ok {
		return c, nil
	}
	return chattarget.Chat{}, errors.New("Bad Request: chat not found")
}

func newBot(t *testing.T) (*Bot, *subscriptions.Store) {
	t.Helper()
	store, err := subscriptions.Open(filepath.Join(t.TempDir(), "tg_chats.msgp"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dir := fakeDirectory{
		"@alice":   {ID: 555, Type: "private", Username: "alice"},
		"-1001234": {ID: -1001234, Type: "supergroup"},
	}
	return New(store, dir, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func send(t *testing.T, b *Bot, text string, extra ...message.Annotation) (string, bool) {
	t.Helper()
	name, _, _ := strings.Cut(text, " ")
	anns := []message.Annotation{{Kind: message.BotCommand, Offset: 0, Length: len(name)}}
	if !strings.HasPrefix(text, "/") {
		anns = nil
	}
	msg := message.New(text, append(anns, extra...))
	msg.ChatID = testChat
	msg.MessageID = 1
	return b.HandleMessage(context.Background(), &msg, "feedbot")
}

func TestSubscribeAndList(t *testing.T) {
	b, _ := newBot(t)

	reply, ok := send(t, b, `/subscribe http://x.io/rss My feed`)
	if !ok {
		t.Fatalf("HandleMessage() handled = false")
	}
	want := `Subscribed feed "My feed" - now new messages from this feed will appear in this chat!`
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	reply, _ = send(t, b, "/list@feedbot")
	if reply != "Subscribed feeds on this chat:\n\nMy feed: http://x.io/rss" {
		t.Fatalf("list reply = %q", reply)
	}
}

func TestListEmpty(t *testing.T) {
	b, _ := newBot(t)
	if reply, _ := send(t, b, "/list"); reply != "No feeds subscribed on this chat." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestSubscribeOtherChatByMention(t *testing.T) {
	b, store := newBot(t)

	text := "/subscribe -c @alice http://y.io/feed"
	reply, _ := send(t, b, text, message.Annotation{Kind: message.Mention, Offset: 14, Length: 6})
	if !strings.Contains(reply, "will appear in chat 555!") {
		t.Fatalf("reply = %q", reply)
	}
	subs, err := store.ForChat(context.Background(), 555)
	if err != nil || len(subs) != 1 || subs[0].Title != "http://y.io/feed" {
		t.Fatalf("ForChat(555) = %#v, %v", subs, err)
	}
	if own, _ := store.ForChat(context.Background(), testChat); len(own) != 0 {
		t.Fatalf("own chat should have no subscriptions, got %#v", own)
	}

	reply, _ = send(t, b, "/list --chat=-1001234")
	if reply != "No feeds subscribed on chat -1001234." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestUnknownTargetIsInvalid(t *testing.T) {
	b, _ := newBot(t)
	reply, _ := send(t, b, "/subscribe -c @ghost http://y.io/feed", message.Annotation{Kind: message.Mention, Offset: 14, Length: 6})
	if reply != "invalid chat target" {
		t.Fatalf("reply = %q, want invalid chat target", reply)
	}
}

func TestUnparsableTargetIsUsageError(t *testing.T) {
	b, _ := newBot(t)
	reply, _ := send(t, b, "/list -c https://t.me/joinchat/abc", message.Annotation{Kind: message.URL, Offset: 9, Length: 25})
	if !strings.HasPrefix(reply, "usage: /list") || !strings.Contains(reply, "argument -c/--chat") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestUnsubscribe(t *testing.T) {
	b, _ := newBot(t)
	if reply, _ := send(t, b, "/unsubscribe http://z"); reply != "No feed found" {
		t.Fatalf("reply = %q", reply)
	}
	send(t, b, "/subscribe http://z")
	reply, _ := send(t, b, "/unsubscribe http://z")
	if reply != `Successfully unsubscribed feed with title "http://z"!` {
		t.Fatalf("reply = %q", reply)
	}
}

func TestMissingArgumentRepliesUsage(t *testing.T) {
	b, _ := newBot(t)
	reply, ok := send(t, b, "/subscribe")
	if !ok {
		t.Fatalf("handled = false")
	}
	if !strings.HasPrefix(reply, "usage: /subscribe [-h] [-c CHAT] url [title ...]\n") {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.HasSuffix(reply, "/subscribe: error: the following arguments are required: url\n") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestID(t *testing.T) {
	b, _ := newBot(t)
	cases := []struct {
		text string
		anns []message.Annotation
		want string
	}{
		{text: "/id", want: "100"},
		{text: "/id -1001234", want: "-1001234"},
		{text: "/id @alice", anns: []message.Annotation{{Kind: message.Mention, Offset: 4, Length: 6}}, want: "555"},
		{text: "/id -c @alice", anns: []message.Annotation{{Kind: message.Mention, Offset: 7, Length: 6}}, want: "555"},
	}
	for _, tc := range cases {
		if reply, _ := send(t, b, tc.text, tc.anns...); reply != tc.want {
			t.Fatalf("%s: reply = %q, want %q", tc.text, reply, tc.want)
		}
	}
}

func TestHelp(t *testing.T) {
	b, _ := newBot(t)
	reply, _ := send(t, b, "/help")
	for _, want := range []string{
		"/subscribe [-h] [-c CHAT] url [title ...]",
		"/unsubscribe [-h] [-c CHAT] url",
		"/list [-h] [-c CHAT]",
		"/id [-h] [-c CHAT] [CHAT]",
		"Subscribe a chat to a feed.",
	} {
		if !strings.Contains(reply, want) {
			t.Fatalf("help reply missing %q:\n%s", want, reply)
		}
	}

	reply, _ = send(t, b, "/subscribe -h")
	if !strings.Contains(reply, "--chat CHAT") || !strings.Contains(reply, "positional arguments:") {
		t.Fatalf("command help = %q", reply)
	}
}

func TestIgnoresOtherMessages(t *testing.T) {
	b, _ := newBot(t)
	if _, ok := send(t, b, "just chatting"); ok {
		t.Fatalf("plain text was handled")
	}
	if _, ok := send(t, b, "/start"); ok {
		t.Fatalf("unknown command was handled")
	}
}
