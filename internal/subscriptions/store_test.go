package subscriptions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tg_chats.msgp"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestSubscribeAndList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	created, err := s.Subscribe(ctx, "https://b.example/rss", -100, "B feed")
	if err != nil || !created {
		t.Fatalf("Subscribe() = %v, %v; want true, nil", created, err)
	}
	if _, err := s.Subscribe(ctx, "https://a.example/rss", -100, ""); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := s.Subscribe(ctx, "https://a.example/rss", 5, "A for five"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	got, err := s.ForChat(ctx, -100)
	if err != nil {
		t.Fatalf("ForChat() error = %v", err)
	}
	want := []Subscription{
		{URL: "https://a.example/rss", ChatID: -100, Title: "https://a.example/rss"},
		{URL: "https://b.example/rss", ChatID: -100, Title: "B feed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ForChat() mismatch (-want +got):\n%s", diff)
	}

	chats, err := s.Chats(ctx, "https://a.example/rss")
	if err != nil {
		t.Fatalf("Chats() error = %v", err)
	}
	if len(chats) != 2 || chats[0].ChatID != -100 || chats[1].Title != "A for five" {
		t.Fatalf("Chats() = %#v", chats)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	wantAll := []Subscription{
		{URL: "https://a.example/rss", ChatID: -100, Title: "https://a.example/rss"},
		{URL: "https://a.example/rss", ChatID: 5, Title: "A for five"},
		{URL: "https://b.example/rss", ChatID: -100, Title: "B feed"},
	}
	if diff := cmp.Diff(wantAll, all); diff != "" {
		t.Fatalf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeTwiceUpdatesTitle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if _, err := s.Subscribe(ctx, "u", 1, "old"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	created, err := s.Subscribe(ctx, "u", 1, "new")
	if err != nil || created {
		t.Fatalf("Subscribe() = %v, %v; want false, nil", created, err)
	}
	got, _ := s.ForChat(ctx, 1)
	if len(got) != 1 || got[0].Title != "new" {
		t.Fatalf("ForChat() = %#v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if _, err := s.Subscribe(ctx, "u", 1, "Title"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	removed, ok, err := s.Unsubscribe(ctx, "u", 1)
	if err != nil || !ok {
		t.Fatalf("Unsubscribe() = %v, %v", ok, err)
	}
	if removed.Title != "Title" {
		t.Fatalf("removed = %#v", removed)
	}
	if _, ok, _ := s.Unsubscribe(ctx, "u", 1); ok {
		t.Fatalf("second Unsubscribe() found the subscription again")
	}
	if chats, _ := s.Chats(ctx, "u"); len(chats) != 0 {
		t.Fatalf("Chats() = %#v, want none", chats)
	}
}

func TestEmptyURLRejected(t *testing.T) {
	s := openStore(t)
	if _, err := s.Subscribe(context.Background(), "  ", 1, ""); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("Subscribe() error = %v, want ErrEmptyURL", err)
	}
}

func TestFileLayoutAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tg_chats.msgp")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.Subscribe(ctx, "https://x.example/feed", -42, "X"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var layout map[string]map[int64]map[string]string
	if err := msgpack.Unmarshal(raw, &layout); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if layout["https://x.example/feed"][-42]["title"] != "X" {
		t.Fatalf("layout = %#v", layout)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() again error = %v", err)
	}
	got, err := reopened.ForChat(ctx, -42)
	if err != nil || len(got) != 1 {
		t.Fatalf("ForChat() after reopen = %#v, %v", got, err)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tg_chats.msgp")
	if err := os.WriteFile(path, []byte{0xc1, 0xc1}, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("Open() error = nil, want decode error")
	}
}
