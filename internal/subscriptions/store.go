// Package subscriptions records which chats follow which feeds. The file
// layout is {url: {chat_id: {title}}} encoded with msgpack.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/fsstore"
)

var ErrEmptyURL = errors.New("subscriptions: empty feed url")

type entry struct {
	Title string `msgpack:"title"`
}

type table map[string]map[int64]entry

type Subscription struct {
	URL    string
	ChatID int64
	Title  string
}

// Store reads and rewrites its file on every call, holding the file lock,
// so several processes can share one data directory.
type Store struct {
	path     string
	lockPath string
	opts     fsstore.FileOptions
}

// Open checks that path is usable and, if it exists, decodable.
func Open(path string) (*Store, error) {
	lockPath, err := fsstore.LockPathFor(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: strings.TrimSpace(path), lockPath: lockPath}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (table, error) {
	t := table{}
	if _, err := fsstore.ReadMsgpack(s.path, &t); err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	return t, nil
}

func (s *Store) mutate(ctx context.Context, fn func(table) (bool, error)) error {
	return fsstore.WithLock(ctx, s.lockPath, func() error {
		t, err := s.load()
		if err != nil {
			return err
		}
		changed, err := fn(t)
		if err != nil || !changed {
			return err
		}
		if err := fsstore.WriteMsgpackAtomic(s.path, t, s.opts); err != nil {
			return fmt.Errorf("save subscriptions: %w", err)
		}
		return nil
	})
}

func (s *Store) view(ctx context.Context, fn func(table)) error {
	return fsstore.WithLock(ctx, s.lockPath, func() error {
		t, err := s.load()
		if err != nil {
			return err
		}
		fn(t)
		return nil
	})
}

// Subscribe records url for chatID. Subscribing again only updates the
// title; created reports whether the subscription is new.
func (s *Store) Subscribe(ctx context.Context, url string, chatID int64, title string) (created bool, err error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, ErrEmptyURL
	}
	if strings.TrimSpace(title) == "" {
		title = url
	}
	err = s.mutate(ctx, func(t table) (bool, error) {
		chats := t[url]
		if chats == nil {
			chats = map[int64]entry{}
			t[url] = chats
		}
		old, exists := chats[chatID]
		created = !exists
		if exists && old.Title == title {
			return false, nil
		}
		chats[chatID] = entry{Title: title}
		return true, nil
	})
	return created, err
}

// Unsubscribe removes url from chatID and returns what was removed.
func (s *Store) Unsubscribe(ctx context.Context, url string, chatID int64) (Subscription, bool, error) {
	url = strings.TrimSpace(url)
	var (
		removed Subscription
		found   bool
	)
	err := s.mutate(ctx, func(t table) (bool, error) {
		e, ok := t[url][chatID]
		if !ok {
			return false, nil
		}
		found = true
		removed = Subscription{URL: url, ChatID: chatID, Title: e.Title}
		delete(t[url], chatID)
		if len(t[url]) == 0 {
			delete(t, url)
		}
		return true, nil
	})
	return removed, found, err
}

// ForChat lists the feeds chatID follows, ordered by url.
func (s *Store) ForChat(ctx context.Context, chatID int64) ([]Subscription, error) {
	var out []Subscription
	err := s.view(ctx, func(t table) {
		for url, chats := range t {
			if e, ok := chats[chatID]; ok {
				out = append(out, Subscription{URL: url, ChatID: chatID, Title: e.Title})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, err
}

// Chats lists the chats following url, ordered by chat id.
func (s *Store) Chats(ctx context.Context, url string) ([]Subscription, error) {
	url = strings.TrimSpace(url)
	var out []Subscription
	err := s.view(ctx, func(t table) {
		for id, e := range t[url] {
			out = append(out, Subscription{URL: url, ChatID: id, Title: e.Title})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, err
}

// All lists every subscription, ordered by url and then chat id.
func (s *Store) All(ctx context.Context) ([]Subscription, error) {
	var out []Subscription
	err := s.view(ctx, func(t table) {
		for url, chats := range t {
			for id, e := range chats {
				out = append(out, Subscription{URL: url, ChatID: id, Title: e.Title})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].URL != out[j].URL {
			return out[i].URL < out[j].URL
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out, err
}
