// Package chattarget turns a command argument into a reference to a chat or
// user. Parsing is offline; Resolve checks the reference against the network.
package chattarget

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/argparse"
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
	"github.com/JuniorJPDJ/telegram-rss/internal/tokenize"
)

var (
	// ErrBadChatTarget means the argument cannot be read as a chat reference.
	ErrBadChatTarget = errors.New("bad chat target")
	// ErrInvalidChatTarget means the reference does not name a known chat.
	ErrInvalidChatTarget = errors.New("invalid chat target")
)

var linkHosts = map[string]bool{
	"telegram.me":  true,
	"t.me":         true,
	"telegram.dog": true,
	"telesco.pe":   true,
}

// Paths on the link hosts that do not name a chat: invites, sticker sets,
// deep links and the like.
var reservedPaths = []string{
	"/joinchat", "/addstickers", "/iv", "/msg", "/share", "/confirmphone", "/start",
	"/startgroup", "/game", "/socks", "/proxy", "/setlanguage", "/bg",
	"/+", "/c/",
}

// Ref is an unverified chat reference: a numeric id or a username.
type Ref struct {
	ID       int64
	Username string
}

func (r Ref) IsZero() bool {
	return r.ID == 0 && r.Username == ""
}

func (r Ref) String() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return strconv.FormatInt(r.ID, 10)
}

type Chat struct {
	ID       int64
	Type     string
	Title    string
	Username string
}

// Directory looks chats up on the network.
type Directory interface {
	ResolveChat(ctx context.Context, ref Ref) (Chat, error)
}

// Resolve looks r up in dir. Every failure wraps ErrInvalidChatTarget; it is
// safe to call again.
func (r Ref) Resolve(ctx context.Context, dir Directory) (Chat, error) {
	if dir == nil {
		return Chat{}, fmt.Errorf("%w: no directory", ErrInvalidChatTarget)
	}
	if r.IsZero() {
		return Chat{}, fmt.Errorf("%w: empty reference", ErrInvalidChatTarget)
	}
	chat, err := dir.ResolveChat(ctx, r)
	if err != nil {
		return Chat{}, fmt.Errorf("%w: %s: %w", ErrInvalidChatTarget, r, err)
	}
	return chat, nil
}

// FromToken reads a reference from a token. Annotations win over the text in
// this order: user mention by id, @mention, text link, bare url. A token with
// none of them must be an integer chat id.
func FromToken(tok tokenize.Token) (Ref, error) {
	if a, ok := tok.Annotation(message.TextMention); ok && a.UserID != 0 {
		return Ref{ID: a.UserID}, nil
	}
	if a, ok := tok.Annotation(message.Mention); ok {
		text := a.Text
		if text == "" {
			text = tok.Value
		}
		name := strings.TrimPrefix(strings.TrimSpace(text), "@")
		if name == "" {
			return Ref{}, fmt.Errorf("%w: empty mention", ErrBadChatTarget)
		}
		return Ref{Username: name}, nil
	}
	if a, ok := tok.Annotation(message.TextLink); ok {
		ref, ok, err := ParseURL(a.URL)
		if err != nil {
			return Ref{}, err
		}
		if ok {
			return ref, nil
		}
	}
	if _, ok := tok.Annotation(message.URL); ok {
		ref, ok, err := ParseURL(tok.Value)
		if err != nil {
			return Ref{}, err
		}
		if ok {
			return ref, nil
		}
	}
	return parseID(tok.Value)
}

func parseID(s string) (Ref, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: not a chat id: %q", ErrBadChatTarget, s)
	}
	return Ref{ID: id}, nil
}

// ParseURL reads a chat link. ok is false when the scheme is not one chat
// links use, so the caller can fall back to other readings.
func ParseURL(raw string) (Ref, bool, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "//") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, false, fmt.Errorf("%w: %v", ErrBadChatTarget, err)
	}
	var name string
	switch strings.ToLower(u.Scheme) {
	case "tg":
		name, err = parseResolveURL(u)
	case "http", "https", "":
		name, err = parseLinkURL(u)
	default:
		return Ref{}, false, nil
	}
	if err != nil {
		return Ref{}, false, err
	}
	if name == "" {
		return Ref{}, false, fmt.Errorf("%w: link names no chat", ErrBadChatTarget)
	}
	return Ref{Username: name}, true, nil
}

// tg://resolve?domain=name
func parseResolveURL(u *url.URL) (string, error) {
	if u.Host != "resolve" {
		return "", fmt.Errorf("%w: unsupported tg:// link %q", ErrBadChatTarget, u.Host)
	}
	domain, ok := u.Query()["domain"]
	if !ok || len(domain) == 0 {
		return "", fmt.Errorf("%w: tg://resolve link without domain", ErrBadChatTarget)
	}
	return domain[0], nil
}

// https://t.me/name
func parseLinkURL(u *url.URL) (string, error) {
	host := strings.ToLower(u.Hostname())
	if !linkHosts[host] || u.Path == "" {
		return "", fmt.Errorf("%w: not a chat link", ErrBadChatTarget)
	}
	for _, prefix := range reservedPaths {
		if strings.HasPrefix(u.Path, prefix) {
			return "", fmt.Errorf("%w: %s links do not name a chat", ErrBadChatTarget, prefix)
		}
	}
	return strings.Split(u.Path, "/")[1], nil
}

// Arg is an argparse converter producing a Ref. Tokens keep their
// annotations through parsing, so mentions and links work here.
func Arg(v argparse.Value) (any, error) {
	if tok, ok := v.(tokenize.Token); ok {
		return FromToken(tok)
	}
	return parseID(v.String())
}
