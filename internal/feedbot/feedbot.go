// Package feedbot holds the chat commands for managing feed subscriptions.
package feedbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/argparse"
	"github.com/JuniorJPDJ/telegram-rss/internal/chattarget"
	"github.com/JuniorJPDJ/telegram-rss/internal/command"
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
	"github.com/JuniorJPDJ/telegram-rss/internal/namespace"
	"github.com/JuniorJPDJ/telegram-rss/internal/outputfmt"
	"github.com/JuniorJPDJ/telegram-rss/internal/subscriptions"
)

// Store is the part of subscriptions.Store the commands use.
type Store interface {
	Subscribe(ctx context.Context, url string, chatID int64, title string) (bool, error)
	Unsubscribe(ctx context.Context, url string, chatID int64) (subscriptions.Subscription, bool, error)
	ForChat(ctx context.Context, chatID int64) ([]subscriptions.Subscription, error)
}

type handlerFunc func(ctx context.Context, req *request) string

type request struct {
	inv *command.Invocation
	msg *message.Message
}

func (r *request) args() *namespace.Namespace {
	return r.inv.Args
}

type Bot struct {
	store    Store
	dir      chattarget.Directory
	logger   *slog.Logger
	commands *command.Set
	handlers map[*command.Command]handlerFunc
}

// New wires the commands. dir resolves -c/--chat targets against the
// network.
func New(store Store, dir chattarget.Directory, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		store:    store,
		dir:      dir,
		logger:   logger,
		commands: command.NewSet(),
		handlers: map[*command.Command]handlerFunc{},
	}

	chatOpt := argparse.MustNew("chat", argparse.WithoutHelp()).MustDefine(argparse.Arg{
		Names:   []string{"-c", "--chat"},
		Type:    chattarget.Arg,
		Metavar: "CHAT",
		Help:    "chat to act on: id, @username or t.me link (default: this chat)",
	})
	withChat := func(name, desc string, args ...argparse.Arg) *argparse.Parser {
		return argparse.MustNew("/"+name, argparse.WithParents(chatOpt), argparse.WithDescription(desc)).MustDefine(args...)
	}

	b.register("subscribe", b.subscribe, withChat("subscribe", "Subscribe a chat to a feed.",
		argparse.Arg{Names: []string{"url"}, Help: "feed url"},
		argparse.Arg{Names: []string{"title"}, Nargs: argparse.NargsAny, Help: "feed title (default: the url)"},
	))
	b.register("unsubscribe", b.unsubscribe, withChat("unsubscribe", "Unsubscribe a chat from a feed.",
		argparse.Arg{Names: []string{"url"}, Help: "feed url"},
	))
	b.register("list", b.list, withChat("list", "List the feeds a chat is subscribed to."))
	b.register("id", b.id, withChat("id", "Show the id of a chat.",
		argparse.Arg{Names: []string{"target"}, Nargs: argparse.NargsOptional, Type: chattarget.Arg, Metavar: "CHAT", Help: "chat to look up"},
	))
	b.register("help", b.help, argparse.MustNew("/help", argparse.WithDescription("List the available commands.")))
	return b
}

func (b *Bot) register(name string, h handlerFunc, p *argparse.Parser) {
	c := command.New(name, p)
	b.commands.Add(c)
	b.handlers[c] = h
}

func (b *Bot) Commands() *command.Set {
	return b.commands
}

// HandleMessage answers msg when it is one of the bot's commands.
func (b *Bot) HandleMessage(ctx context.Context, msg *message.Message, botUsername string) (string, bool) {
	inv, ok := b.commands.Match(msg, botUsername)
	if !ok {
		return "", false
	}
	logger := b.logger.With("invocation_id", inv.ID.String(), "command", inv.Command.Name(), "chat_id", msg.ChatID)
	if !inv.OK() {
		logger.Debug("command_parse_failed", "help", inv.Help)
		return inv.Failure, true
	}
	h := b.handlers[inv.Command]
	if h == nil {
		logger.Warn("command_dispatch_error", "error", "no handler")
		return "", true
	}
	logger.Info("command_dispatch")
	return h(ctx, &request{inv: inv, msg: msg}), true
}

// targetChat resolves the explicit chat argument under key, or falls back
// to the chat the message came from.
func (b *Bot) targetChat(ctx context.Context, req *request, key string) (int64, bool, error) {
	v, _ := req.args().Get(key)
	ref, ok := v.(chattarget.Ref)
	if !ok || ref.IsZero() {
		return req.msg.ChatID, false, nil
	}
	chat, err := ref.Resolve(ctx, b.dir)
	if err != nil {
		return 0, true, err
	}
	return chat.ID, true, nil
}

func (b *Bot) failure(req *request, err error) string {
	if errors.Is(err, chattarget.ErrInvalidChatTarget) {
		b.logger.Debug("command_target_error", "invocation_id", req.inv.ID.String(), "error", outputfmt.FormatErrorForDisplay(err))
		return "invalid chat target"
	}
	b.logger.Warn("command_dispatch_error", "invocation_id", req.inv.ID.String(), "error", outputfmt.FormatErrorForDisplay(err))
	return "error: " + outputfmt.FormatErrorForDisplay(err)
}

func chatPhrase(chatID int64, explicit bool) string {
	if explicit {
		return "chat " + strconv.FormatInt(chatID, 10)
	}
	return "this chat"
}

func (b *Bot) subscribe(ctx context.Context, req *request) string {
	chatID, explicit, err := b.targetChat(ctx, req, "chat")
	if err != nil {
		return b.failure(req, err)
	}
	url := req.args().String("url")
	title := strings.TrimSpace(strings.Join(req.args().Strings("title"), " "))
	if title == "" {
		title = url
	}
	if _, err := b.store.Subscribe(ctx, url, chatID, title); err != nil {
		return b.failure(req, err)
	}
	return fmt.Sprintf("Subscribed feed \"%s\" - now new messages from this feed will appear in %s!", title, chatPhrase(chatID, explicit))
}

func (b *Bot) unsubscribe(ctx context.Context, req *request) string {
	chatID, _, err := b.targetChat(ctx, req, "chat")
	if err != nil {
		return b.failure(req, err)
	}
	removed, found, err := b.store.Unsubscribe(ctx, req.args().String("url"), chatID)
	if err != nil {
		return b.failure(req, err)
	}
	if !found {
		return "No feed found"
	}
	return fmt.Sprintf("Successfully unsubscribed feed with title \"%s\"!", removed.Title)
}

func (b *Bot) list(ctx context.Context, req *request) string {
	chatID, explicit, err := b.targetChat(ctx, req, "chat")
	if err != nil {
		return b.failure(req, err)
	}
	subs, err := b.store.ForChat(ctx, chatID)
	if err != nil {
		return b.failure(req, err)
	}
	where := "on " + chatPhrase(chatID, explicit)
	if len(subs) == 0 {
		return "No feeds subscribed " + where + "."
	}
	var sb strings.Builder
	sb.WriteString("Subscribed feeds " + where + ":")
	for _, s := range subs {
		sb.WriteString("\n\n" + s.Title + ": " + s.URL)
	}
	return sb.String()
}

func (b *Bot) id(ctx context.Context, req *request) string {
	key := "target"
	if v, _ := req.args().Get(key); v == nil {
		key = "chat"
	}
	chatID, _, err := b.targetChat(ctx, req, key)
	if err != nil {
		return b.failure(req, err)
	}
	return strconv.FormatInt(chatID, 10)
}

func (b *Bot) help(context.Context, *request) string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, c := range b.commands.Commands() {
		p := c.Parser()
		line := strings.TrimSuffix(strings.TrimPrefix(p.Usage(c.Name()), "usage: "), "\n")
		sb.WriteString("\n" + line)
		if d := p.Description(); d != "" {
			sb.WriteString("\n    " + d)
		}
	}
	sb.WriteString("\n\nUse /<command> -h for details.")
	return sb.String()
}
