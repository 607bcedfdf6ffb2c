// Package command recognizes "/name" and "/name@bot" at the start of a chat
// message and parses the rest of the message with the command's parser.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/argparse"
	"github.com/JuniorJPDJ/telegram-rss/internal/message"
	"github.com/JuniorJPDJ/telegram-rss/internal/namespace"
	"github.com/JuniorJPDJ/telegram-rss/internal/outputfmt"
	"github.com/JuniorJPDJ/telegram-rss/internal/tokenize"
	"github.com/google/uuid"
)

type Command struct {
	name   string
	parser *argparse.Parser
}

// New registers name ("/" is prepended when missing). A nil parser accepts
// no arguments.
func New(name string, parser *argparse.Parser) *Command {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if parser == nil {
		parser = argparse.MustNew(name)
	}
	return &Command{name: name, parser: parser}
}

func (c *Command) Name() string {
	return c.name
}

func (c *Command) Parser() *argparse.Parser {
	return c.parser
}

// Invocation is one message recognized as a command. Either Args is set or
// Failure holds the text to send back instead of running the command.
type Invocation struct {
	ID      uuid.UUID
	Command *Command
	// Name is the command text as written, e.g. "/list@feedbot".
	Name    string
	Tokens  []tokenize.Token
	Args    *namespace.Namespace
	Failure string
	// Help is set when Failure is help text the user asked for.
	Help bool
}

func (inv *Invocation) OK() bool {
	return inv != nil && inv.Failure == ""
}

// Match reports whether msg starts with this command. Only a bot command
// annotation at offset 0 counts. A matched message always yields an
// invocation, even when its arguments do not parse.
func (c *Command) Match(msg *message.Message, botUsername string) (*Invocation, bool) {
	if msg == nil {
		return nil, false
	}
	for _, a := range msg.Annotations {
		if a.Kind != message.BotCommand || a.Offset != 0 {
			continue
		}
		txt := a.Text
		if txt == "" {
			txt = message.Slice(msg.Text, a.Offset, a.Length)
		}
		if !c.matches(txt, botUsername) {
			continue
		}
		return c.invoke(msg, txt), true
	}
	return nil, false
}

func (c *Command) matches(txt, botUsername string) bool {
	if txt == c.name {
		return true
	}
	botUsername = strings.TrimPrefix(strings.TrimSpace(botUsername), "@")
	if botUsername == "" {
		return false
	}
	name, user, ok := strings.Cut(txt, "@")
	return ok && name == c.name && strings.EqualFold(user, botUsername)
}

func (c *Command) invoke(msg *message.Message, txt string) (inv *Invocation) {
	inv = &Invocation{ID: newID(), Command: c, Name: txt}
	session := c.parser.NewSession(txt)
	defer func() {
		if r := recover(); r != nil {
			inv.Args = nil
			inv.Failure = outputfmt.FormatErrorForDisplay(fmt.Errorf("%s: internal error: %v", txt, r))
		}
	}()

	// The character right after the command is its delimiter.
	base := len(txt) + 1
	if base > len(msg.Text) {
		base = len(msg.Text)
	}
	toks, err := tokenize.Split(msg.Text[base:], base, msg.Annotations)
	if err != nil {
		var tokErr *tokenize.Error
		if errors.As(err, &tokErr) {
			session.Fail(err.Error())
			inv.Failure = session.ConsumeMessages()
			return inv
		}
		inv.Failure = outputfmt.FormatErrorForDisplay(err)
		return inv
	}
	inv.Tokens = toks

	values := make([]argparse.Value, 0, len(toks))
	for _, tok := range toks {
		values = append(values, tok)
	}
	ns, err := session.Parse(values)
	if err != nil {
		var abort *argparse.AbortError
		if errors.As(err, &abort) {
			inv.Help = abort.Help
			inv.Failure = session.ConsumeMessages()
			if inv.Failure == "" {
				inv.Failure = abort.Error()
			}
			return inv
		}
		inv.Failure = outputfmt.FormatErrorForDisplay(err)
		return inv
	}
	inv.Args = ns
	return inv
}

func newID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}

// Set dispatches a message to the first matching command.
type Set struct {
	commands []*Command
	byName   map[string]*Command
}

func NewSet(cmds ...*Command) *Set {
	s := &Set{byName: map[string]*Command{}}
	s.Add(cmds...)
	return s
}

// Add registers commands; a name registered twice keeps the first command.
func (s *Set) Add(cmds ...*Command) {
	for _, c := range cmds {
		if c == nil {
			continue
		}
		if _, dup := s.byName[c.name]; dup {
			continue
		}
		s.byName[c.name] = c
		s.commands = append(s.commands, c)
	}
}

func (s *Set) Commands() []*Command {
	return append([]*Command(nil), s.commands...)
}

func (s *Set) Lookup(name string) (*Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	c, ok := s.byName[name]
	return c, ok
}

func (s *Set) Match(msg *message.Message, botUsername string) (*Invocation, bool) {
	for _, c := range s.commands {
		if inv, ok := c.Match(msg, botUsername); ok {
			return inv, true
		}
	}
	return nil, false
}
