// Package tokenize splits command argument text into shell-like words while
// keeping track of where each word sits in the original message, so rich-text
// annotations on the message can follow the words they cover.
package tokenize

import (
	"errors"
	"fmt"

	"github.com/JuniorJPDJ/telegram-rss/internal/message"
)

var ErrNoEscapedChar = errors.New("no escaped character")

// Token is one word of argument text. Start and End are byte offsets into the
// original message; End is inclusive. Start of every token but the first is
// the cursor position right after the previous token's delimiter, so the span
// covers any extra whitespace before the word.
type Token struct {
	Value       string
	Start       int
	End         int
	Annotations []message.Annotation
}

func (t Token) String() string {
	return t.Value
}

// WithValue returns a copy of t holding text in place of its value. Span and
// annotations stay, which keeps "--chat=@alice" pointing at the mention.
func (t Token) WithValue(text string) fmt.Stringer {
	t.Value = text
	return t
}

// Annotation returns the first attached annotation of the given kind.
func (t Token) Annotation(kind message.AnnotationKind) (message.Annotation, bool) {
	for _, a := range t.Annotations {
		if a.Kind == kind {
			return a, true
		}
	}
	return message.Annotation{}, false
}

// Error reports a tokenizing failure at a byte offset of the original message.
type Error struct {
	Offset int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Split tokenizes text, which starts at byte offset base of the message the
// annotations belong to. Quoting follows POSIX shell rules without comments:
// '#' is an ordinary character. An unterminated quote ends at end of text.
func Split(text string, base int, anns []message.Annotation) ([]Token, error) {
	c := cursor{text: text}
	var out []Token
	boundary := 0
	for {
		c.skipSpace()
		if c.eof() {
			break
		}
		value, err := c.scanWord()
		if err != nil {
			return nil, &Error{Offset: base + c.off, Err: err}
		}
		tok := Token{
			Value: value,
			Start: base + boundary,
			End:   base + c.off - 1,
		}
		if !c.eof() {
			// The single delimiter after a word belongs to it.
			c.off++
		}
		boundary = c.off
		out = append(out, tok)
	}
	for i := range out {
		out[i].Annotations = overlapping(out[i], anns)
	}
	return out, nil
}

func overlapping(tok Token, anns []message.Annotation) []message.Annotation {
	var out []message.Annotation
	for _, a := range anns {
		startInside := tok.Start <= a.Offset && a.Offset <= tok.End
		endInside := tok.Start < a.End() && a.End() < tok.End
		if startInside || endInside {
			out = append(out, a)
		}
	}
	return out
}

type cursor struct {
	text string
	off  int
}

func (c *cursor) eof() bool {
	return c.off >= len(c.text)
}

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.text[c.off]
}

func (c *cursor) bump() byte {
	b := c.peek()
	c.off++
	return b
}

func (c *cursor) skipSpace() {
	for !c.eof() && isSpace(c.peek()) {
		c.off++
	}
}

// scanWord reads one word and stops in front of the delimiter that ends it.
func (c *cursor) scanWord() (string, error) {
	var buf []byte
	for !c.eof() {
		ch := c.peek()
		switch {
		case isSpace(ch):
			return string(buf), nil
		case ch == '\\':
			c.off++
			if c.eof() {
				return "", ErrNoEscapedChar
			}
			buf = append(buf, c.bump())
		case ch == '\'':
			c.off++
			for !c.eof() && c.peek() != '\'' {
				buf = append(buf, c.bump())
			}
			if !c.eof() {
				c.off++
			}
		case ch == '"':
			c.off++
			buf = c.scanDoubleQuoted(buf)
		default:
			buf = append(buf, c.bump())
		}
	}
	return string(buf), nil
}

// Inside double quotes a backslash only escapes '"' and '\'; anything else
// keeps the backslash.
func (c *cursor) scanDoubleQuoted(buf []byte) []byte {
	for !c.eof() {
		ch := c.bump()
		switch ch {
		case '"':
			return buf
		case '\\':
			if next := c.peek(); !c.eof() && (next == '"' || next == '\\') {
				buf = append(buf, c.bump())
				continue
			}
			buf = append(buf, ch)
		default:
			buf = append(buf, ch)
		}
	}
	return buf
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
