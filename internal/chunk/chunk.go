// Package chunk splits long outgoing text into messages that fit the chat
// network's length limit, preferring line and then word boundaries.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the Telegram message text limit.
const DefaultMaxLength = 4096

type builder struct {
	sb strings.Builder
	n  int // runes written
}

func (b *builder) write(s string) {
	b.sb.WriteString(s)
	b.n += utf8.RuneCountInString(s)
}

// Split cuts text into chunks of at most maxLen runes. Whole lines are packed
// while they fit; a line that does not fit a fresh chunk is packed word by
// word, and a word longer than maxLen is cut. The result always has at least
// one element, which is empty for empty text.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	chunks := []*builder{{}}
	cur := func() *builder { return chunks[len(chunks)-1] }
	next := func() { chunks = append(chunks, &builder{}) }

	for _, line := range splitLines(text) {
		rest := []string{line}
		for len(rest) > 0 {
			head := rest[0]
			headLen := utf8.RuneCountInString(head)
			if cur().n+headLen <= maxLen {
				cur().write(head)
				rest = rest[1:]
				continue
			}
			if headLen <= maxLen {
				next()
				cur().write(head)
				rest = rest[1:]
				continue
			}

			word, tail, hasTail := strings.Cut(strings.Replace(head, "\t", " ", 1), " ")
			rest = rest[:0]
			if hasTail {
				rest = append(rest, tail)
			}
			wordLen := utf8.RuneCountInString(word)
			switch {
			case cur().n+wordLen <= maxLen:
				cur().write(word)
				if cur().n+1 <= maxLen {
					cur().write(" ")
				}
			case wordLen+1 <= maxLen:
				next()
				cur().write(word)
				cur().write(" ")
			default:
				room := maxLen - cur().n
				if room <= 0 {
					next()
					room = maxLen
				}
				cut := runeOffset(word, room)
				cur().write(word[:cut])
				wrest := word[cut:]
				if hasTail {
					rest = []string{wrest + " " + tail}
				} else {
					rest = []string{wrest}
				}
			}
		}
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.sb.String())
	}
	return out
}

// runeOffset returns the byte offset of the n-th rune of s.
func runeOffset(s string, n int) int {
	i := 0
	for off := range s {
		if i == n {
			return off
		}
		i++
	}
	return len(s)
}

// splitLines splits after every line boundary, keeping the boundary with the
// line. "\r\n" is one boundary.
func splitLines(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		end := i + size
		if !isLineBreak(r) {
			i = end
			continue
		}
		if r == '\r' && end < len(text) && text[end] == '\n' {
			end++
		}
		out = append(out, text[start:end])
		start, i = end, end
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
