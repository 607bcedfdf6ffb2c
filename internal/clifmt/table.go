// Package clifmt prints tables for the command line.
package clifmt

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTableWidth     = 100
	defaultMinDetailWidth = 36
)

type NameDetailRow struct {
	Name   string
	Detail string
}

type NameDetailTableOptions struct {
	Title        string
	Rows         []NameDetailRow
	EmptyText    string
	NameHeader   string
	DetailHeader string
	// Width is used when out is not a terminal.
	Width          int
	MinDetailWidth int
}

// PrintNameDetailTable prints a two column table. Details are wrapped to
// the terminal width, or to Width when out is not a terminal.
func PrintNameDetailTable(out io.Writer, opts NameDetailTableOptions) {
	if out == nil {
		out = os.Stdout
	}

	if title := strings.TrimSpace(opts.Title); title != "" {
		fmt.Fprintf(out, "%s (%d)\n", title, len(opts.Rows))
	}
	if len(opts.Rows) == 0 {
		emptyText := strings.TrimSpace(opts.EmptyText)
		if emptyText == "" {
			emptyText = "No entries."
		}
		fmt.Fprintln(out, emptyText)
		return
	}

	nameHeader := strings.TrimSpace(opts.NameHeader)
	if nameHeader == "" {
		nameHeader = "NAME"
	}
	detailHeader := strings.TrimSpace(opts.DetailHeader)
	if detailHeader == "" {
		detailHeader = "DETAILS"
	}

	nameWidth := utf8.RuneCountInString(nameHeader)
	for _, row := range opts.Rows {
		if width := utf8.RuneCountInString(row.Name); width > nameWidth {
			nameWidth = width
		}
	}
	detailWidth := tableDetailWidth(out, nameWidth, opts.Width, opts.MinDetailWidth)

	fmt.Fprintf(out, "%s  %s\n", padRightRunes(nameHeader, nameWidth), detailHeader)
	fmt.Fprintf(out, "%s  %s\n", strings.Repeat("-", nameWidth), strings.Repeat("-", detailWidth))
	for _, row := range opts.Rows {
		lines := wrapTextRunes(row.Detail, detailWidth)
		fmt.Fprintf(out, "%s  %s\n", padRightRunes(row.Name, nameWidth), lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(out, "%s  %s\n", strings.Repeat(" ", nameWidth), line)
		}
	}
}

func tableDetailWidth(out io.Writer, nameWidth, width, minDetailWidth int) int {
	if width <= 0 {
		width = defaultTableWidth
	}
	if minDetailWidth <= 0 {
		minDetailWidth = defaultMinDetailWidth
	}
	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if terminalWidth, _, err := term.GetSize(int(file.Fd())); err == nil && terminalWidth > 0 {
			width = terminalWidth
		}
	}
	detailWidth := width - nameWidth - 2
	if detailWidth < minDetailWidth {
		detailWidth = minDetailWidth
	}
	return detailWidth
}

func padRightRunes(s string, width int) string {
	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s
	}
	return s + strings.Repeat(" ", missing)
}

// wrapTextRunes wraps on spaces and cuts words longer than width. Feed urls
// usually have no spaces, so long ones are cut.
func wrapTextRunes(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	var lines []string
	current := ""
	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}
	for _, word := range words {
		for utf8.RuneCountInString(word) > width {
			flush()
			runes := []rune(word)
			lines = append(lines, string(runes[:width]))
			word = string(runes[width:])
		}
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()
	return lines
}
