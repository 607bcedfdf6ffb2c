package argparse

import (
	"fmt"
	"strings"
)

const helpColumn = 24

func (d *decl) metavar() string {
	if d.Metavar != "" {
		return d.Metavar
	}
	if d.optional {
		return strings.ToUpper(d.Dest)
	}
	return d.Dest
}

func (d *decl) usagePart() string {
	if d.optional {
		name := "--" + d.long
		if d.short != "" {
			name = "-" + d.short
		}
		if d.Action.takesValue() {
			name += " " + d.metavar()
		}
		if d.Required {
			return name
		}
		return "[" + name + "]"
	}
	m := d.metavar()
	switch d.Nargs {
	case NargsOne:
		return m
	case NargsOptional:
		return "[" + m + "]"
	case NargsAny:
		return "[" + m + " ...]"
	case NargsSome:
		return m + " [" + m + " ...]"
	}
	parts := make([]string, d.min)
	for i := range parts {
		parts[i] = m
	}
	return strings.Join(parts, " ")
}

func (d *decl) invocation() string {
	if !d.optional {
		return d.metavar()
	}
	names := make([]string, 0, 2)
	if d.short != "" {
		names = append(names, "-"+d.short)
	}
	if d.long != "" {
		names = append(names, "--"+d.long)
	}
	out := strings.Join(names, ", ")
	if d.Action.takesValue() {
		out += " " + d.metavar()
	}
	return out
}

func (p *Parser) usage(prog string) string {
	parts := []string{"usage: " + prog}
	if p.addHelp {
		parts = append(parts, "[-h]")
	}
	for _, d := range p.options() {
		parts = append(parts, d.usagePart())
	}
	for _, d := range p.positionals() {
		parts = append(parts, d.usagePart())
	}
	return strings.Join(parts, " ") + "\n"
}

func (p *Parser) help(prog string) string {
	var b strings.Builder
	b.WriteString(p.usage(prog))
	if p.description != "" {
		b.WriteString("\n" + p.description + "\n")
	}
	if pos := p.positionals(); len(pos) > 0 {
		b.WriteString("\npositional arguments:\n")
		for _, d := range pos {
			writeHelpLine(&b, d.invocation(), d.Help)
		}
	}
	opts := p.options()
	if len(opts) > 0 || p.addHelp {
		b.WriteString("\noptions:\n")
		if p.addHelp {
			writeHelpLine(&b, "-h, --help", "show this help message and exit")
		}
		for _, d := range opts {
			writeHelpLine(&b, d.invocation(), d.Help)
		}
	}
	return b.String()
}

func writeHelpLine(b *strings.Builder, left, help string) {
	left = "  " + left
	if help == "" {
		b.WriteString(left + "\n")
		return
	}
	if len(left) >= helpColumn-1 {
		fmt.Fprintf(b, "%s\n%s%s\n", left, strings.Repeat(" ", helpColumn), help)
		return
	}
	fmt.Fprintf(b, "%-*s%s\n", helpColumn, left, help)
}

// Usage returns the one-line usage text for prog.
func (p *Parser) Usage(prog string) string {
	if prog == "" {
		prog = p.prog
	}
	return p.usage(prog)
}

// Help returns the full help text for prog.
func (p *Parser) Help(prog string) string {
	if prog == "" {
		prog = p.prog
	}
	return p.help(prog)
}

// Description returns the text given with WithDescription.
func (p *Parser) Description() string {
	return p.description
}
