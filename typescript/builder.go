package typescript

import "strings"

// CodeBuilder accumulates indented lines of TypeScript.
type CodeBuilder struct {
	lines []string
	level int
}

const indentUnit = "  "

// Line appends one line at the current indentation. Blank lines carry no
// indentation.
func (b *CodeBuilder) Line(s string) {
	if strings.TrimSpace(s) == "" {
		b.lines = append(b.lines, "")
		return
	}
	b.lines = append(b.lines, strings.Repeat(indentUnit, b.level)+s)
}

// Blank appends an empty line.
func (b *CodeBuilder) Blank() { b.Line("") }

// Lines appends each element of lines, splitting embedded newlines.
func (b *CodeBuilder) Lines(lines ...string) {
	for _, l := range lines {
		for _, part := range strings.Split(l, "\n") {
			b.Line(part)
		}
	}
}

func (b *CodeBuilder) Indent() { b.level++ }

func (b *CodeBuilder) Dedent() {
	if b.level > 0 {
		b.level--
	}
}

// Block writes open, runs body one level deeper, then writes close.
func (b *CodeBuilder) Block(open, close string, body func()) {
	b.Line(open)
	b.Indent()
	body()
	b.Dedent()
	b.Line(close)
}

// String joins the accumulated lines.
func (b *CodeBuilder) String() string {
	return strings.Join(b.lines, "\n")
}
