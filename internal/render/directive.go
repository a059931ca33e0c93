package render

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/docsnip/internal/markdown"
)

// directivePattern matches {{include: body}}, optionally escaped with a leading backslash.
var directivePattern = regexp.MustCompile(`(\\?)\{\{\s*include:([^{}\n]*)\}\}`)

// containerPattern matches the block container markers that open a line:
// indentation, blockquote markers and list item markers.
var containerPattern = regexp.MustCompile(`^(?:[ \t]*(?:>[ \t]?|[-*+][ \t]+|\d{1,9}[.)][ \t]+))*[ \t]*`)

// directive is one include marker found in a document. Offsets are into the
// full document; Line and Column are 1-based.
type directive struct {
	Start   int
	End     int
	Body    string
	Escaped bool
	Line    int
	Column  int

	// Prefix is repeated at the start of every line a block replacement adds,
	// keeping it inside the blockquote or list item the directive sits in.
	Prefix string
	// BreakBefore and BreakAfter are set when text shares the line with the
	// directive, so a block replacement must go on lines of its own.
	BreakBefore bool
	BreakAfter  bool
	// From and To bound the bytes a block replacement overwrites: the
	// directive plus the blanks it absorbs on the sides where it breaks the line.
	From int
	To   int
}

// findDirectives scans body once and returns directives outside code, in
// document order. bodyOffset maps body positions back into doc.
func findDirectives(doc []byte, body []byte, bodyOffset int) []directive {
	matches := directivePattern.FindAllSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil
	}
	code := markdown.CodeRegions(body)

	out := make([]directive, 0, len(matches))
	line, lineStart, scanned, prevTo := 1, 0, 0, 0
	for _, m := range matches {
		// m[3] is where "{{" begins, after the optional backslash.
		if markdown.InRegions(code, m[3]) {
			continue
		}

		start, end := bodyOffset+m[0], bodyOffset+m[1]
		for ; scanned < start; scanned++ {
			if doc[scanned] == '\n' {
				line++
				lineStart = scanned + 1
			}
		}

		d := directive{
			Start:   start,
			End:     end,
			Body:    string(body[m[4]:m[5]]),
			Escaped: m[3] > m[2],
			Line:    line,
			Column:  utf8.RuneCount(doc[lineStart:start]) + 1,
			From:    start,
			To:      end,
		}
		if !d.Escaped {
			d.placeInLine(doc, lineStart, max(prevTo, lineStart))
		}
		prevTo = d.To
		out = append(out, d)
	}
	return out
}

// placeInLine decides how a block replacement fits the directive's line.
// floor is the lowest offset From may move back to.
func (d *directive) placeInLine(doc []byte, lineStart, floor int) {
	container := containerPattern.Find(doc[lineStart:d.Start])
	d.Prefix = continuationPrefix(container)

	lineEnd := len(doc)
	if i := bytes.IndexByte(doc[d.End:], '\n'); i >= 0 {
		lineEnd = d.End + i
	}

	d.BreakBefore = len(bytes.TrimSpace(doc[lineStart+len(container):d.Start])) != 0
	d.BreakAfter = len(bytes.TrimSpace(doc[d.End:lineEnd])) != 0

	if d.BreakBefore {
		floor = max(floor, lineStart+len(container))
		for d.From > floor && isBlank(doc[d.From-1]) {
			d.From--
		}
	}
	if d.BreakAfter {
		for d.To < lineEnd && isBlank(doc[d.To]) {
			d.To++
		}
	}
}

// layout places a multi-line block where the directive was: on lines of its
// own, with every added line carrying the container prefix.
func (d directive) layout(block string) string {
	var b strings.Builder
	if d.BreakBefore {
		b.WriteString("\n")
		b.WriteString(d.Prefix)
	}
	b.WriteString(indentContinuation(block, d.Prefix))
	if d.BreakAfter {
		b.WriteString("\n")
		b.WriteString(d.Prefix)
	}
	return b.String()
}

// continuationPrefix keeps blockquote markers and blanks, and turns list
// markers into spaces of the same width.
func continuationPrefix(container []byte) string {
	p := []byte(string(container))
	for i, c := range p {
		if c != '>' && !isBlank(c) {
			p[i] = ' '
		}
	}
	return string(p)
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func trimBody(body string) string {
	return strings.TrimSpace(body)
}
