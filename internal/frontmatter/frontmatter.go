// Package frontmatter separates YAML frontmatter from a Markdown document so
// directive discovery never looks inside it and pages can carry per-document
// snippet settings.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a Markdown source split into its frontmatter and body.
//
// BodyOffset is the byte offset of Body within the original content, so
// positions found in Body can be mapped back to the full document.
type Document struct {
	Raw        []byte
	Body       []byte
	BodyOffset int
	Had        bool
	Fields     map[string]any
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body and
// parses the frontmatter fields.
//
// A document without a leading delimiter yields Had == false and the full input
// as Body. When the block is delimited but its YAML does not parse, the
// returned Document still locates the block (Had, Raw, Body, BodyOffset) with
// empty Fields, alongside the error.
func Split(content []byte) (Document, error) {
	doc := Document{Body: content, Fields: map[string]any{}}

	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return doc, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		doc.Had = true
		doc.Raw = []byte{}
		doc.BodyOffset = start + len(open)
		doc.Body = content[doc.BodyOffset:]
		return doc, nil
	}

	end, bodyStart, ok := findClosing(content, start, nl)
	if !ok {
		return doc, ErrMissingClosingDelimiter
	}

	doc.Had = true
	doc.Raw = content[start:end]
	doc.BodyOffset = bodyStart
	doc.Body = content[bodyStart:]

	fields, err := ParseYAML(content[start:end])
	if err != nil {
		return doc, fmt.Errorf("parse frontmatter: %w", err)
	}
	doc.Fields = fields
	return doc, nil
}

// ParseYAML parses raw YAML frontmatter (without --- delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Bool returns a boolean frontmatter field, or def when absent or not a bool.
func (d Document) Bool(key string, def bool) bool {
	if v, ok := d.Fields[key].(bool); ok {
		return v
	}
	return def
}

// String returns a string frontmatter field.
func (d Document) String(key string) (string, bool) {
	v, ok := d.Fields[key].(string)
	return v, ok
}

// findClosing locates a "---" line after start. It returns the end of the
// frontmatter block and the start of the body.
func findClosing(content []byte, start int, nl string) (int, int, bool) {
	closing := []byte(nl + "---")
	for from := start; from < len(content); {
		idx := bytes.Index(content[from:], closing)
		if idx < 0 {
			return 0, 0, false
		}
		end := from + idx + len(nl)
		after := end + len("---")
		if after == len(content) {
			return end, after, true
		}
		if bytes.HasPrefix(content[after:], []byte(nl)) {
			return end, after + len(nl), true
		}
		from = after
	}
	return 0, 0, false
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
