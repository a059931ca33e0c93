package snippet

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidDirective is wrapped by every directive parse failure.
var ErrInvalidDirective = errors.New("invalid include directive")

// Reference is a parsed include directive. Start and End are both zero when the
// whole file is requested; otherwise 1 <= Start <= End.
type Reference struct {
	Path     string
	Start    int
	End      int
	Language string
	// Raw is the directive body as written, used for dedup and diagnostics.
	Raw string
}

// HasRange reports whether the reference selects a line range.
func (r Reference) HasRange() bool {
	return r.Start > 0
}

// String renders the reference back into directive body syntax.
func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(r.Path)
	if r.HasRange() {
		if r.Start == r.End {
			fmt.Fprintf(&b, "#%d", r.Start)
		} else {
			fmt.Fprintf(&b, "#%d-%d", r.Start, r.End)
		}
	}
	if r.Language != "" {
		b.WriteString(":")
		b.WriteString(r.Language)
	}
	return b.String()
}

// body grammar: <path>[#<start>[-<end>]][:<language>]
var bodyPattern = regexp.MustCompile(`^([^#:{}\n]+?)(?:#(\d+)(?:-(\d+))?)?(?::([A-Za-z0-9_+.\-]+))?$`)

// ParseReference parses the body of an include directive, for example
// "snippets/a.go#10-20:go".
func ParseReference(body string) (Reference, error) {
	raw := strings.TrimSpace(body)
	m := bodyPattern.FindStringSubmatch(raw)
	if m == nil {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidDirective, raw)
	}

	ref := Reference{
		Path:     strings.TrimSpace(m[1]),
		Language: m[4],
		Raw:      raw,
	}
	if ref.Path == "" {
		return Reference{}, fmt.Errorf("%w: empty path", ErrInvalidDirective)
	}

	if m[2] != "" {
		start, err := strconv.Atoi(m[2])
		if err != nil {
			return Reference{}, fmt.Errorf("%w: range start: %w", ErrInvalidDirective, err)
		}
		end := start
		if m[3] != "" {
			if end, err = strconv.Atoi(m[3]); err != nil {
				return Reference{}, fmt.Errorf("%w: range end: %w", ErrInvalidDirective, err)
			}
		}
		if start < 1 || end < start {
			return Reference{}, fmt.Errorf("%w: range %d-%d must satisfy 1 <= start <= end", ErrInvalidDirective, start, end)
		}
		ref.Start, ref.End = start, end
	}

	return ref, nil
}
