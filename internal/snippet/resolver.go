package snippet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Resolved is the content selected by a Reference. It is immutable once returned.
type Resolved struct {
	Reference    Reference
	AbsolutePath string
	Content      string
	Language     string
	ModifiedAt   time.Time
	// SizeBytes is the byte length of Content.
	SizeBytes int
	// LineCount is the number of lines in the whole file.
	LineCount int
	// Digest is the hex xxh3 hash of Content.
	Digest string
}

// Resolver locates and reads referenced files below a source root.
type Resolver struct {
	languages map[string]string
	readFile  func(string) ([]byte, error)
	stat      func(string) (fs.FileInfo, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLanguages overrides language detection for the given extensions
// (".tpl": "gotemplate"). Keys are matched case-insensitively.
func WithLanguages(m map[string]string) Option {
	return func(r *Resolver) {
		for ext, lang := range m {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.languages[strings.ToLower(ext)] = lang
		}
	}
}

// WithReadFile replaces the function used to read snippet files.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(r *Resolver) { r.readFile = fn }
}

// WithStat replaces the function used to stat snippet files.
func WithStat(fn func(string) (fs.FileInfo, error)) Option {
	return func(r *Resolver) { r.stat = fn }
}

// NewResolver creates a Resolver reading from the local filesystem.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		languages: map[string]string{},
		readFile:  os.ReadFile,
		stat:      os.Stat,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Locate joins ref.Path with sourceRoot and verifies the result stays inside the root.
// The check is lexical and does not touch the filesystem.
func (r *Resolver) Locate(ref Reference, sourceRoot string) (string, *Error) {
	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return "", newError(KindReadFailure, ref, "", fmt.Errorf("source root: %w", err))
	}

	p := filepath.FromSlash(ref.Path)
	target := filepath.Join(root, p)
	if filepath.IsAbs(p) {
		target = filepath.Clean(p)
	}
	if !within(root, target) {
		return "", newError(KindPathEscapesRoot, ref, target, nil)
	}
	return target, nil
}

// Stat locates the referenced file and returns its path and modification time
// without reading it.
func (r *Resolver) Stat(ref Reference, sourceRoot string) (string, time.Time, *Error) {
	target, serr := r.Locate(ref, sourceRoot)
	if serr != nil {
		return "", time.Time{}, serr
	}
	info, err := r.stat(target)
	if err != nil {
		return "", time.Time{}, classifyIOError(ref, target, err)
	}
	if info.IsDir() {
		return "", time.Time{}, newError(KindReadFailure, ref, target, errors.New("is a directory"))
	}
	if serr := checkRealPath(ref, sourceRoot, target); serr != nil {
		return "", time.Time{}, serr
	}
	return target, info.ModTime(), nil
}

// Resolve reads the referenced file and extracts the requested region.
func (r *Resolver) Resolve(ref Reference, sourceRoot string) (*Resolved, *Error) {
	target, modTime, serr := r.Stat(ref, sourceRoot)
	if serr != nil {
		return nil, serr
	}

	data, err := r.readFile(target)
	if err != nil {
		return nil, classifyIOError(ref, target, err)
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, newError(KindReadFailure, ref, target, err)
	}

	lines := splitLines(text)
	content := text
	if ref.HasRange() {
		if ref.Start > len(lines) || ref.End > len(lines) {
			return nil, newError(KindRangeOutOfBounds, ref, target,
				fmt.Errorf("lines %d-%d requested, file has %d", ref.Start, ref.End, len(lines)))
		}
		content = strings.Join(lines[ref.Start-1:ref.End], "\n")
	}

	return &Resolved{
		Reference:    ref,
		AbsolutePath: target,
		Content:      content,
		Language:     r.Language(ref, target),
		ModifiedAt:   modTime,
		SizeBytes:    len(content),
		LineCount:    len(lines),
		Digest:       fmt.Sprintf("%016x", xxh3.HashString(content)),
	}, nil
}

// Language returns the language tag for ref: its explicit hint, else the
// configured overrides, else DetectLanguage of target.
func (r *Resolver) Language(ref Reference, target string) string {
	if ref.Language != "" {
		return ref.Language
	}
	if lang, ok := r.languages[strings.ToLower(filepath.Ext(target))]; ok {
		return lang
	}
	return DetectLanguage(target)
}

func classifyIOError(ref Reference, target string, err error) *Error {
	if errors.Is(err, fs.ErrNotExist) {
		return newError(KindNotFound, ref, target, err)
	}
	return newError(KindReadFailure, ref, target, err)
}

// checkRealPath rejects targets that only stay inside the root lexically and
// leave it through a symlink.
func checkRealPath(ref Reference, sourceRoot, target string) *Error {
	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil
	}
	realTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return nil
	}
	if !within(realRoot, realTarget) {
		return newError(KindPathEscapesRoot, ref, target, fmt.Errorf("resolves to %s", realTarget))
	}
	return nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// decodeText converts file bytes to UTF-8, honouring a UTF-8 or UTF-16 byte-order
// mark, and normalizes line endings to \n.
func decodeText(data []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	s := strings.ReplaceAll(string(decoded), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}

// splitLines splits normalized text into lines. A single trailing newline does
// not start another line, so "a\nb\n" has two lines and "" has none.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
