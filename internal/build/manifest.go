package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ManifestFileName is the manifest written into the output directory.
const ManifestFileName = ".docsnip-manifest.json"

// Manifest records what every document of a build included.
type Manifest struct {
	BuildID     string             `json:"build_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	SourceRoot  string             `json:"source_root"`
	Documents   []ManifestDocument `json:"documents"`
	Hash        string             `json:"hash"`
}

// ManifestDocument is one rendered document.
type ManifestDocument struct {
	Path        string            `json:"path"`
	Fingerprint string            `json:"fingerprint"`
	Skipped     bool              `json:"skipped,omitempty"`
	Snippets    []ManifestSnippet `json:"snippets,omitempty"`
	Errors      []ManifestError   `json:"errors,omitempty"`
}

// ManifestSnippet is one distinct include of a document.
type ManifestSnippet struct {
	Path     string `json:"path"`
	Start    int    `json:"start,omitempty"`
	End      int    `json:"end,omitempty"`
	Language string `json:"language"`
	Digest   string `json:"digest"`
}

// ManifestError is one failed include of a document.
type ManifestError struct {
	Kind      string `json:"kind"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Directive string `json:"directive"`
	Message   string `json:"message"`
}

// NewManifest builds a manifest from document reports. Documents are sorted by
// path and snippet paths are made relative to sourceRoot.
func NewManifest(buildID, sourceRoot string, generatedAt time.Time, reports []DocumentReport) *Manifest {
	m := &Manifest{
		BuildID:     buildID,
		GeneratedAt: generatedAt.UTC(),
		SourceRoot:  sourceRoot,
		Documents:   make([]ManifestDocument, 0, len(reports)),
	}
	for _, r := range reports {
		doc := ManifestDocument{Path: r.Path, Fingerprint: r.Fingerprint, Skipped: r.Skipped}
		for _, inc := range r.Included {
			doc.Snippets = append(doc.Snippets, ManifestSnippet{
				Path:     relativeTo(sourceRoot, inc.Path),
				Start:    inc.Start,
				End:      inc.End,
				Language: inc.Language,
				Digest:   inc.Digest,
			})
		}
		for _, e := range r.Errors {
			doc.Errors = append(doc.Errors, ManifestError{
				Kind:      string(e.Kind),
				Line:      e.Line,
				Column:    e.Column,
				Directive: e.Directive,
				Message:   e.Message(),
			})
		}
		m.Documents = append(m.Documents, doc)
	}
	sort.Slice(m.Documents, func(i, j int) bool { return m.Documents[i].Path < m.Documents[j].Path })
	m.Hash = m.ComputeHash()
	return m
}

// ComputeHash returns a deterministic sha256 over the document entries. The
// build ID and timestamp are excluded, so identical inputs hash identically.
func (m *Manifest) ComputeHash() string {
	if len(m.Documents) == 0 {
		h := sha256.Sum256([]byte("empty-docsnip-manifest"))
		return hex.EncodeToString(h[:])
	}

	docs := make([]ManifestDocument, len(m.Documents))
	copy(docs, m.Documents)
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })

	h := sha256.New()
	for _, d := range docs {
		fmt.Fprintf(h, "doc|%s|%s|%t\n", d.Path, d.Fingerprint, d.Skipped)
		for _, s := range d.Snippets {
			fmt.Fprintf(h, "snippet|%s|%d|%d|%s|%s\n", s.Path, s.Start, s.End, s.Language, s.Digest)
		}
		for _, e := range d.Errors {
			fmt.Fprintf(h, "error|%s|%d|%d|%s\n", e.Kind, e.Line, e.Column, e.Directive)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WriteManifest writes m into dir, replacing any previous manifest atomically.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if err := writeFile(filepath.Join(dir, ManifestFileName), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

func relativeTo(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
