package markdown

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingEdits is returned when two edits touch the same bytes.
var ErrOverlappingEdits = errors.New("invalid edits: overlapping ranges")

// Edit represents a targeted byte-range replacement of source[Start:End].
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping byte-range edits to source in a single pass
// and returns the updated content. Offsets refer to the original source.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	size := len(source)
	prevEnd := 0
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("invalid edit[%d]: range [%d,%d) outside source of %d bytes", i, e.Start, e.End, len(source))
		}
		if e.Start < prevEnd {
			return nil, ErrOverlappingEdits
		}
		prevEnd = e.End
		size += len(e.Replacement) - (e.End - e.Start)
	}

	out := make([]byte, 0, size)
	cursor := 0
	for _, e := range sorted {
		out = append(out, source[cursor:e.Start]...)
		out = append(out, e.Replacement...)
		cursor = e.End
	}
	out = append(out, source[cursor:]...)
	return out, nil
}
