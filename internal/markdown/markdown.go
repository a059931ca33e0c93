package markdown

import (
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Region is a half-open byte range [Start, End) of a Markdown body.
type Region struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside the region.
func (r Region) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// CodeRegions parses a Markdown body (frontmatter already removed) and returns the
// byte ranges occupied by code: fenced and indented code blocks and inline code spans.
//
// Regions are sorted by Start and do not overlap.
func CodeRegions(body []byte) []Region {
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	regions := make([]Region, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			if r, ok := linesRegion(node.Lines()); ok {
				regions = append(regions, r)
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeSpan:
			if r, ok := childrenRegion(node); ok {
				regions = append(regions, r)
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})

	return mergeRegions(regions)
}

// InRegions reports whether offset falls inside any of the sorted regions.
func InRegions(regions []Region, offset int) bool {
	i := sort.Search(len(regions), func(i int) bool { return regions[i].End > offset })
	return i < len(regions) && regions[i].Contains(offset)
}

func linesRegion(lines *text.Segments) (Region, bool) {
	if lines == nil || lines.Len() == 0 {
		return Region{}, false
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return Region{Start: first.Start, End: last.Stop}, true
}

func childrenRegion(n gmast.Node) (Region, bool) {
	r := Region{Start: -1}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*gmast.Text)
		if !ok {
			continue
		}
		if r.Start < 0 || t.Segment.Start < r.Start {
			r.Start = t.Segment.Start
		}
		if t.Segment.Stop > r.End {
			r.End = t.Segment.Stop
		}
	}
	return r, r.Start >= 0 && r.End > r.Start
}

func mergeRegions(regions []Region) []Region {
	if len(regions) < 2 {
		return regions
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })
	out := regions[:1]
	for _, r := range regions[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
