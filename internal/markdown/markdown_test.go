package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeRegions_FencedBlockAndSpan(t *testing.T) {
	body := []byte("" +
		"Inline `{{include: span.txt}}` here.\n" +
		"\n" +
		"```md\n" +
		"{{include: fenced.txt}}\n" +
		"```\n" +
		"\n" +
		"{{include: real.txt}}\n")

	regions := CodeRegions(body)

	span := bytes.Index(body, []byte("{{include: span.txt}}"))
	fenced := bytes.Index(body, []byte("{{include: fenced.txt}}"))
	plain := bytes.Index(body, []byte("{{include: real.txt}}"))

	require.True(t, InRegions(regions, span))
	require.True(t, InRegions(regions, fenced))
	require.False(t, InRegions(regions, plain))
}

func TestCodeRegions_IndentedCodeBlock(t *testing.T) {
	body := []byte("Para\n\n    {{include: indented.txt}}\n\nAfter {{include: b.txt}}\n")

	regions := CodeRegions(body)

	require.True(t, InRegions(regions, bytes.Index(body, []byte("{{include: indented.txt}}"))))
	require.False(t, InRegions(regions, bytes.Index(body, []byte("{{include: b.txt}}"))))
}

func TestCodeRegions_NoCode(t *testing.T) {
	require.Empty(t, CodeRegions([]byte("# Title\n\nPlain prose.\n")))
}

func TestMergeRegions(t *testing.T) {
	got := mergeRegions([]Region{{10, 20}, {0, 5}, {15, 30}, {40, 41}})
	require.Equal(t, []Region{{0, 5}, {10, 30}, {40, 41}}, got)
}
