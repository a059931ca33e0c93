package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEdits_SingleReplacement(t *testing.T) {
	src := []byte("Before\n{{include: a.txt}}\nAfter\n")
	old := []byte("{{include: a.txt}}")
	idx := bytes.Index(src, old)
	require.NotEqual(t, -1, idx)

	out, err := ApplyEdits(src, []Edit{{Start: idx, End: idx + len(old), Replacement: []byte("```text\nA\n```")}})
	require.NoError(t, err)
	require.Equal(t, "Before\n```text\nA\n```\nAfter\n", string(out))
}

func TestApplyEdits_MultipleReplacementsUnsorted(t *testing.T) {
	src := []byte("A {{x}} B {{y}} C")
	x := bytes.Index(src, []byte("{{x}}"))
	y := bytes.Index(src, []byte("{{y}}"))

	out, err := ApplyEdits(src, []Edit{
		{Start: y, End: y + 5, Replacement: []byte("why")},
		{Start: x, End: x + 5, Replacement: []byte("ex")},
	})
	require.NoError(t, err)
	require.Equal(t, "A ex B why C", string(out))
}

func TestApplyEdits_CRLFPreserved(t *testing.T) {
	src := []byte("A: {{x}}\r\nB: {{x}}\r\n")
	idx := bytes.Index(src, []byte("{{x}}"))

	out, err := ApplyEdits(src, []Edit{{Start: idx, End: idx + 5, Replacement: []byte("1")}})
	require.NoError(t, err)
	require.Equal(t, "A: 1\r\nB: {{x}}\r\n", string(out))
}

func TestApplyEdits_NoEditsReturnsSource(t *testing.T) {
	src := []byte("unchanged")
	out, err := ApplyEdits(src, nil)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestApplyEdits_RejectsOverlappingEdits(t *testing.T) {
	_, err := ApplyEdits([]byte("abcdef"), []Edit{
		{Start: 1, End: 4, Replacement: []byte("X")},
		{Start: 3, End: 5, Replacement: []byte("Y")},
	})
	require.ErrorIs(t, err, ErrOverlappingEdits)
}

func TestApplyEdits_RejectsOutOfBounds(t *testing.T) {
	_, err := ApplyEdits([]byte("abc"), []Edit{{Start: 2, End: 9}})
	require.Error(t, err)
}
