package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

// Format selects how resolved snippets are written into the document.
type Format string

const (
	// FormatMarkdown emits a fenced code block.
	FormatMarkdown Format = "markdown"
	// FormatHTML emits <pre><code class="language-x">.
	FormatHTML Format = "html"
	// FormatHighlight emits chroma-highlighted HTML with inline styles.
	FormatHighlight Format = "highlight"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMarkdown, FormatHTML, FormatHighlight:
		return f, nil
	case "":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown render format %q (want markdown, html or highlight)", s)
	}
}

func trimFinalNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}

// fencedBlock wraps content in a backtick fence longer than any backtick run inside it.
func fencedBlock(language, content string) string {
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))
	content = trimFinalNewline(content)
	if content == "" {
		return fence + language + "\n" + fence
	}
	return fence + language + "\n" + content + "\n" + fence
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

func htmlBlock(language, content string) string {
	code := &html.Node{
		Type:     html.ElementNode,
		Data:     "code",
		DataAtom: atom.Code,
		Attr:     []html.Attribute{{Key: "class", Val: "language-" + language}},
	}
	code.AppendChild(&html.Node{Type: html.TextNode, Data: trimFinalNewline(content)})
	pre := &html.Node{Type: html.ElementNode, Data: "pre", DataAtom: atom.Pre}
	pre.AppendChild(code)
	return renderNode(pre)
}

func highlightBlock(language, content, styleName string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, trimFinalNewline(content))
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", language, err)
	}
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.TabWidth(4))
	if err := formatter.Format(&buf, styles.Get(styleName), iterator); err != nil {
		return "", fmt.Errorf("highlight %s: %w", language, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// placeholder renders the visible marker that replaces a failed directive.
func placeholder(e *snippet.Error) string {
	div := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: "snippet-error"},
			{Key: "data-kind", Val: string(e.Kind)},
		},
	}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: "⚠ " + e.Message()})
	return renderNode(div)
}

func renderNode(n *html.Node) string {
	var b strings.Builder
	// Rendering an in-memory tree into a strings.Builder cannot fail.
	_ = html.Render(&b, n)
	return b.String()
}

func indentContinuation(s, indent string) string {
	if indent == "" || !strings.Contains(s, "\n") {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\n"+indent)
}
