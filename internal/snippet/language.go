package snippet

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// PlainText is the language tag for files nothing else recognizes.
const PlainText = "text"

var extensionLanguages = map[string]string{
	".bash":    "bash",
	".c":       "c",
	".cc":      "cpp",
	".cjs":     "javascript",
	".cpp":     "cpp",
	".cs":      "csharp",
	".css":     "css",
	".cue":     "cue",
	".diff":    "diff",
	".go":      "go",
	".graphql": "graphql",
	".h":       "c",
	".hcl":     "hcl",
	".hpp":     "cpp",
	".html":    "html",
	".ini":     "ini",
	".java":    "java",
	".js":      "javascript",
	".json":    "json",
	".jsx":     "jsx",
	".kt":      "kotlin",
	".lua":     "lua",
	".md":      "markdown",
	".mjs":     "javascript",
	".patch":   "diff",
	".php":     "php",
	".proto":   "protobuf",
	".ps1":     "powershell",
	".py":      "python",
	".rb":      "ruby",
	".rs":      "rust",
	".scss":    "scss",
	".sh":      "bash",
	".sql":     "sql",
	".swift":   "swift",
	".tf":      "hcl",
	".toml":    "toml",
	".ts":      "typescript",
	".tsx":     "tsx",
	".txt":     PlainText,
	".xml":     "xml",
	".yaml":    "yaml",
	".yml":     "yaml",
	".zsh":     "bash",
}

var filenameLanguages = map[string]string{
	"dockerfile":  "dockerfile",
	"makefile":    "makefile",
	"go.mod":      "go-mod",
	"jenkinsfile": "groovy",
}

// DetectLanguage maps a file path to a language tag: the extension table first,
// then well-known file names, then the chroma lexer registry. Unknown files are
// PlainText.
func DetectLanguage(path string) string {
	base := filepath.Base(path)
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	if lang, ok := filenameLanguages[strings.ToLower(base)]; ok {
		return lang
	}
	if lexer := lexers.Match(base); lexer != nil {
		cfg := lexer.Config()
		if len(cfg.Aliases) > 0 {
			return strings.ToLower(cfg.Aliases[0])
		}
		return strings.ToLower(cfg.Name)
	}
	return PlainText
}
