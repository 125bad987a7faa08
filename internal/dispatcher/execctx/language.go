package execctx

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// DetectLanguage returns a lowercase language label for a file, or the
// empty string when nothing matches. The file name is tried first, then
// the content.
func DetectLanguage(fileName, content string) string {
	var lexer chroma.Lexer
	if fileName != "" {
		lexer = lexers.Match(fileName)
	}
	if lexer == nil && content != "" {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		return ""
	}
	return strings.ToLower(lexer.Config().Name)
}

// IsBinary reports whether data looks like binary content.
func IsBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
