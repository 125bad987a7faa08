package viewer

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/gdamore/tcell/v2"
)

// Segment is a run of text drawn in one style.
type Segment struct {
	Text  string
	Style tcell.Style
}

// Theme maps token categories to styles.
type Theme struct {
	Text     tcell.Style
	Keyword  tcell.Style
	Name     tcell.Style
	Function tcell.Style
	String   tcell.Style
	Number   tcell.Style
	Comment  tcell.Style
	Operator tcell.Style
}

// DefaultTheme uses the terminal palette so it works on 16-color terminals.
func DefaultTheme() Theme {
	base := tcell.StyleDefault
	return Theme{
		Text:     base,
		Keyword:  base.Foreground(tcell.ColorYellow).Bold(true),
		Name:     base,
		Function: base.Foreground(tcell.ColorBlue),
		String:   base.Foreground(tcell.ColorGreen),
		Number:   base.Foreground(tcell.ColorFuchsia),
		Comment:  base.Foreground(tcell.ColorGray).Italic(true),
		Operator: base.Foreground(tcell.ColorTeal),
	}
}

// StyleFor returns the style for a token type.
func (t Theme) StyleFor(tt chroma.TokenType) tcell.Style {
	switch {
	case tt.InCategory(chroma.Comment):
		return t.Comment
	case tt.InCategory(chroma.Keyword):
		return t.Keyword
	case tt == chroma.NameFunction || tt == chroma.NameBuiltin:
		return t.Function
	case tt.InCategory(chroma.Name):
		return t.Name
	case tt.InSubCategory(chroma.LiteralString):
		return t.String
	case tt.InSubCategory(chroma.LiteralNumber):
		return t.Number
	case tt.InCategory(chroma.Operator), tt == chroma.Punctuation:
		return t.Operator
	default:
		return t.Text
	}
}

// Highlight splits lines into styled segments. Unknown languages yield a
// single plain segment per line.
func Highlight(theme Theme, language, path string, lines []string) [][]Segment {
	out := make([][]Segment, len(lines))
	lexer := lookupLexer(language, path)
	if lexer == nil || len(lines) == 0 {
		return plain(theme, lines)
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, strings.Join(lines, "\n")+"\n")
	if err != nil {
		return plain(theme, lines)
	}

	row := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		style := theme.StyleFor(tok.Type)
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				row++
			}
			if row >= len(out) {
				return out
			}
			if part != "" {
				out[row] = append(out[row], Segment{Text: part, Style: style})
			}
		}
	}
	return out
}

func lookupLexer(language, path string) chroma.Lexer {
	if language != "" {
		if l := lexers.Get(language); l != nil {
			return l
		}
	}
	if path != "" {
		return lexers.Match(path)
	}
	return nil
}

func plain(theme Theme, lines []string) [][]Segment {
	out := make([][]Segment, len(lines))
	for i, l := range lines {
		if l != "" {
			out[i] = []Segment{{Text: l, Style: theme.Text}}
		}
	}
	return out
}
