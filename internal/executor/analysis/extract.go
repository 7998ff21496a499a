package analysis

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skippedElements never contribute readable text
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// Page is the readable text extracted from an HTML document
type Page struct {
	Title string
	Text  string
}

// ExtractText tokenizes an HTML document and returns its visible text with
// entities decoded and whitespace collapsed. Malformed markup is tolerated;
// tokenizing stops at the first read error other than EOF.
func ExtractText(r io.Reader) Page {
	z := html.NewTokenizer(r)

	var (
		text    strings.Builder
		title   strings.Builder
		skip    int
		inTitle bool
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			return Page{
				Title: collapseWhitespace(title.String()),
				Text:  collapseWhitespace(text.String()),
			}

		case html.StartTagToken:
			tok := z.Token()
			if skippedElements[tok.DataAtom] {
				skip++
			}
			if tok.DataAtom == atom.Title {
				inTitle = true
			}
			text.WriteByte(' ')

		case html.EndTagToken:
			tok := z.Token()
			if skippedElements[tok.DataAtom] && skip > 0 {
				skip--
			}
			if tok.DataAtom == atom.Title {
				inTitle = false
			}
			text.WriteByte(' ')

		case html.SelfClosingTagToken:
			text.WriteByte(' ')

		case html.TextToken:
			if skip > 0 {
				continue
			}
			chunk := z.Text()
			if inTitle {
				title.Write(chunk)
				continue
			}
			text.Write(chunk)
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
