package export

import (
	"fmt"
	"strings"
)

// ToHTML renders the document into the HTML subset the PDF layer (and any
// embedding renderer) accepts: <b>, <i>, <h1>-<h3>, <li>, <img>, <pre>, <br>.
// Line breaks are emitted last, when the block outputs are joined, so they
// cannot interfere with block-level recognition.
func ToHTML(documentText string) string {
	return renderHTML(Parse(documentText))
}

func renderHTML(blocks []Block) string {
	rendered := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case BlockBlank:
			rendered = append(rendered, "")
		case BlockHeading:
			rendered = append(rendered, fmt.Sprintf("<h%d>%s</h%d>", b.Level, spansToHTML(b.Spans), b.Level))
		case BlockListItem:
			rendered = append(rendered, "<li>"+spansToHTML(b.Spans)+"</li>")
		case BlockCode:
			rendered = append(rendered, "<pre>"+b.Text+"</pre>")
		default:
			rendered = append(rendered, spansToHTML(b.Spans))
		}
	}
	return strings.Join(rendered, "<br>")
}

func spansToHTML(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case SpanBold:
			b.WriteString("<b>" + s.Text + "</b>")
		case SpanItalic:
			b.WriteString("<i>" + s.Text + "</i>")
		case SpanImage:
			fmt.Fprintf(&b, `<img src="%s" width="300">`, s.Src)
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
