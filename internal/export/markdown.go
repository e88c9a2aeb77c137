package export

import (
	"regexp"
	"strings"
)

// The exporter understands the constrained markdown subset the generator is
// instructed to emit: headings 1-3, bold, italic, unordered and ordered list
// items, inline images, and fenced code blocks (the mermaid process-flow
// diagram arrives as one). Parsing to explicit nodes instead of chaining
// textual substitutions removes the ordering fragility of a regex pipeline:
// each construct is recognized once, in place.

// BlockKind discriminates block-level nodes.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockCode
	BlockBlank
)

// SpanKind discriminates inline nodes.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanBold
	SpanItalic
	SpanImage
)

// Span is one inline run within a block.
type Span struct {
	Kind SpanKind
	Text string
	Alt  string
	Src  string
}

// Block is one line-level node of the parsed document.
type Block struct {
	Kind    BlockKind
	Level   int    // heading level, 1-3
	Ordered bool   // list item numbering style
	Marker  string // ordered list marker, e.g. "1."
	Lang    string // code fence language tag
	Text    string // raw code block content
	Spans   []Span
}

var (
	headingLine = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	bulletLine  = regexp.MustCompile(`^-\s+(.*)$`)
	orderedLine = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

	imageInline  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	boldInline   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicInline = regexp.MustCompile(`\*([^*\n]+)\*`)
)

// Parse converts the document text into a flat block list. Each input line
// yields one block (paragraph lines are not merged), which keeps line-break
// rendering exact for both targets.
func Parse(text string) []Block {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var blocks []Block
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			var body []string
			for i++; i < len(lines); i++ {
				if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
					break
				}
				body = append(body, lines[i])
			}
			blocks = append(blocks, Block{Kind: BlockCode, Lang: lang, Text: strings.Join(body, "\n")})
			continue
		}

		if trimmed == "" {
			blocks = append(blocks, Block{Kind: BlockBlank})
			continue
		}

		if m := headingLine.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, Block{Kind: BlockHeading, Level: len(m[1]), Spans: parseSpans(m[2])})
			continue
		}
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, Block{Kind: BlockListItem, Spans: parseSpans(m[1])})
			continue
		}
		if m := orderedLine.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, Block{Kind: BlockListItem, Ordered: true, Marker: m[1] + ".", Spans: parseSpans(m[2])})
			continue
		}

		blocks = append(blocks, Block{Kind: BlockParagraph, Spans: parseSpans(line)})
	}
	return blocks
}

type inlineMatch struct {
	start int
	end   int
	span  Span
}

// parseSpans splits a line into inline runs. The earliest match wins; images
// are matched before emphasis at the same position so emphasis markers never
// fire inside an image's alt text or data URI.
func parseSpans(line string) []Span {
	var spans []Span
	rest := line
	for rest != "" {
		m := earliestInline(rest)
		if m == nil {
			spans = append(spans, Span{Kind: SpanText, Text: rest})
			break
		}
		if m.start > 0 {
			spans = append(spans, Span{Kind: SpanText, Text: rest[:m.start]})
		}
		spans = append(spans, m.span)
		rest = rest[m.end:]
	}
	return spans
}

func earliestInline(s string) *inlineMatch {
	var best *inlineMatch

	consider := func(loc []int, span Span) {
		if loc == nil {
			return
		}
		if best == nil || loc[0] < best.start {
			best = &inlineMatch{start: loc[0], end: loc[1], span: span}
		}
	}

	if loc := imageInline.FindStringSubmatchIndex(s); loc != nil {
		consider(loc[:2], Span{Kind: SpanImage, Alt: s[loc[2]:loc[3]], Src: s[loc[4]:loc[5]]})
	}
	if loc := boldInline.FindStringSubmatchIndex(s); loc != nil {
		consider(loc[:2], Span{Kind: SpanBold, Text: s[loc[2]:loc[3]]})
	}
	if loc := italicInline.FindStringSubmatchIndex(s); loc != nil {
		// A ** run also matches the italic pattern one byte later; bold at
		// the same opening position wins naturally because its match starts
		// earlier.
		consider(loc[:2], Span{Kind: SpanItalic, Text: s[loc[2]:loc[3]]})
	}
	return best
}
