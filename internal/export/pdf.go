package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// RenderError reports a failed PDF export. The prior document generation is
// unaffected; no partial or degraded PDF is ever produced.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("export: pdf render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PDFRenderer converts annotated SOP markdown into a PDF byte stream with a
// fixed "Maintenance SOP" page header.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

const (
	bodyLineHeight = 5.0
	imageWidthMM   = 80.0 // ~300px at screen resolution, matching the HTML embed width
)

// Render parses documentText and renders it to PDF bytes.
func (r *PDFRenderer) Render(documentText string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 15)
		pdf.CellFormat(0, 10, "Maintenance SOP", "", 1, "C", false, 0, "")
		pdf.Ln(5)
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)

	imageSeq := 0
	for _, block := range Parse(documentText) {
		switch block.Kind {
		case BlockBlank:
			pdf.Ln(3)
		case BlockHeading:
			size := headingSize(block.Level)
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", size)
			writeSpans(pdf, tr, block.Spans, &imageSeq)
			pdf.Ln(size / 2)
			pdf.SetFont("Helvetica", "", 12)
		case BlockListItem:
			marker := "- "
			if block.Ordered {
				marker = block.Marker + " "
			}
			pdf.Write(bodyLineHeight, tr(marker))
			writeSpans(pdf, tr, block.Spans, &imageSeq)
			pdf.Ln(bodyLineHeight)
		case BlockCode:
			pdf.Ln(2)
			pdf.SetFont("Courier", "", 10)
			pdf.MultiCell(0, 4.5, tr(block.Text), "", "L", false)
			pdf.SetFont("Helvetica", "", 12)
			pdf.Ln(2)
		default:
			writeSpans(pdf, tr, block.Spans, &imageSeq)
			pdf.Ln(bodyLineHeight)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 18
	case 2:
		return 15
	default:
		return 13
	}
}

func writeSpans(pdf *fpdf.Fpdf, tr func(string) string, spans []Span, imageSeq *int) {
	for _, s := range spans {
		switch s.Kind {
		case SpanBold:
			pdf.SetFontStyle("B")
			pdf.Write(bodyLineHeight, tr(s.Text))
			pdf.SetFontStyle("")
		case SpanItalic:
			pdf.SetFontStyle("I")
			pdf.Write(bodyLineHeight, tr(s.Text))
			pdf.SetFontStyle("")
		case SpanImage:
			placeImage(pdf, s.Src, imageSeq)
		default:
			pdf.Write(bodyLineHeight, tr(s.Text))
		}
	}
}

// placeImage embeds a self-contained data-URI image into the flow. Any
// malformed reference is recorded on the document and fails the whole render
// when Output is called.
func placeImage(pdf *fpdf.Fpdf, src string, imageSeq *int) {
	imageType, data, err := decodeDataURI(src)
	if err != nil {
		pdf.SetError(err)
		return
	}

	*imageSeq++
	name := fmt.Sprintf("inline-%d", *imageSeq)
	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

	pdf.Ln(bodyLineHeight)
	pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), imageWidthMM, 0, true, opts, 0, "")
	pdf.Ln(2)
}

func decodeDataURI(src string) (imageType string, data []byte, err error) {
	switch {
	case strings.HasPrefix(src, "data:image/jpeg;base64,"):
		imageType = "JPG"
		src = strings.TrimPrefix(src, "data:image/jpeg;base64,")
	case strings.HasPrefix(src, "data:image/png;base64,"):
		imageType = "PNG"
		src = strings.TrimPrefix(src, "data:image/png;base64,")
	default:
		return "", nil, fmt.Errorf("export: unsupported image reference %.32q", src)
	}

	data, err = base64.StdEncoding.DecodeString(src)
	if err != nil {
		return "", nil, fmt.Errorf("export: decode image data: %w", err)
	}
	return imageType, data, nil
}
