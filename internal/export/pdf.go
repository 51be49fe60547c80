package export

import (
	"fmt"
	"io"
	"iter"
	"time"

	"foodgram/internal/models"

	"github.com/go-pdf/fpdf"
)

// Page geometry in points, measured from the bottom-left corner.
const (
	titleX    = 220
	titleY    = 800
	lineX     = 60
	firstY    = 750
	lineStep  = 20
	minY      = 60
	fontSize  = 12
	fontName  = "Helvetica"
	pdfTitle  = "Your shopping list"
	pdfAuthor = "Foodgram"
)

// PDF renders a numbered A4 list.
type PDF struct{}

func (PDF) ContentType() string { return "application/pdf" }

func (PDF) Filename() string { return "shopping_list.pdf" }

func (PDF) Render(w io.Writer, items iter.Seq[models.ShoppingItem], at time.Time) error {
	doc := newDocument(items, at)
	if err := doc.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return doc.Output(w)
}

func newDocument(items iter.Seq[models.ShoppingItem], at time.Time) *fpdf.Fpdf {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetTitle(pdfTitle, true)
	doc.SetAuthor(pdfAuthor, true)
	doc.SetCreationDate(at)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	_, pageH := doc.GetPageSize()

	newPage := func() {
		doc.AddPage()
		doc.SetFont(fontName, "", fontSize)
	}

	newPage()
	doc.Text(titleX, pageH-titleY, pdfTitle)

	y := float64(firstY)
	n := 0
	for item := range items {
		if y < minY {
			newPage()
			y = firstY
		}
		n++
		doc.Text(lineX, pageH-y, tr(fmt.Sprintf("%d) %s", n, itemLine(item))))
		y -= lineStep
	}
	return doc
}
