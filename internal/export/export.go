// Package export renders aggregated shopping lists as downloadable documents.
package export

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"foodgram/internal/models"
)

// Formats accepted by ForFormat.
const (
	FormatPDF  = "pdf"
	FormatText = "txt"
)

// Renderer writes a shopping list document.
type Renderer interface {
	ContentType() string
	Filename() string
	Render(w io.Writer, items iter.Seq[models.ShoppingItem], at time.Time) error
}

// ForFormat returns the renderer for format. An empty format means PDF.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatPDF:
		return PDF{}, nil
	case FormatText, "text":
		return Text{}, nil
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unsupported format %q, use pdf or txt", format))
	}
}

func itemLine(item models.ShoppingItem) string {
	return fmt.Sprintf("%s - %d %s", item.Name, item.Total, item.Unit)
}
