package export

import (
	"bufio"
	"io"
	"iter"
	"time"

	"foodgram/internal/models"
)

// Text renders a plain-text list headed by the day and month of at.
type Text struct{}

func (Text) ContentType() string { return "text/plain; charset=utf-8" }

func (Text) Filename() string { return "shopping_list.txt" }

func (Text) Render(w io.Writer, items iter.Seq[models.ShoppingItem], at time.Time) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Shopping list for: " + at.Format("02-01") + "\n\n")
	for item := range items {
		bw.WriteString(itemLine(item) + "\n")
	}
	bw.WriteString("\nFoodgram\n")
	return bw.Flush()
}
