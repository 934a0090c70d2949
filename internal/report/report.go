// Package report renders run results for humans or machines.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/hntally/internal/domain/model"
)

// Reporter writes a RunResult somewhere.
type Reporter interface {
	Render(ctx context.Context, res model.RunResult) error
}

// New returns the reporter for format ("text" or "json").
func New(format string, w io.Writer) (Reporter, error) {
	switch format {
	case "", "text":
		return NewText(w), nil
	case "json":
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Text renders one block per story:
//
//	Story title
//	  1. user-c (3 for story - 8 total)
type Text struct {
	w io.Writer
}

// NewText creates a Text reporter writing to w.
func NewText(w io.Writer) *Text { return &Text{w: w} }

// Render implements Reporter.
func (t *Text) Render(_ context.Context, res model.RunResult) error {
	tw := tabwriter.NewWriter(t.w, 0, 4, 1, ' ', 0)
	for i, item := range res.Items {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		title := item.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(tw, "%s [%d]\n", title, item.ID)
		if len(item.Commenters) == 0 {
			fmt.Fprintln(tw, "  no comments")
			continue
		}
		for rank, c := range item.Commenters {
			fmt.Fprintf(tw, "  %d.\t%s (%d for story - %d total)\n", rank+1, c.Author, c.ItemCount, c.GlobalCount)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(tw, "\nskipped %d item(s): %v\n", len(res.Skipped), res.Skipped)
	}
	return tw.Flush()
}

// JSON writes the RunResult as a single indented document.
type JSON struct {
	w io.Writer
}

// NewJSON creates a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSON { return &JSON{w: w} }

// Render implements Reporter.
func (j *JSON) Render(_ context.Context, res model.RunResult) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
