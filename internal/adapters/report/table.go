// Package report renders the declared targets of an mkfile as a table.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Row describes one declared target.
type Row struct {
	Target   string
	Kind     string
	Attrs    []string
	Sources  []string
	Commands int
	Status   string
}

// Format selects the table flavour.
type Format string

const (
	// FormatTable draws box characters.
	FormatTable Format = "table"
	// FormatMarkdown emits a markdown table.
	FormatMarkdown Format = "markdown"
	// FormatPlain separates columns with spaces only.
	FormatPlain Format = "plain"
)

// maxSources caps the sources shown per row.
const maxSources = 4

// Render writes rows to w.
func Render(w io.Writer, rows []Row, format Format) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no targets)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Target", "Kind", "Attributes", "Sources", "Commands", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Target,
			r.Kind,
			strings.Join(r.Attrs, ","),
			sources(r.Sources),
			r.Commands,
			r.Status,
		})
	}

	switch format {
	case FormatMarkdown:
		t.RenderMarkdown()
		return nil
	case FormatPlain:
		style := table.StyleDefault
		style.Options = table.OptionsNoBordersAndSeparators
		style.Format.Header = text.FormatDefault
		t.SetStyle(style)
	default:
		t.SetStyle(table.StyleLight)
	}
	t.Render()
	_, err := fmt.Fprintf(w, "(%d targets)\n", len(rows))
	return err
}

func sources(list []string) string {
	if len(list) <= maxSources {
		return strings.Join(list, " ")
	}
	return strings.Join(list[:maxSources], " ") + fmt.Sprintf(" (+%d)", len(list)-maxSources)
}

// ParseFormat maps a flag value to a Format. Unknown values fall back to
// FormatTable.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(s)) {
	case FormatMarkdown, "md":
		return FormatMarkdown
	case FormatPlain:
		return FormatPlain
	default:
		return FormatTable
	}
}
