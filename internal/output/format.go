// Package output renders dashboard state for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"taskdash/internal/dashboard"
	"taskdash/internal/service"
)

// Format selects how a task page is written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (want text, json or yaml)", s)
	}
}

const (
	// EmptyTitle and EmptyHint make up the empty state.
	EmptyTitle = "No tasks"
	EmptyHint  = "Get started by creating a new task."

	// descIndent lines descriptions up under the title.
	descIndent = "          "
)

// FormatTask writes one task row.
// Format: "{N:>4}  [x] {TITLE}\n", then the description indented on the next line.
func FormatTask(w io.Writer, num int, task service.Task) {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, box, normalizeTitle(task.Title))
	if desc := normalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", descIndent, desc)
	}
}

// FormatEmpty writes the empty state.
func FormatEmpty(w io.Writer) {
	fmt.Fprintln(w, EmptyTitle)
	fmt.Fprintln(w, EmptyHint)
}

// FormatLoadError writes the page-level read error.
func FormatLoadError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error loading dashboard: %v\n", err)
}

// FormatNotification writes an outcome notification line.
func FormatNotification(w io.Writer, n dashboard.Notification) {
	fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Message)
}

// FormatView writes the task page of a dashboard view as text: the rows,
// the empty state or the read error, then the page footer.
func FormatView(w io.Writer, v dashboard.View) {
	if v.Query != "" {
		fmt.Fprintf(w, "Search: %s\n", v.Query)
	}

	switch {
	case v.Err != nil && !v.HasData:
		FormatLoadError(w, v.Err)
		return
	case !v.HasData:
		fmt.Fprintln(w, "Loading...")
		return
	case v.Empty():
		FormatEmpty(w)
	default:
		for i, task := range v.Tasks {
			FormatTask(w, i+1, task)
		}
	}
	if v.Err != nil {
		FormatLoadError(w, v.Err)
	}
	if v.TotalPages > 0 {
		fmt.Fprintln(w, v.PageLabel())
	}
}

// pageDoc is the structured form of a task page.
type pageDoc struct {
	Page       int            `json:"page" yaml:"page"`
	TotalPages int            `json:"totalPages" yaml:"totalPages"`
	Search     string         `json:"search,omitempty" yaml:"search,omitempty"`
	Tasks      []service.Task `json:"tasks" yaml:"tasks"`
}

// WriteView writes the task page of v in format f.
func WriteView(w io.Writer, f Format, v dashboard.View) error {
	doc := pageDoc{Page: v.Page, TotalPages: v.TotalPages, Search: v.Query, Tasks: v.Tasks}
	if doc.Tasks == nil {
		doc.Tasks = []service.Task{}
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		FormatView(w, v)
		return nil
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
