// Package report renders human-readable progress and change lines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"scrubflow/internal/sanitize"
)

// Palette shared with the rest of the CLI output.
var (
	Success     = lipgloss.Color("#8BC34A")
	Destructive = lipgloss.Color("#e53935")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

type styles struct {
	tag     lipgloss.Style
	node    lipgloss.Style
	removed lipgloss.Style
	added   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
}

// Printer writes report lines to one writer. It is safe for concurrent
// use; each call writes whole lines.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
	st styles
}

// NewPrinter returns a printer for w. Colors are only emitted when w is a
// terminal that supports them, and never when plain is set.
func NewPrinter(w io.Writer, plain bool) *Printer {
	r := lipgloss.NewRenderer(w)
	st := styles{
		tag:     r.NewStyle(),
		node:    r.NewStyle(),
		removed: r.NewStyle(),
		added:   r.NewStyle(),
		ok:      r.NewStyle(),
		warn:    r.NewStyle(),
	}
	if !plain {
		st.tag = st.tag.Foreground(Info).Bold(true)
		st.node = st.node.Faint(true)
		st.removed = st.removed.Foreground(Destructive)
		st.added = st.added.Foreground(Success)
		st.ok = st.ok.Foreground(Success)
		st.warn = st.warn.Foreground(Warning)
	}
	return &Printer{w: w, st: st}
}

// Processing announces that path is being read.
func (p *Printer) Processing(path string) {
	p.println(fmt.Sprintf("Processing: %s", path))
}

// Saved announces a successful write.
func (p *Printer) Saved(path string) {
	p.println(p.st.ok.Render("Success:") + " Saved to " + path)
}

// WouldChange announces a document that --check found unsanitized.
func (p *Printer) WouldChange(path string, n int) {
	p.println(p.st.warn.Render("Would change:") + fmt.Sprintf(" %s (%d %s)", path, n, plural(n, "change", "changes")))
}

// Clean announces a document that --check found already sanitized.
func (p *Printer) Clean(path string) {
	p.println(p.st.ok.Render("Clean:") + " " + path)
}

// Changes writes one line per mutation in r. Nothing is written for an
// empty report.
func (p *Printer) Changes(source string, r *sanitize.Report) {
	if !r.Changed() {
		return
	}
	lines := make([]string, 0, len(r.Changes)+1)
	lines = append(lines, fmt.Sprintf("--- %s: %s ---", r.Mode, source))
	for _, c := range r.Changes {
		lines = append(lines, p.changeLine(c))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		fmt.Fprintln(p.w, l)
	}
}

// Diff writes a unified diff, coloring added and removed lines.
func (p *Printer) Diff(unified string) {
	if unified == "" {
		return
	}
	lines := strings.Split(strings.TrimSuffix(unified, "\n"), "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = p.st.node.Render(l)
		case strings.HasPrefix(l, "@@"):
			lines[i] = p.st.tag.Render(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = p.st.added.Render(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = p.st.removed.Render(l)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		fmt.Fprintln(p.w, l)
	}
}

func (p *Printer) changeLine(c sanitize.Change) string {
	id := "?"
	if c.NodeID >= 0 {
		id = strconv.FormatInt(int64(c.NodeID), 10)
	}
	return fmt.Sprintf("  %s %s widget %d: %s -> %s",
		p.st.tag.Render("["+string(c.Kind)+"]"),
		p.st.node.Render(fmt.Sprintf("node %s (%s)", id, c.NodeType)),
		c.Index,
		p.st.removed.Render(FormatValue(c.Old)),
		p.st.added.Render(FormatValue(c.New)),
	)
}

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// FormatValue renders a widget value the way it appears in JSON.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
