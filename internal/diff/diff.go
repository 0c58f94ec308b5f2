// Package diff computes line-level unified diffs using the sergi/go-diff
// library. It backs the --diff preview of sanitized documents.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line is one line of a diff. OldNum and NewNum are 1-based and zero where
// the line does not exist on that side.
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Lines diffs old and new line by line.
func Lines(oldText, newText string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffMainRunes(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out []Line
	oldNum, newNum := 1, 1
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, Line{Type: LineContext, Content: text, OldNum: oldNum, NewNum: newNum})
				oldNum++
				newNum++
			case diffmatchpatch.DiffDelete:
				out = append(out, Line{Type: LineRemoved, Content: text, OldNum: oldNum})
				oldNum++
			case diffmatchpatch.DiffInsert:
				out = append(out, Line{Type: LineAdded, Content: text, NewNum: newNum})
				newNum++
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}

// Hunks groups changed lines with up to context unchanged lines on either
// side. Changes separated by at most 2*context unchanged lines share a hunk.
func Hunks(lines []Line, context int) []Hunk {
	if context < 0 {
		context = 0
	}

	var hunks []Hunk
	i, n := 0, len(lines)
	for i < n {
		for i < n && lines[i].Type == LineContext {
			i++
		}
		if i == n {
			break
		}

		start := max(i-context, 0)
		last := i
		for j := i; j < n; j++ {
			if lines[j].Type != LineContext {
				last = j
			} else if j-last > 2*context {
				break
			}
		}
		end := min(last+context+1, n)

		hunks = append(hunks, newHunk(lines, start, end))
		i = end
	}
	return hunks
}

func newHunk(all []Line, start, end int) Hunk {
	h := Hunk{Lines: all[start:end]}
	for _, l := range h.Lines {
		if l.Type != LineAdded {
			if h.OldCount == 0 {
				h.OldStart = l.OldNum
			}
			h.OldCount++
		}
		if l.Type != LineRemoved {
			if h.NewCount == 0 {
				h.NewStart = l.NewNum
			}
			h.NewCount++
		}
	}
	// An empty side points at the last line before the hunk.
	if h.OldCount == 0 {
		h.OldStart = lastBefore(all[:start], func(l Line) int { return l.OldNum })
	}
	if h.NewCount == 0 {
		h.NewStart = lastBefore(all[:start], func(l Line) int { return l.NewNum })
	}
	return h
}

func lastBefore(lines []Line, num func(Line) int) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if n := num(lines[i]); n > 0 {
			return n
		}
	}
	return 0
}

// Header renders the hunk's "@@ -a,b +c,d @@" line.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// Unified renders a unified diff of oldText and newText. It returns the
// empty string when they are equal.
func Unified(oldName, newName, oldText, newText string) string {
	hunks := Hunks(Lines(oldText, newText), DefaultContext)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldName, newName)
	for _, h := range hunks {
		b.WriteString(h.Header())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(prefix(l.Type))
			b.WriteString(l.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func prefix(t LineType) string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	}
	return " "
}
