// Package rules maps raw node-type strings onto a closed set of
// sanitization categories.
//
// A Table is an ordered list of (matcher, action) pairs with a fallback; the
// first matching rule wins, so lookups are total. A Policy bundles the
// tables one pipeline needs.
package rules

import (
	"fmt"
	"slices"
	"strings"
)

// Category is the sanitization treatment chosen for a node type.
type Category int

const (
	// Opaque nodes are left alone.
	Opaque Category = iota
	// Flatten reduces path-like widget values to their final segment.
	Flatten
	// Skip excludes the node from every rewrite, including flattening.
	Skip
	// StrictReplace overwrites fixed widget indices with literals.
	StrictReplace
	// TerminalText nodes hold free text in widget 0; tracing clears it and stops.
	TerminalText
	// PassThrough nodes have no text of their own; tracing follows named inputs.
	PassThrough
)

func (c Category) String() string {
	switch c {
	case Opaque:
		return "opaque"
	case Flatten:
		return "flatten"
	case Skip:
		return "skip"
	case StrictReplace:
		return "strict"
	case TerminalText:
		return "terminal"
	case PassThrough:
		return "pass-through"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// MatchKind selects how a Matcher compares node types.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchContains
)

// Matcher tests a node type string.
type Matcher struct {
	Kind    MatchKind
	Pattern string
}

// Exact matches a node type equal to s.
func Exact(s string) Matcher { return Matcher{Kind: MatchExact, Pattern: s} }

// Contains matches any node type containing s.
func Contains(s string) Matcher { return Matcher{Kind: MatchContains, Pattern: s} }

// ParseMatchKind reads "exact" or "contains"; empty means exact.
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "contains":
		return MatchContains, nil
	}
	return MatchExact, fmt.Errorf("unknown match kind %q (want exact or contains)", s)
}

// Match reports whether nodeType satisfies m.
func (m Matcher) Match(nodeType string) bool {
	if m.Kind == MatchContains {
		return strings.Contains(nodeType, m.Pattern)
	}
	return nodeType == m.Pattern
}

func (m Matcher) String() string {
	if m.Kind == MatchContains {
		return "*" + m.Pattern + "*"
	}
	return m.Pattern
}

// Replacement overwrites one widget index with a literal value.
type Replacement struct {
	Index int
	Value any
}

// Action is the resolved treatment for one node type.
type Action struct {
	Category Category
	// Replacements is set for StrictReplace, ordered by index.
	Replacements []Replacement
	// Inputs is set for PassThrough: the input names to trace, in order.
	Inputs []string
}

// Rule pairs a matcher with its action.
type Rule struct {
	Match  Matcher
	Action Action
}

// Strict builds a StrictReplace rule from an index → literal map.
func Strict(m Matcher, values map[int]any) Rule {
	repl := make([]Replacement, 0, len(values))
	for idx, v := range values {
		repl = append(repl, Replacement{Index: idx, Value: v})
	}
	slices.SortFunc(repl, func(a, b Replacement) int { return a.Index - b.Index })
	return Rule{Match: m, Action: Action{Category: StrictReplace, Replacements: repl}}
}

// Placeholder builds a StrictReplace rule for widget 0 only.
func Placeholder(m Matcher, value string) Rule {
	return Strict(m, map[int]any{0: value})
}

// Excluded builds a Skip rule.
func Excluded(m Matcher) Rule {
	return Rule{Match: m, Action: Action{Category: Skip}}
}

// Terminal builds a TerminalText rule.
func Terminal(m Matcher) Rule {
	return Rule{Match: m, Action: Action{Category: TerminalText}}
}

// Through builds a PassThrough rule following the named inputs.
func Through(m Matcher, inputs ...string) Rule {
	return Rule{Match: m, Action: Action{Category: PassThrough, Inputs: inputs}}
}

// Table is an ordered rule list with a fallback category.
type Table struct {
	rules    []Rule
	fallback Action
}

// NewTable returns a table that yields fallback for unmatched types.
func NewTable(fallback Category, rules ...Rule) *Table {
	return &Table{rules: rules, fallback: Action{Category: fallback}}
}

// Lookup returns the action of the first matching rule, or the fallback.
func (t *Table) Lookup(nodeType string) Action {
	for _, r := range t.rules {
		if r.Match.Match(nodeType) {
			return r.Action
		}
	}
	return t.fallback
}

// Prepend adds rules ahead of the existing ones so they take precedence.
func (t *Table) Prepend(rules ...Rule) {
	t.rules = append(slices.Clone(rules), t.rules...)
}
