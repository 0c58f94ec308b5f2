package config

import (
	"fmt"
	"slices"

	"scrubflow/internal/rules"
)

// StrictRule replaces fixed widget indices of one node type (paths pipeline).
type StrictRule struct {
	Type    string         `yaml:"type"`
	Match   string         `yaml:"match,omitempty"` // exact (default) or contains
	Replace map[int]string `yaml:"replace"`
}

// RulesConfig extends the built-in rule tables. User rules are matched
// before the defaults, so they can override a built-in entry.
type RulesConfig struct {
	// Strict rules for the paths pipeline.
	Strict []StrictRule `yaml:"strict,omitempty"`

	// Node types (substring match) left untouched by both pipelines.
	Skip []string `yaml:"skip,omitempty"`

	// Loader type → widget 0 placeholder for the prompts pipeline.
	Placeholders map[string]string `yaml:"placeholders,omitempty"`
}

// Validate checks every user rule.
func (c RulesConfig) Validate() error {
	for i, r := range c.Strict {
		if r.Type == "" {
			return fmt.Errorf("rules.strict[%d]: type is required", i)
		}
		if _, err := rules.ParseMatchKind(r.Match); err != nil {
			return fmt.Errorf("rules.strict[%d]: %w", i, err)
		}
		if len(r.Replace) == 0 {
			return fmt.Errorf("rules.strict[%d]: replace is empty", i)
		}
		for idx := range r.Replace {
			if idx < 0 {
				return fmt.Errorf("rules.strict[%d]: negative index %d", i, idx)
			}
		}
	}
	for i, s := range c.Skip {
		if s == "" {
			return fmt.Errorf("rules.skip[%d]: empty pattern", i)
		}
	}
	for typ := range c.Placeholders {
		if typ == "" {
			return fmt.Errorf("rules.placeholders: empty node type")
		}
	}
	return nil
}

// Policy returns the default policy for mode with the user rules applied.
func (c *Config) Policy(mode rules.Mode) (*rules.Policy, error) {
	p, err := rules.ForMode(mode)
	if err != nil {
		return nil, err
	}

	var skips []rules.Rule
	for _, s := range c.Rules.Skip {
		skips = append(skips, rules.Excluded(rules.Contains(s)))
	}
	extra := slices.Clone(skips)

	switch mode {
	case rules.ModePaths:
		for _, r := range c.Rules.Strict {
			kind, err := rules.ParseMatchKind(r.Match)
			if err != nil {
				return nil, err
			}
			values := make(map[int]any, len(r.Replace))
			for idx, v := range r.Replace {
				values[idx] = v
			}
			extra = append(extra, rules.Strict(rules.Matcher{Kind: kind, Pattern: r.Type}, values))
		}
	case rules.ModePrompts:
		types := make([]string, 0, len(c.Rules.Placeholders))
		for typ := range c.Rules.Placeholders {
			types = append(types, typ)
		}
		slices.Sort(types)
		for _, typ := range types {
			extra = append(extra, rules.Placeholder(rules.Exact(typ), c.Rules.Placeholders[typ]))
		}
	}

	p.Params.Prepend(extra...)
	// A skipped node also ends an upstream trace without being cleared.
	p.Trace.Prepend(skips...)
	return p, nil
}
