// Package sanitize rewrites workflow documents so they can be shared
// without leaking local paths or prompt text.
//
// An Engine applies one rules.Policy in a single synchronous pass:
//
//   - every node's widget list is rewritten according to the policy's
//     parameter table (strict replacement, flattening or skip), then
//   - when the policy names generator types, text feeding each generator is
//     traced upstream and cleared.
//
// Unknown node types and missing optional fields are never errors; they
// simply leave the node untouched.
package sanitize

import (
	"reflect"

	"go.uber.org/zap"

	"scrubflow/internal/rules"
	"scrubflow/internal/workflow"
)

// ChangeKind names the rule that produced a change.
type ChangeKind string

const (
	KindStrict  ChangeKind = "strict"
	KindFlatten ChangeKind = "flatten"
	KindClear   ChangeKind = "clear"
)

// Change is one widget mutation.
type Change struct {
	NodeID   workflow.NodeID
	NodeType string
	Index    int
	Kind     ChangeKind
	Old      any
	New      any
}

// Report lists every mutation of one pass, in the order they were made.
type Report struct {
	Mode    rules.Mode
	Changes []Change
}

// Changed reports whether the pass mutated anything.
func (r *Report) Changed() bool {
	return r != nil && len(r.Changes) > 0
}

func (r *Report) add(n workflow.Node, idx int, kind ChangeKind, old, updated any) {
	r.Changes = append(r.Changes, Change{
		NodeID:   nodeID(n),
		NodeType: n.Type(),
		Index:    idx,
		Kind:     kind,
		Old:      old,
		New:      updated,
	})
}

// Engine applies a policy to documents. It holds no per-document state and
// may be reused, but a single document must not be sanitized concurrently.
type Engine struct {
	policy *rules.Policy
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine for policy.
func New(policy *rules.Policy, opts ...Option) *Engine {
	e := &Engine{policy: policy, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sanitize rewrites doc in place and returns it with a report of what
// changed. The engine takes ownership of doc for the duration of the call;
// callers that need the original must pass doc.Clone().
func (e *Engine) Sanitize(doc *workflow.Document) (*workflow.Document, *Report) {
	report := &Report{Mode: e.policy.Mode}
	nodes := doc.Nodes()

	for _, n := range nodes {
		e.rewriteParams(n, report)
	}

	if len(e.policy.Generators) == 0 {
		return doc, report
	}

	t := &tracer{
		idx:    workflow.NewIndex(doc),
		table:  e.policy.Trace,
		report: report,
		logger: e.logger,
	}
	for _, n := range nodes {
		if !e.policy.IsGenerator(n.Type()) {
			continue
		}
		e.logger.Debug("Tracing upstream from generator",
			zap.Int64("node_id", int64(nodeID(n))),
			zap.String("node_type", n.Type()))
		t.traceFrom(n)
	}
	return doc, report
}

func (e *Engine) rewriteParams(n workflow.Node, report *Report) {
	action := e.policy.Params.Lookup(n.Type())
	switch action.Category {
	case rules.Skip:
		e.logger.Debug("Skipping excluded node",
			zap.Int64("node_id", int64(nodeID(n))),
			zap.String("node_type", n.Type()))
	case rules.StrictReplace:
		applyStrict(n, action.Replacements, report)
	case rules.Flatten:
		flattenWidgets(n, report)
	}
}

// applyStrict overwrites every in-range index. Out-of-range indices are
// ignored so older or newer node versions with fewer widgets still work.
func applyStrict(n workflow.Node, repl []rules.Replacement, report *Report) {
	w := n.Widgets()
	for _, r := range repl {
		if r.Index < 0 || r.Index >= len(w) {
			continue
		}
		old := w[r.Index]
		if sameValue(old, r.Value) {
			continue
		}
		n.SetWidget(r.Index, r.Value)
		report.add(n, r.Index, KindStrict, old, r.Value)
	}
}

func flattenWidgets(n workflow.Node, report *Report) {
	for i, v := range n.Widgets() {
		flat, changed := FlattenValue(v)
		if !changed {
			continue
		}
		n.SetWidget(i, flat)
		report.add(n, i, KindFlatten, v, flat)
	}
}

func sameValue(a, b any) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return reflect.DeepEqual(a, b)
}

// nodeID returns the node's id, or -1 when it has none.
func nodeID(n workflow.Node) workflow.NodeID {
	if id, ok := n.ID(); ok {
		return id
	}
	return -1
}
