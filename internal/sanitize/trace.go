package sanitize

import (
	"go.uber.org/zap"

	"scrubflow/internal/rules"
	"scrubflow/internal/workflow"
)

// tracer clears text feeding a generator by walking links backward.
type tracer struct {
	idx    *workflow.Index
	table  *rules.Table
	report *Report
	logger *zap.Logger
}

// traceFrom walks upstream from root. Each root gets its own visited set,
// so a node shared by two roots is visited once per root and a cyclic link
// graph terminates instead of recursing forever.
func (t *tracer) traceFrom(root workflow.Node) {
	t.visit(root, make(map[workflow.NodeID]struct{}))
}

func (t *tracer) visit(n workflow.Node, visited map[workflow.NodeID]struct{}) {
	if id, ok := n.ID(); ok {
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
	}

	action := t.table.Lookup(n.Type())
	switch action.Category {
	case rules.TerminalText:
		t.clear(n)
	case rules.PassThrough:
		for _, input := range action.Inputs {
			up, ok := t.idx.Upstream(n, input)
			if !ok {
				continue
			}
			t.visit(up, visited)
		}
	}
}

// clear empties widget 0 of a terminal text node.
func (t *tracer) clear(n workflow.Node) {
	w := n.Widgets()
	if len(w) == 0 {
		return
	}
	if s, ok := w[0].(string); ok && s == "" {
		return
	}
	old := w[0]
	n.SetWidget(0, "")
	t.report.add(n, 0, KindClear, old, "")
	t.logger.Debug("Cleared upstream text",
		zap.Int64("node_id", int64(nodeID(n))),
		zap.String("node_type", n.Type()))
}
