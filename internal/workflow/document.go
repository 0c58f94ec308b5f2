// Package workflow provides a lossless view over serialized node/link
// workflow documents (ComfyUI-style graphs).
//
// A Document keeps the parsed JSON as a generic tree so that every key the
// sanitizer does not understand survives a load/save round trip. Node and
// Link are thin typed views over that tree; mutations made through a Node
// are visible in the Document.
//
// Schema laxness is deliberate: missing or mistyped optional fields read as
// "absent" rather than producing errors.
package workflow

import (
	"encoding/json"
	"math"
	"strconv"
)

// NodeID identifies a node within one document.
type NodeID int64

// LinkID identifies a link within one document.
type LinkID int64

// Document is a parsed workflow. The zero value is an empty document.
type Document struct {
	root  map[string]any
	order keyOrder
}

// New wraps an already decoded JSON object. The document takes ownership of root.
func New(root map[string]any) *Document {
	if root == nil {
		root = make(map[string]any)
	}
	return &Document{root: root}
}

// Raw returns the underlying JSON object.
func (d *Document) Raw() map[string]any {
	if d.root == nil {
		d.root = make(map[string]any)
	}
	return d.root
}

// Nodes returns views over the "nodes" array in document order.
// Entries that are not JSON objects are skipped.
func (d *Document) Nodes() []Node {
	arr, _ := d.Raw()["nodes"].([]any)
	nodes := make([]Node, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			nodes = append(nodes, Node{raw: m})
		}
	}
	return nodes
}

// Links returns the decoded "links" array in document order.
// Entries that cannot be read as a link are skipped.
func (d *Document) Links() []Link {
	arr, _ := d.Raw()["links"].([]any)
	links := make([]Link, 0, len(arr))
	for _, v := range arr {
		if l, ok := parseLink(v); ok {
			links = append(links, l)
		}
	}
	return links
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{root: cloneValue(d.Raw()).(map[string]any), order: d.order}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Node is a view over one entry of the "nodes" array.
type Node struct {
	raw map[string]any
}

// NewNode wraps a JSON object as a node view.
func NewNode(raw map[string]any) Node {
	return Node{raw: raw}
}

// Raw returns the underlying JSON object.
func (n Node) Raw() map[string]any { return n.raw }

// ID returns the node id, if it is present and integral.
func (n Node) ID() (NodeID, bool) {
	id, ok := toInt64(n.raw["id"])
	return NodeID(id), ok
}

// Type returns the node type tag, or "" when absent.
func (n Node) Type() string {
	s, _ := n.raw["type"].(string)
	return s
}

// Widgets returns the positional widget values. The slice aliases the
// document; nil means the node has no widget list.
func (n Node) Widgets() []any {
	w, _ := n.raw["widgets_values"].([]any)
	return w
}

// SetWidget overwrites widget i in place. It reports false when i is out of range.
func (n Node) SetWidget(i int, v any) bool {
	w := n.Widgets()
	if i < 0 || i >= len(w) {
		return false
	}
	w[i] = v
	return true
}

// Input is one declared input slot of a node.
type Input struct {
	Name string
	Type string
	Link LinkID
	// Linked is false when the slot is unconnected (null or missing link).
	Linked bool
}

// Inputs returns the node's declared input slots in order.
func (n Node) Inputs() []Input {
	arr, _ := n.raw["inputs"].([]any)
	inputs := make([]Input, 0, len(arr))
	for _, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		in := Input{}
		in.Name, _ = m["name"].(string)
		in.Type, _ = m["type"].(string)
		if id, ok := toInt64(m["link"]); ok {
			in.Link = LinkID(id)
			in.Linked = true
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// InputLink returns the link id feeding the first input named name.
func (n Node) InputLink(name string) (LinkID, bool) {
	for _, in := range n.Inputs() {
		if in.Name == name {
			return in.Link, in.Linked
		}
	}
	return 0, false
}

// Link is a directed edge: data flows from Origin to Target.
type Link struct {
	ID         LinkID
	Origin     NodeID
	OriginSlot int
	Target     NodeID
	TargetSlot int
	Type       string
}

// parseLink accepts the positional form
// [id, origin_id, origin_slot, target_id, target_slot, type] and the object
// form keyed by id/origin_id/target_id (or origin_node_id/target_node_id).
func parseLink(v any) (Link, bool) {
	switch t := v.(type) {
	case []any:
		if len(t) < 4 {
			return Link{}, false
		}
		id, ok1 := toInt64(t[0])
		origin, ok2 := toInt64(t[1])
		target, ok3 := toInt64(t[3])
		if !ok1 || !ok2 || !ok3 {
			return Link{}, false
		}
		l := Link{ID: LinkID(id), Origin: NodeID(origin), Target: NodeID(target)}
		if slot, ok := toInt64(t[2]); ok {
			l.OriginSlot = int(slot)
		}
		if len(t) > 4 {
			if slot, ok := toInt64(t[4]); ok {
				l.TargetSlot = int(slot)
			}
		}
		if len(t) > 5 {
			l.Type, _ = t[5].(string)
		}
		return l, true
	case map[string]any:
		id, ok1 := toInt64(t["id"])
		origin, ok2 := toInt64(firstPresent(t, "origin_id", "origin_node_id"))
		target, ok3 := toInt64(firstPresent(t, "target_id", "target_node_id"))
		if !ok1 || !ok2 || !ok3 {
			return Link{}, false
		}
		l := Link{ID: LinkID(id), Origin: NodeID(origin), Target: NodeID(target)}
		if slot, ok := toInt64(t["origin_slot"]); ok {
			l.OriginSlot = int(slot)
		}
		if slot, ok := toInt64(t["target_slot"]); ok {
			l.TargetSlot = int(slot)
		}
		l.Type, _ = t["type"].(string)
		return l, true
	}
	return Link{}, false
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// toInt64 reads an integral JSON number from any of the representations
// the decoder or a caller may produce.
func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(t)
	case int:
		return int64(t), true
	case int64:
		return t, true
	case string:
		// Some exporters write numeric ids as strings.
		i, err := strconv.ParseInt(t, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
