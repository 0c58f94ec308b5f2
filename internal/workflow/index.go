package workflow

// Index resolves node and link ids for traversal. It is a snapshot of the
// document's structure; widget mutations made through its nodes are still
// visible in the document because the views alias it.
type Index struct {
	nodes map[NodeID]Node
	links map[LinkID]Link
}

// NewIndex builds an index over doc. When ids repeat, the last entry wins.
func NewIndex(doc *Document) *Index {
	idx := &Index{
		nodes: make(map[NodeID]Node),
		links: make(map[LinkID]Link),
	}
	for _, n := range doc.Nodes() {
		if id, ok := n.ID(); ok {
			idx.nodes[id] = n
		}
	}
	for _, l := range doc.Links() {
		idx.links[l.ID] = l
	}
	return idx
}

// Node returns the node with the given id.
func (idx *Index) Node(id NodeID) (Node, bool) {
	n, ok := idx.nodes[id]
	return n, ok
}

// Upstream returns the node feeding n's input named input. An unconnected
// input, an unknown link or a dangling origin all yield false.
func (idx *Index) Upstream(n Node, input string) (Node, bool) {
	linkID, ok := n.InputLink(input)
	if !ok {
		return Node{}, false
	}
	l, ok := idx.links[linkID]
	if !ok {
		return Node{}, false
	}
	return idx.Node(l.Origin)
}
