package tree

// TestNode is one entity in the test tree: a folder, a file, a nested
// context, or a leaf test. Identity is stable: a node created speculatively
// from a status line is enriched in place when authoritative results arrive,
// never replaced.
type TestNode struct {
	// ID is the canonical normalized identifier, unique within the tree.
	ID string

	// Label is the human-readable display string. Provisionally the last
	// path segment; replaced by the framework's description metadata once
	// a result batch resolves the node.
	Label string

	// File and Line locate the node in source. Line is zero-based; -1
	// until resolved.
	File string
	Line int

	// CanResolveChildren is false only for complete leaf-test addresses.
	CanResolveChildren bool

	parent   *TestNode
	children []*TestNode
	index    map[string]*TestNode
}

func newNode(id, label string, canResolveChildren bool) *TestNode {
	return &TestNode{
		ID:                 id,
		Label:              label,
		Line:               -1,
		CanResolveChildren: canResolveChildren,
		index:              make(map[string]*TestNode),
	}
}

// Parent returns the node's parent container, nil for the root.
func (n *TestNode) Parent() *TestNode {
	return n.parent
}

// Children returns the direct children in insertion order. The returned
// slice is shared; callers must not mutate it.
func (n *TestNode) Children() []*TestNode {
	return n.children
}

// Child looks up a direct child by id. Absence is not an error.
func (n *TestNode) Child(id string) (*TestNode, bool) {
	child, ok := n.index[id]
	return child, ok
}

// HasLocation reports whether the node's source location has been resolved.
func (n *TestNode) HasLocation() bool {
	return n.Line >= 0
}

// SetLocation records the node's resolved source position.
func (n *TestNode) SetLocation(file string, line int) {
	n.File = file
	n.Line = line
}

func (n *TestNode) addChild(child *TestNode) {
	child.parent = n
	n.children = append(n.children, child)
	n.index[child.ID] = child
}

func (n *TestNode) removeChild(id string) bool {
	child, ok := n.index[id]
	if !ok {
		return false
	}

	delete(n.index, id)
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	child.parent = nil
	return true
}

// ReplaceChildren swaps the node's entire child set for the given nodes,
// preserving the identity of any node that appears in both the old and new
// sets. Nodes already parented elsewhere are re-parented here.
func (n *TestNode) ReplaceChildren(children []*TestNode) {
	for _, old := range n.children {
		old.parent = nil
	}

	n.children = make([]*TestNode, 0, len(children))
	n.index = make(map[string]*TestNode, len(children))
	for _, child := range children {
		n.addChild(child)
	}
}
