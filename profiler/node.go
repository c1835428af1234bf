package profiler

// Node aggregates every measurement of one scope name at one call-tree path.
type Node struct {
	name     string
	children []*Node
	index    map[string]int
	stats    Stats
	active   uint32
}

func newNode(name string) *Node {
	return &Node{name: name}
}

// Name returns the scope name. The sentinel root has an empty name.
func (n *Node) Name() string { return n.name }

// Stats returns a copy of the node's accumulated statistics.
func (n *Node) Stats() Stats { return n.stats }

// ActiveDepth reports how many invocations of this node are currently open.
func (n *Node) ActiveDepth() uint32 { return n.active }

// Children returns the child nodes in first-entered order. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Child looks up a direct child by name.
func (n *Node) Child(name string) (*Node, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// child returns the child named name, appending a new one if it does not exist yet.
func (n *Node) child(name string) *Node {
	if i, ok := n.index[name]; ok {
		return n.children[i]
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	c := newNode(name)
	n.index[name] = len(n.children)
	n.children = append(n.children, c)
	return c
}
