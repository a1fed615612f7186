package tree

// Forest is the result of a build: sorted roots plus lookup indexes.
type Forest struct {
	Roots       []*Node
	Diagnostics []Diagnostic

	index  map[int64]*Node
	parent map[int64]*Node
	byPath map[string]*Node
}

// Len returns the number of distinct categories in the forest.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.index)
}

// Node looks up a node by id.
func (f *Forest) Node(id int64) (*Node, bool) {
	if f == nil {
		return nil, false
	}
	n, ok := f.index[id]
	return n, ok
}

// Parent returns the node the given id is attached under. Roots, including
// repaired orphans and cycle entry points, have no parent.
func (f *Forest) Parent(id int64) (*Node, bool) {
	if f == nil {
		return nil, false
	}
	p, ok := f.parent[id]
	return p, ok
}

// FindByPath returns the first node in display order carrying the path.
func (f *Forest) FindByPath(path string) (*Node, bool) {
	if f == nil || path == "" {
		return nil, false
	}
	n, ok := f.byPath[path]
	return n, ok
}

// Ancestors returns the chain from the root down to id, inclusive.
func (f *Forest) Ancestors(id int64) []*Node {
	n, ok := f.Node(id)
	if !ok {
		return nil
	}
	chain := []*Node{n}
	for {
		p, ok := f.parent[n.ID]
		if !ok {
			break
		}
		chain = append(chain, p)
		n = p
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Depth returns the zero-based depth of id, or -1 when it is unknown.
func (f *Forest) Depth(id int64) int {
	return len(f.Ancestors(id)) - 1
}

// Descendants returns the ids below id in display order, excluding id itself.
func (f *Forest) Descendants(id int64) []int64 {
	n, ok := f.Node(id)
	if !ok {
		return nil
	}
	var out []int64
	walk(n.Children, 1, func(c *Node, _ int) bool {
		out = append(out, c.ID)
		return true
	})
	return out
}

// IsDescendant reports whether candidate sits somewhere below id.
func (f *Forest) IsDescendant(id, candidate int64) bool {
	for _, a := range f.Ancestors(candidate) {
		if a.ID == id && a.ID != candidate {
			return true
		}
	}
	return false
}

// Walk visits nodes depth-first in display order. Returning false from fn
// skips the children of the visited node.
func (f *Forest) Walk(fn func(n *Node, depth int) bool) {
	if f == nil {
		return
	}
	walk(f.Roots, 0, fn)
}

// Flatten returns every node in display order.
func (f *Forest) Flatten() []*Node {
	out := make([]*Node, 0, f.Len())
	f.Walk(func(n *Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

type frame struct {
	node  *Node
	depth int
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) {
	stack := make([]frame, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: nodes[i], depth: depth})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(top.node, top.depth) {
			continue
		}
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: top.node.Children[i], depth: top.depth + 1})
		}
	}
}
