package engine

// ErrorKind is the node kind an engine uses for error recovery nodes.
const ErrorKind = "ERROR"

// Node is one node of a syntax tree. Byte offsets are relative to the buffer
// the tree was parsed from. Children are ordered by StartByte.
type Node struct {
	Kind      string
	Named     bool
	StartByte uint32
	EndByte   uint32
	Children  []*Node

	// stale помечает узел, пересечённый правкой: его структуру нельзя
	// переиспользовать при инкрементальном парсе.
	stale bool
}

// Len returns the byte length covered by the node.
func (n *Node) Len() uint32 { return n.EndByte - n.StartByte }

// Stale reports whether an edit intersected this node since the last parse.
func (n *Node) Stale() bool { return n.stale }

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:      n.Kind,
		Named:     n.Named,
		StartByte: n.StartByte,
		EndByte:   n.EndByte,
		stale:     n.stale,
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Shift moves the node and all descendants by delta bytes.
func (n *Node) Shift(delta int64) {
	if n == nil {
		return
	}
	n.StartByte = uint32(int64(n.StartByte) + delta)
	n.EndByte = uint32(int64(n.EndByte) + delta)
	for _, c := range n.Children {
		c.Shift(delta)
	}
}

// Tree is an immutable parse result. Edit returns an adjusted copy; the
// receiver is never mutated, so trees borrowed for comparison stay valid.
type Tree struct {
	Root *Node

	dirty      bool
	dirtyStart uint32
}

// NewTree wraps a root node in a fresh tree with no pending edits.
func NewTree(root *Node) *Tree { return &Tree{Root: root} }

// DirtyStart returns the lowest byte offset touched by edits applied since
// the tree was parsed, and whether any edit was applied at all.
func (t *Tree) DirtyStart() (uint32, bool) {
	return t.dirtyStart, t.dirty
}

// Edit returns a copy of the tree with node ranges adjusted for the given
// edit and intersected nodes marked stale. The engine consults the marks to
// decide what it may reuse on the next incremental parse.
func (t *Tree) Edit(e Edit) *Tree {
	out := &Tree{
		Root:       t.Root.Clone(),
		dirty:      true,
		dirtyStart: e.StartByte,
	}
	if t.dirty && t.dirtyStart < e.StartByte {
		out.dirtyStart = t.dirtyStart
	}
	adjustNode(out.Root, e)
	return out
}

func adjustNode(n *Node, e Edit) {
	if n == nil {
		return
	}
	delta := e.Delta()
	if n.EndByte <= e.StartByte {
		// целиком до правки (диапазоны полуоткрытые) — не трогаем
		return
	}
	if n.StartByte >= e.OldEndByte && n.StartByte > e.StartByte {
		// целиком после правки — сдвигаем вместе с потомками
		n.Shift(delta)
		return
	}
	// узел пересечён правкой или касается её границы; помечаем stale
	// консервативно — переиспользование такого узла запрещено
	n.stale = true
	if n.EndByte >= e.OldEndByte {
		n.EndByte = uint32(int64(n.EndByte) + delta)
	} else {
		n.EndByte = e.NewEndByte
	}
	if n.StartByte >= e.OldEndByte {
		n.StartByte = uint32(int64(n.StartByte) + delta)
	} else if n.StartByte > e.StartByte {
		n.StartByte = min(n.StartByte, e.NewEndByte)
	}
	if n.EndByte < n.StartByte {
		n.EndByte = n.StartByte
	}
	for _, c := range n.Children {
		adjustNode(c, e)
	}
}

// HasError reports whether the tree contains at least one error node.
// Обход итеративный: явный стек вместо рекурсии в чужие структуры.
func (t *Tree) HasError() bool {
	if t == nil || t.Root == nil {
		return false
	}
	stack := []*Node{t.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Kind == ErrorKind {
			return true
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return false
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	if t == nil || t.Root == nil {
		return 0
	}
	count := 0
	stack := []*Node{t.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		for _, c := range n.Children {
			stack = append(stack, c)
		}
	}
	return count
}
