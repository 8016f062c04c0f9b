package engine

import (
	"fmt"
	"strings"
)

// Sexp renders the tree in the compact parenthesized node-kind notation used
// by corpus fixtures: named nodes only, children in order. With
// includeRanges the byte range follows each kind: (kind [start, end] ...).
// An empty tree renders as the empty string.
func Sexp(t *Tree, includeRanges bool) string {
	if t == nil || t.Root == nil {
		return ""
	}
	var b strings.Builder
	writeSexp(&b, t.Root, includeRanges)
	return b.String()
}

func writeSexp(b *strings.Builder, n *Node, includeRanges bool) {
	b.WriteByte('(')
	b.WriteString(n.Kind)
	if includeRanges {
		fmt.Fprintf(b, " [%d, %d]", n.StartByte, n.EndByte)
	}
	for _, c := range NamedChildren(n) {
		b.WriteByte(' ')
		writeSexp(b, c, includeRanges)
	}
	b.WriteByte(')')
}

// NamedChildren returns the named children of a node, with anonymous nodes
// (punctuation, operators) flattened away in order.
func NamedChildren(n *Node) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		} else {
			out = append(out, NamedChildren(c)...)
		}
	}
	return out
}
