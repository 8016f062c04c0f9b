package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"treecheck/internal/engine"
)

// CheckTreeInvariants runs a minimal set of structural invariants on a
// parse result:
// 1) the root span lies within the buffer bounds
// 2) every child span is contained in its parent span
// 3) sibling spans are ordered and non-overlapping
// 4) only ERROR nodes may be empty
//
// A violation means the engine produced a malformed tree; the verifier
// reports it as an engine failure, not as a mismatch.
func CheckTreeInvariants(t *engine.Tree, contentLen int) error {
	if t == nil || t.Root == nil {
		return nil
	}
	lenContent, err := safecast.Conv[uint32](contentLen)
	if err != nil {
		return fmt.Errorf("content length overflow: %w", err)
	}
	if t.Root.EndByte > lenContent {
		return fmt.Errorf("root span end beyond content: %d > %d", t.Root.EndByte, lenContent)
	}
	// пустой вход: пустой корень без детей допустим
	if t.Root.StartByte == t.Root.EndByte && len(t.Root.Children) == 0 {
		return nil
	}
	return checkNode(t.Root)
}

func checkNode(n *engine.Node) error {
	if n.Kind == "" {
		return fmt.Errorf("node with empty kind at [%d, %d]", n.StartByte, n.EndByte)
	}
	if n.EndByte < n.StartByte {
		return fmt.Errorf("inverted span [%d, %d] on %s", n.StartByte, n.EndByte, n.Kind)
	}
	if n.StartByte == n.EndByte && n.Kind != engine.ErrorKind && len(n.Children) == 0 {
		return fmt.Errorf("empty span on non-error leaf %s at %d", n.Kind, n.StartByte)
	}

	var prevEnd uint32
	for i, c := range n.Children {
		if c.StartByte < n.StartByte || c.EndByte > n.EndByte {
			return fmt.Errorf("child %s [%d, %d] outside parent %s [%d, %d]",
				c.Kind, c.StartByte, c.EndByte, n.Kind, n.StartByte, n.EndByte)
		}
		if i > 0 && c.StartByte < prevEnd {
			return fmt.Errorf("sibling %s at %d overlaps previous ending at %d", c.Kind, c.StartByte, prevEnd)
		}
		prevEnd = c.EndByte
		if err := checkNode(c); err != nil {
			return err
		}
	}
	return nil
}
