package engine

import (
	"context"
	"errors"
	"fmt"
)

// Point is a zero-based (row, column) position. Column counts bytes from the
// start of the row, not runes, matching the byte offsets everywhere else.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Edit describes one contiguous replacement of the byte range
// [StartByte, OldEndByte) with NewText. Point fields mirror the byte offsets
// and are recomputed by the buffer at application time.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
	NewText     []byte
}

// IsInsert reports whether the edit removes nothing.
func (e Edit) IsInsert() bool { return e.StartByte == e.OldEndByte }

// IsDelete reports whether the edit inserts nothing.
func (e Edit) IsDelete() bool { return e.StartByte == e.NewEndByte }

// IsNoop reports whether the edit neither removes nor inserts anything.
func (e Edit) IsNoop() bool {
	return e.StartByte == e.OldEndByte && e.StartByte == e.NewEndByte && len(e.NewText) == 0
}

// Delta returns the signed change in buffer length caused by the edit.
func (e Edit) Delta() int64 {
	return int64(e.NewEndByte) - int64(e.OldEndByte)
}

func (e Edit) String() string {
	switch {
	case e.IsNoop():
		return fmt.Sprintf("noop@%d", e.StartByte)
	case e.IsInsert():
		return fmt.Sprintf("insert@%d %q", e.StartByte, e.NewText)
	case e.IsDelete():
		return fmt.Sprintf("delete@%d-%d", e.StartByte, e.OldEndByte)
	default:
		return fmt.Sprintf("replace@%d-%d %q", e.StartByte, e.OldEndByte, e.NewText)
	}
}

// Language is the parsing-engine contract consumed by the verification core.
// Parse with prev == nil parses from scratch; with a previous tree (already
// marked via Tree.Edit) the engine may reuse unchanged structure, and the
// result must be structurally identical to a from-scratch parse of src.
type Language interface {
	Name() string
	// Alphabet returns structural tokens of the language, used to bias
	// randomly inserted text toward parseable noise.
	Alphabet() []string
	Parse(ctx context.Context, src []byte, prev *Tree) (*Tree, error)
}

// ErrTimeout reports a parse cancelled because its deadline elapsed.
// Спутать его с обычной ошибкой движка нельзя: таймаут — отдельный вид сбоя.
var ErrTimeout = errors.New("parse deadline exceeded")

// Error wraps a failure reported by the engine itself (as opposed to a
// divergence found by the comparator).
type Error struct {
	Language string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Language, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
