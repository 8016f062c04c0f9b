// Package textbuf owns the mutable document text a verification trial edits
// in place. It keeps a line index for byte-offset to point resolution and,
// in UTF-8 mode, guarantees that no edit ever splits a multi-byte rune.
//
// Назначение: SourceBuffer из модели данных — байты + индекс строк +
// границы кодировки. Пакет листовой, от движка не зависит ничем, кроме
// типов Edit/Point.
package textbuf

import (
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"

	"treecheck/internal/engine"
)

// Encoding selects the boundary policy for edits.
type Encoding uint8

const (
	// EncodingRaw applies edits at arbitrary byte offsets.
	EncodingRaw Encoding = iota
	// EncodingUTF8 clamps edit boundaries to rune starts so the buffer
	// stays valid UTF-8 after every mutation.
	EncodingUTF8
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	default:
		return "raw"
	}
}

// EncodingFromString parses an encoding name. The empty string defaults to
// UTF-8, the encoding-aware mode.
func EncodingFromString(s string) (Encoding, error) {
	switch s {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "raw", "bytes":
		return EncodingRaw, nil
	default:
		return EncodingRaw, fmt.Errorf("unknown encoding %q (expected utf-8|raw)", s)
	}
}

// Buffer is an owned byte sequence mutable in place by edits. It is not
// safe for concurrent use; each trial owns exactly one buffer.
type Buffer struct {
	content []byte
	lineIdx []uint32 // байтовые позиции '\n'
	enc     Encoding
}

// New copies content into a fresh buffer.
func New(content []byte, enc Encoding) *Buffer {
	owned := append([]byte(nil), content...)
	return &Buffer{
		content: owned,
		lineIdx: buildLineIndex(owned),
		enc:     enc,
	}
}

// Len returns the current buffer length.
func (b *Buffer) Len() uint32 {
	n, err := safecast.Conv[uint32](len(b.content))
	if err != nil {
		panic(fmt.Errorf("buffer length overflow: %w", err))
	}
	return n
}

// Bytes returns the current content. The slice aliases the buffer's own
// storage; callers must not hold it across Apply.
func (b *Buffer) Bytes() []byte { return b.content }

// Encoding returns the buffer's boundary policy.
func (b *Buffer) Encoding() Encoding { return b.enc }

// PointAt resolves a byte offset into a zero-based (row, column) point.
// Offsets past the end resolve as the end of the last line.
func (b *Buffer) PointAt(offset uint32) engine.Point {
	if offset > b.Len() {
		offset = b.Len()
	}
	// бинпоиск: число '\n' строго до offset
	lo, hi := 0, len(b.lineIdx)
	for lo < hi {
		mid := (lo + hi) >> 1
		if b.lineIdx[mid] < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	row := lo
	var lineStart uint32
	if row > 0 {
		lineStart = b.lineIdx[row-1] + 1
	}
	rowU, err := safecast.Conv[uint32](row)
	if err != nil {
		panic(fmt.Errorf("row overflow: %w", err))
	}
	return engine.Point{Row: rowU, Column: offset - lineStart}
}

// ClampOffset clamps offset into [0, len] and, in UTF-8 mode, backs it up
// to the nearest rune start.
func (b *Buffer) ClampOffset(offset uint32) uint32 {
	if offset > b.Len() {
		offset = b.Len()
	}
	if b.enc != EncodingUTF8 {
		return offset
	}
	for offset > 0 && offset < b.Len() && isContinuationByte(b.content[offset]) {
		offset--
	}
	return offset
}

// Splice replaces [start, oldEnd) with newText, recomputing all point
// coordinates, and returns the fully populated edit that was applied.
// Offsets are clamped to the buffer bounds (and rune boundaries in UTF-8
// mode) before application.
func (b *Buffer) Splice(start, oldEnd uint32, newText []byte) engine.Edit {
	start = b.ClampOffset(start)
	oldEnd = b.ClampOffset(oldEnd)
	if oldEnd < start {
		start, oldEnd = oldEnd, start
	}
	newEndI64 := int64(start) + int64(len(newText))
	newEnd, err := safecast.Conv[uint32](newEndI64)
	if err != nil {
		panic(fmt.Errorf("new end overflow: %w", err))
	}

	e := engine.Edit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  newEnd,
		StartPoint:  b.PointAt(start),
		OldEndPoint: b.PointAt(oldEnd),
		NewText:     append([]byte(nil), newText...),
	}

	b.splice(start, oldEnd, e.NewText)
	e.NewEndPoint = b.PointAt(newEnd)
	return e
}

// Apply applies a pre-built edit, validating it against the current buffer
// first. The edit's point fields are recomputed so they always agree with
// the byte offsets at application time.
func (b *Buffer) Apply(e *engine.Edit) error {
	n := b.Len()
	if e.StartByte > e.OldEndByte {
		return fmt.Errorf("edit start %d after old end %d", e.StartByte, e.OldEndByte)
	}
	if e.OldEndByte > n {
		return fmt.Errorf("edit old end %d beyond buffer length %d", e.OldEndByte, n)
	}
	wantNewEnd := int64(e.StartByte) + int64(len(e.NewText))
	if int64(e.NewEndByte) != wantNewEnd {
		return fmt.Errorf("edit new end %d inconsistent with inserted text length %d", e.NewEndByte, len(e.NewText))
	}
	if b.enc == EncodingUTF8 {
		if b.ClampOffset(e.StartByte) != e.StartByte || b.ClampOffset(e.OldEndByte) != e.OldEndByte {
			return fmt.Errorf("edit %s splits a multi-byte sequence", e)
		}
		if !utf8.Valid(e.NewText) {
			return fmt.Errorf("edit %s inserts invalid utf-8", e)
		}
	}

	e.StartPoint = b.PointAt(e.StartByte)
	e.OldEndPoint = b.PointAt(e.OldEndByte)
	b.splice(e.StartByte, e.OldEndByte, e.NewText)
	e.NewEndPoint = b.PointAt(e.NewEndByte)
	return nil
}

func (b *Buffer) splice(start, oldEnd uint32, newText []byte) {
	out := make([]byte, 0, len(b.content)+len(newText)-int(oldEnd-start))
	out = append(out, b.content[:start]...)
	out = append(out, newText...)
	out = append(out, b.content[oldEnd:]...)
	b.content = out
	b.lineIdx = buildLineIndex(out)
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, 16)
	for i, c := range content {
		if c == '\n' {
			out = append(out, uint32(i))
		}
	}
	return out
}

func isContinuationByte(c byte) bool {
	return c&0xC0 == 0x80
}
