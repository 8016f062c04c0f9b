// Package sexp parses and compares the compact parenthesized node-kind
// notation used for expected syntax trees: (kind child ...), optionally
// with byte ranges (kind [start, end] child ...).
//
// Назначение: разбор нотации и структурное сравнение двух деревьев в
// lock-step обходе. Пакет ничего не знает о движке — сравниваются уже
// отрисованные представления.
package sexp

import (
	"fmt"
	"strings"
)

// Node is one parsed node of the notation.
type Node struct {
	Kind     string
	HasRange bool
	Start    uint32
	End      uint32
	Children []*Node
}

// ParseError reports a malformed representation with a byte offset into it.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sexp: offset %d: %s", e.Offset, e.Reason)
}

type scanner struct {
	src []byte
	pos int
}

// Parse parses a representation into a tree. Empty (or all-whitespace)
// input yields a nil node: the empty tree.
func Parse(repr string) (*Node, error) {
	s := &scanner{src: []byte(repr)}
	s.skipSpace()
	if s.eof() {
		return nil, nil
	}
	node, err := s.parseNode()
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if !s.eof() {
		return nil, &ParseError{Offset: s.pos, Reason: "trailing content after tree"}
	}
	return node, nil
}

func (s *scanner) parseNode() (*Node, error) {
	if !s.consume('(') {
		return nil, &ParseError{Offset: s.pos, Reason: "expected '('"}
	}
	s.skipSpace()
	kind := s.scanKind()
	if kind == "" {
		return nil, &ParseError{Offset: s.pos, Reason: "expected node kind"}
	}
	node := &Node{Kind: kind}

	s.skipSpace()
	if s.peek() == '[' {
		start, end, err := s.scanRange()
		if err != nil {
			return nil, err
		}
		node.HasRange = true
		node.Start, node.End = start, end
		s.skipSpace()
	}

	for s.peek() == '(' {
		child, err := s.parseNode()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
		s.skipSpace()
	}
	if !s.consume(')') {
		return nil, &ParseError{Offset: s.pos, Reason: "expected ')'"}
	}
	return node, nil
}

func (s *scanner) scanKind() string {
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		if c == '(' || c == ')' || c == '[' || isSpace(c) {
			break
		}
		s.pos++
	}
	return string(s.src[start:s.pos])
}

func (s *scanner) scanRange() (uint32, uint32, error) {
	if !s.consume('[') {
		return 0, 0, &ParseError{Offset: s.pos, Reason: "expected '['"}
	}
	s.skipSpace()
	start, ok := s.scanUint()
	if !ok {
		return 0, 0, &ParseError{Offset: s.pos, Reason: "expected range start"}
	}
	s.skipSpace()
	if !s.consume(',') {
		return 0, 0, &ParseError{Offset: s.pos, Reason: "expected ',' in range"}
	}
	s.skipSpace()
	end, ok := s.scanUint()
	if !ok {
		return 0, 0, &ParseError{Offset: s.pos, Reason: "expected range end"}
	}
	s.skipSpace()
	if !s.consume(']') {
		return 0, 0, &ParseError{Offset: s.pos, Reason: "expected ']'"}
	}
	if end < start {
		return 0, 0, &ParseError{Offset: s.pos, Reason: "range end before start"}
	}
	return start, end, nil
}

func (s *scanner) scanUint() (uint32, bool) {
	start := s.pos
	var v uint64
	for !s.eof() && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
		v = v*10 + uint64(s.src[s.pos]-'0')
		if v > 0xFFFFFFFF {
			return 0, false
		}
		s.pos++
	}
	if s.pos == start {
		return 0, false
	}
	return uint32(v), true
}

func (s *scanner) skipSpace() {
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) consume(c byte) bool {
	if s.eof() || s.src[s.pos] != c {
		return false
	}
	s.pos++
	return true
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Render writes a node back into canonical single-line notation. Ranges are
// included only where the node carries them.
func Render(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	b.WriteByte('(')
	b.WriteString(n.Kind)
	if n.HasRange {
		fmt.Fprintf(b, " [%d, %d]", n.Start, n.End)
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		writeNode(b, c)
	}
	b.WriteByte(')')
}
