package grammar

import (
	"context"
	"unicode/utf8"

	"treecheck/internal/engine"
)

// List returns the nested-list grammar: whitespace-separated atoms and
// parenthesized lists, arbitrarily nested. Gives the comparator and the
// fuzzer deep trees from tiny inputs.
//
// Узлы: document, list, atom, ERROR.
func List() engine.Language { return listLang{} }

type listLang struct{}

func (listLang) Name() string { return "list" }

func (listLang) Alphabet() []string {
	return []string{"(", ")", " ", "\n", "a", "b", "c", "ab", "x1"}
}

func (l listLang) Parse(ctx context.Context, src []byte, prev *engine.Tree) (*engine.Tree, error) {
	// атом, список и ERROR заканчиваются на собственном байте-ограничителе,
	// отдельного предиката запечатанности не нужно
	values, resume := reusableTopLevel(prev, src, nil)

	p := &listParser{src: src, pos: resume}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() {
			break
		}
		values = append(values, p.parseValue())
	}

	root := &engine.Node{
		Kind:     "document",
		Named:    true,
		EndByte:  uint32(len(src)),
		Children: values,
	}
	return engine.NewTree(root), nil
}

type listParser struct {
	src []byte
	pos uint32
}

func (p *listParser) eof() bool { return int(p.pos) >= len(p.src) }

func (p *listParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *listParser) parseValue() *engine.Node {
	c := p.src[p.pos]
	switch c {
	case '(':
		return p.parseList()
	case ')':
		// лишняя закрывающая скобка на верхнем уровне
		start := p.pos
		p.pos++
		return &engine.Node{Kind: engine.ErrorKind, Named: true, StartByte: start, EndByte: p.pos}
	default:
		return p.parseAtom()
	}
}

func (p *listParser) parseList() *engine.Node {
	open := p.pos
	p.pos++
	children := []*engine.Node{
		{Kind: "(", StartByte: open, EndByte: open + 1},
	}

	for {
		p.skipSpace()
		if p.eof() {
			// незакрытый список: нулевой ERROR на месте ожидаемой ')'
			children = append(children, &engine.Node{
				Kind: engine.ErrorKind, Named: true,
				StartByte: p.pos, EndByte: p.pos,
			})
			return &engine.Node{
				Kind: "list", Named: true,
				StartByte: open, EndByte: p.pos,
				Children: children,
			}
		}
		if p.src[p.pos] == ')' {
			children = append(children, &engine.Node{Kind: ")", StartByte: p.pos, EndByte: p.pos + 1})
			p.pos++
			return &engine.Node{
				Kind: "list", Named: true,
				StartByte: open, EndByte: p.pos,
				Children: children,
			}
		}
		children = append(children, p.parseValue())
	}
}

func (p *listParser) parseAtom() *engine.Node {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '(' || c == ')' || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		_, size := utf8.DecodeRune(p.src[p.pos:])
		if size < 1 {
			size = 1
		}
		p.pos += uint32(size)
	}
	return &engine.Node{Kind: "atom", Named: true, StartByte: start, EndByte: p.pos}
}
