package grammar

import (
	"context"
	"unicode/utf8"

	"treecheck/internal/engine"
)

// Expr returns the arithmetic-expression grammar: newline- or
// semicolon-separated expression statements over identifiers, numbers,
// unary minus, the binary operators + - * / ^ and parentheses.
//
// Узлы: source_file, expression_statement, binary_expression,
// unary_expression, parenthesized_expression, identifier, number, ERROR.
func Expr() engine.Language { return exprLang{} }

type exprLang struct{}

func (exprLang) Name() string { return "expr" }

func (exprLang) Alphabet() []string {
	return []string{"+", "-", "*", "/", "^", "(", ")", ";", " ", "\n", "x", "y", "z", "a", "b", "1", "2", "42"}
}

func (l exprLang) Parse(ctx context.Context, src []byte, prev *engine.Tree) (*engine.Tree, error) {
	stmts, resume := reusableTopLevel(prev, src, statementSealed)

	p := &exprParser{src: src, pos: resume}
	for {
		// кооперативная отмена: дедлайн проверяется на границе операторов
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.skipBlank()
		if p.eof() {
			break
		}
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	root := &engine.Node{
		Kind:     "source_file",
		Named:    true,
		EndByte:  uint32(len(src)),
		Children: stmts,
	}
	return engine.NewTree(root), nil
}

type exprToken struct {
	kind  exprTokenKind
	start uint32
	end   uint32
}

type exprTokenKind uint8

const (
	tokEOF exprTokenKind = iota
	tokIdent
	tokNumber
	tokOp // + - * / ^
	tokLParen
	tokRParen
	tokSemi
	tokNewline
	tokGarbage
)

type exprParser struct {
	src []byte
	pos uint32
}

func (p *exprParser) eof() bool { return int(p.pos) >= len(p.src) }

// skipBlank skips spaces, tabs, carriage returns and blank lines between
// statements.
func (p *exprParser) skipBlank() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n', ';':
			p.pos++
		default:
			return
		}
	}
}

// skipSpace skips intra-statement whitespace; newline stays significant.
func (p *exprParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) peek() exprToken {
	p.skipSpace()
	start := p.pos
	if p.eof() {
		return exprToken{kind: tokEOF, start: start, end: start}
	}
	c := p.src[p.pos]
	switch {
	case c == '\n':
		return exprToken{kind: tokNewline, start: start, end: start + 1}
	case c == ';':
		return exprToken{kind: tokSemi, start: start, end: start + 1}
	case c == '(':
		return exprToken{kind: tokLParen, start: start, end: start + 1}
	case c == ')':
		return exprToken{kind: tokRParen, start: start, end: start + 1}
	case c == '+' || c == '-' || c == '*' || c == '/' || c == '^':
		return exprToken{kind: tokOp, start: start, end: start + 1}
	case isIdentStart(c):
		end := start + 1
		for int(end) < len(p.src) && isIdentContinue(p.src[end]) {
			end++
		}
		return exprToken{kind: tokIdent, start: start, end: end}
	case c >= '0' && c <= '9':
		end := start + 1
		for int(end) < len(p.src) && isDigit(p.src[end]) {
			end++
		}
		if int(end) < len(p.src) && p.src[end] == '.' && int(end+1) < len(p.src) && isDigit(p.src[end+1]) {
			end += 2
			for int(end) < len(p.src) && isDigit(p.src[end]) {
				end++
			}
		}
		return exprToken{kind: tokNumber, start: start, end: end}
	default:
		// неизвестный байт: целиком одна руна, чтобы не резать UTF-8
		_, size := utf8.DecodeRune(p.src[p.pos:])
		if size < 1 {
			size = 1
		}
		return exprToken{kind: tokGarbage, start: start, end: start + uint32(size)}
	}
}

func (p *exprParser) advance(tok exprToken) { p.pos = tok.end }

// parseStatement parses one expression statement through its terminator.
// The terminator is attached as an anonymous child so the statement span
// covers it: incremental reuse relies on statements ending on a token
// boundary that no later edit can reach back across.
func (p *exprParser) parseStatement() *engine.Node {
	tok := p.peek()
	if tok.kind == tokEOF {
		return nil
	}

	start := tok.start
	if tok.kind == tokNewline || tok.kind == tokSemi {
		// пустой оператор — узла нет
		p.advance(tok)
		return nil
	}

	expr := p.parseExpr(0)
	children := []*engine.Node{expr}

	// хвостовой мусор до терминатора собирается в один ERROR
	if garbage := p.collectGarbage(); garbage != nil {
		children = append(children, garbage)
	}
	end := children[len(children)-1].EndByte

	// терминатор
	term := p.peek()
	if term.kind == tokNewline || term.kind == tokSemi {
		p.advance(term)
		children = append(children, &engine.Node{
			Kind:      terminatorKind(term),
			StartByte: term.start,
			EndByte:   term.end,
		})
		end = term.end
	}

	return &engine.Node{
		Kind:      "expression_statement",
		Named:     true,
		StartByte: start,
		EndByte:   end,
		Children:  children,
	}
}

// statementSealed reports whether a statement span ends with its terminator
// token. Только такой оператор можно переиспользовать: незапечатанный в
// свежем парсе продолжил бы собирать токены до следующего терминатора.
func statementSealed(n *engine.Node) bool {
	if len(n.Children) == 0 {
		return false
	}
	last := n.Children[len(n.Children)-1]
	return !last.Named && (last.Kind == ";" || last.Kind == "\n")
}

func terminatorKind(tok exprToken) string {
	if tok.kind == tokSemi {
		return ";"
	}
	return "\n"
}

// collectGarbage consumes tokens that cannot continue the statement, up to
// the next terminator, and wraps them in a single ERROR node.
func (p *exprParser) collectGarbage() *engine.Node {
	var start, end uint32
	found := false
	for {
		tok := p.peek()
		if tok.kind == tokEOF || tok.kind == tokNewline || tok.kind == tokSemi {
			break
		}
		if !found {
			start = tok.start
			found = true
		}
		end = tok.end
		p.advance(tok)
	}
	if !found {
		return nil
	}
	return &engine.Node{
		Kind:      engine.ErrorKind,
		Named:     true,
		StartByte: start,
		EndByte:   end,
	}
}

var exprPrec = map[byte]int{'+': 1, '-': 1, '*': 2, '/': 2, '^': 3}

func (p *exprParser) parseExpr(minPrec int) *engine.Node {
	left := p.parsePrimary()
	for {
		tok := p.peek()
		if tok.kind != tokOp {
			return left
		}
		op := p.src[tok.start]
		prec := exprPrec[op]
		if prec < minPrec {
			return left
		}
		p.advance(tok)

		next := prec + 1
		if op == '^' {
			// правоассоциативность возведения в степень
			next = prec
		}
		right := p.parseExpr(next)
		left = &engine.Node{
			Kind:      "binary_expression",
			Named:     true,
			StartByte: left.StartByte,
			EndByte:   right.EndByte,
			Children: []*engine.Node{
				left,
				{Kind: string(op), StartByte: tok.start, EndByte: tok.end},
				right,
			},
		}
	}
}

func (p *exprParser) parsePrimary() *engine.Node {
	tok := p.peek()
	switch tok.kind {
	case tokIdent:
		p.advance(tok)
		return &engine.Node{Kind: "identifier", Named: true, StartByte: tok.start, EndByte: tok.end}
	case tokNumber:
		p.advance(tok)
		return &engine.Node{Kind: "number", Named: true, StartByte: tok.start, EndByte: tok.end}
	case tokOp:
		if p.src[tok.start] == '-' {
			p.advance(tok)
			operand := p.parsePrimary()
			return &engine.Node{
				Kind:      "unary_expression",
				Named:     true,
				StartByte: tok.start,
				EndByte:   operand.EndByte,
				Children: []*engine.Node{
					{Kind: "-", StartByte: tok.start, EndByte: tok.end},
					operand,
				},
			}
		}
		// оператор без левого операнда: съедаем как ошибку
		p.advance(tok)
		return &engine.Node{Kind: engine.ErrorKind, Named: true, StartByte: tok.start, EndByte: tok.end}
	case tokLParen:
		p.advance(tok)
		inner := p.parseExpr(0)
		children := []*engine.Node{
			{Kind: "(", StartByte: tok.start, EndByte: tok.end},
			inner,
		}
		end := inner.EndByte
		closing := p.peek()
		if closing.kind == tokRParen {
			p.advance(closing)
			children = append(children, &engine.Node{Kind: ")", StartByte: closing.start, EndByte: closing.end})
			end = closing.end
		} else {
			// незакрытая скобка: нулевой ERROR на месте ожидаемой ')'
			children = append(children, &engine.Node{
				Kind: engine.ErrorKind, Named: true,
				StartByte: end, EndByte: end,
			})
		}
		return &engine.Node{
			Kind:      "parenthesized_expression",
			Named:     true,
			StartByte: tok.start,
			EndByte:   end,
			Children:  children,
		}
	case tokRParen, tokGarbage:
		p.advance(tok)
		return &engine.Node{Kind: engine.ErrorKind, Named: true, StartByte: tok.start, EndByte: tok.end}
	default:
		// терминатор или EOF на месте операнда: нулевой ERROR
		return &engine.Node{Kind: engine.ErrorKind, Named: true, StartByte: tok.start, EndByte: tok.start}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
