package grammar

import (
	"context"
	"testing"

	"treecheck/internal/engine"
)

func parseSexp(t *testing.T, lang engine.Language, src string) string {
	t.Helper()
	tree, err := lang.Parse(context.Background(), []byte(src), nil)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return engine.Sexp(tree, false)
}

func TestExprParsesBasicShapes(t *testing.T) {
	lang := Expr()
	cases := []struct {
		src  string
		want string
	}{
		{"x", "(source_file (expression_statement (identifier)))"},
		{"42", "(source_file (expression_statement (number)))"},
		{"3.14", "(source_file (expression_statement (number)))"},
		{"a + b", "(source_file (expression_statement (binary_expression (identifier) (identifier))))"},
		{
			"a + b * c",
			"(source_file (expression_statement (binary_expression (identifier) (binary_expression (identifier) (identifier)))))",
		},
		{
			"a * b + c",
			"(source_file (expression_statement (binary_expression (binary_expression (identifier) (identifier)) (identifier))))",
		},
		{
			"2 ^ 3 ^ 2",
			"(source_file (expression_statement (binary_expression (number) (binary_expression (number) (number)))))",
		},
		{"-x", "(source_file (expression_statement (unary_expression (identifier))))"},
		{
			"(a + 1) * b",
			"(source_file (expression_statement (binary_expression (parenthesized_expression (binary_expression (identifier) (number))) (identifier))))",
		},
		{
			"a\nb; c",
			"(source_file (expression_statement (identifier)) (expression_statement (identifier)) (expression_statement (identifier)))",
		},
		{"", "(source_file)"},
		{"  \n ; \n ", "(source_file)"},
	}
	for _, c := range cases {
		if got := parseSexp(t, lang, c.src); got != c.want {
			t.Fatalf("parse %q:\n  got  %s\n  want %s", c.src, got, c.want)
		}
	}
}

func TestExprErrorRecovery(t *testing.T) {
	lang := Expr()
	cases := []struct {
		src  string
		want string
	}{
		{"a +", "(source_file (expression_statement (binary_expression (identifier) (ERROR))))"},
		{"(a", "(source_file (expression_statement (parenthesized_expression (identifier) (ERROR))))"},
		{"a $ b", "(source_file (expression_statement (identifier) (ERROR)))"},
		{")", "(source_file (expression_statement (ERROR)))"},
	}
	for _, c := range cases {
		if got := parseSexp(t, lang, c.src); got != c.want {
			t.Fatalf("parse %q:\n  got  %s\n  want %s", c.src, got, c.want)
		}
	}

	tree, err := lang.Parse(context.Background(), []byte("a +"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tree.HasError() {
		t.Fatal("dangling operator parse has no error node")
	}
}

func TestExprStatementSpansIncludeTerminator(t *testing.T) {
	lang := Expr()
	tree, err := lang.Parse(context.Background(), []byte("a\nb"), nil)
	if err != nil {
		t.Fatal(err)
	}
	first := tree.Root.Children[0]
	if first.StartByte != 0 || first.EndByte != 2 {
		t.Fatalf("first statement span [%d, %d], want [0, 2] including the newline", first.StartByte, first.EndByte)
	}
	second := tree.Root.Children[1]
	if second.StartByte != 2 || second.EndByte != 3 {
		t.Fatalf("second statement span [%d, %d], want [2, 3]", second.StartByte, second.EndByte)
	}
}

func TestExprHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Expr().Parse(ctx, []byte("a + b\nc"), nil); err == nil {
		t.Fatal("cancelled context ignored")
	}
}
