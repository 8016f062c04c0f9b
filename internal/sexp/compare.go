package sexp

import (
	"fmt"
	"strings"
)

// Diff is the first structural divergence between two trees: the path of
// common ancestors down to it, and the differing subtree on each side.
type Diff struct {
	Path     []string // виды общих предков, от корня
	Reason   string
	Expected string // отрисованное поддерево (пустое — узла нет)
	Actual   string
}

func (d *Diff) String() string {
	path := "(root)"
	if len(d.Path) > 0 {
		path = strings.Join(d.Path, " > ")
	}
	return fmt.Sprintf("at %s: %s\n  expected: %s\n  actual:   %s", path, d.Reason, orMissing(d.Expected), orMissing(d.Actual))
}

func orMissing(repr string) string {
	if repr == "" {
		return "<no node>"
	}
	return repr
}

type framePair struct {
	expected *Node
	actual   *Node
	path     []string
}

// Compare walks both trees in lock-step with an explicit stack and returns
// the first divergence in depth-first pre-order, or nil when the trees are
// structurally identical. Byte ranges participate only when both sides
// carry them. Two empty trees are equal. Comparison is symmetric and fully
// deterministic for identical inputs.
func Compare(expected, actual *Node) *Diff {
	if expected == nil && actual == nil {
		return nil
	}
	if expected == nil || actual == nil {
		return &Diff{
			Reason:   "one tree is empty",
			Expected: Render(expected),
			Actual:   Render(actual),
		}
	}

	stack := []framePair{{expected: expected, actual: actual}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		exp, act := f.expected, f.actual

		if exp.Kind != act.Kind {
			return &Diff{
				Path:     f.path,
				Reason:   fmt.Sprintf("node kind %q vs %q", exp.Kind, act.Kind),
				Expected: Render(exp),
				Actual:   Render(act),
			}
		}
		if exp.HasRange && act.HasRange && (exp.Start != act.Start || exp.End != act.End) {
			return &Diff{
				Path:     f.path,
				Reason:   fmt.Sprintf("byte range [%d, %d] vs [%d, %d]", exp.Start, exp.End, act.Start, act.End),
				Expected: Render(exp),
				Actual:   Render(act),
			}
		}
		if len(exp.Children) != len(act.Children) {
			return &Diff{
				Path:     f.path,
				Reason:   fmt.Sprintf("child count %d vs %d", len(exp.Children), len(act.Children)),
				Expected: Render(exp),
				Actual:   Render(act),
			}
		}

		childPath := appendPath(f.path, exp.Kind)
		// дети кладутся в обратном порядке: первый расхождением встретится первым
		for i := len(exp.Children) - 1; i >= 0; i-- {
			stack = append(stack, framePair{
				expected: exp.Children[i],
				actual:   act.Children[i],
				path:     childPath,
			})
		}
	}
	return nil
}

func appendPath(path []string, kind string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, kind)
}

// CompareReprs parses both representations and compares them. A
// representation that fails to parse is reported as a divergence against
// the other side rather than an error: malformed actual output is exactly
// the kind of engine bug the comparator exists to surface.
func CompareReprs(expectedRepr, actualRepr string) (*Diff, error) {
	expected, err := Parse(expectedRepr)
	if err != nil {
		return nil, fmt.Errorf("expected tree: %w", err)
	}
	actual, aerr := Parse(actualRepr)
	if aerr != nil {
		return &Diff{
			Reason:   fmt.Sprintf("actual representation is malformed: %v", aerr),
			Expected: Render(expected),
			Actual:   actualRepr,
		}, nil
	}
	return Compare(expected, actual), nil
}
