// Package grammar ships the reference parsing engine used to exercise the
// verification core end to end: a registry of small languages implementing
// the engine contract, with genuine incremental reuse of top-level nodes
// that precede the edited region.
//
// Назначение: встроенные грамматики (expr, list) и реестр языков. Внешние
// движки подключаются через тот же Registry.Register.
package grammar

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"

	"treecheck/internal/engine"
)

// Registry maps language names to engines. Safe for read-only sharing after
// setup; registration is not synchronized.
type Registry struct {
	langs map[string]engine.Language
}

// NewRegistry returns a registry pre-populated with the built-in grammars.
func NewRegistry() *Registry {
	r := &Registry{langs: make(map[string]engine.Language)}
	r.Register(Expr())
	r.Register(List())
	return r
}

// Register adds or replaces a language.
func (r *Registry) Register(l engine.Language) {
	r.langs[l.Name()] = l
}

// Lookup resolves a language by name. An unknown name fails with the
// closest registered name as a suggestion.
func (r *Registry) Lookup(name string) (engine.Language, error) {
	if l, ok := r.langs[name]; ok {
		return l, nil
	}
	if hint := r.closest(name); hint != "" {
		return nil, fmt.Errorf("unknown language %q (did you mean %q?)", name, hint)
	}
	return nil, fmt.Errorf("unknown language %q", name)
}

// Names returns all registered language names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.langs))
	for name := range r.langs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) closest(name string) string {
	best, bestDist := "", len(name)+1
	for _, candidate := range r.Names() {
		d := levenshtein.ComputeDistance(name, candidate)
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	// слишком далёкое имя — не подсказка, а шум
	if bestDist > len(name)/2+1 {
		return ""
	}
	return best
}

// Override returns a language whose Alphabet is replaced, leaving parsing
// untouched. Used by manifest-level alphabet tuning.
func Override(l engine.Language, alphabet []string) engine.Language {
	return &overridden{Language: l, alphabet: append([]string(nil), alphabet...)}
}

type overridden struct {
	engine.Language
	alphabet []string
}

func (o *overridden) Alphabet() []string { return o.alphabet }
