// Package report defines the terminal artifacts of failed verification:
// mismatch reports with full reproduction context, their deterministic
// aggregation across parallel trials, replayable trial descriptors
// persisted as msgpack, and human-readable rendering.
//
// Назначение: таксономия сбоев (§ StructuralDiff / TimeoutExceeded /
// EngineError), список-аккумулятор и файлы воспроизведения.
package report

import (
	"sort"
	"strings"

	"treecheck/internal/engine"
)

// Kind classifies a verification failure.
type Kind uint8

const (
	// KindStructuralDiff is the primary signal: incremental vs fresh (or
	// actual vs expected) trees diverged.
	KindStructuralDiff Kind = iota
	// KindTimeout flags a parse exceeding its per-edit deadline — a
	// potential non-termination bug, never silently retried.
	KindTimeout
	// KindEngineError covers internal engine failures and malformed trees.
	KindEngineError
)

func (k Kind) String() string {
	switch k {
	case KindStructuralDiff:
		return "StructuralDiff"
	case KindTimeout:
		return "TimeoutExceeded"
	case KindEngineError:
		return "EngineError"
	}
	return "Unknown"
}

// Mismatch is one failed verification, sufficient to reproduce the failure
// by replaying its Trial.
type Mismatch struct {
	Kind     Kind
	Language string
	Entry    string
	Seed     uint64
	// EditIndex is the zero-based edit at which the trial failed;
	// -1 для сбоев без правок (начальный парс, corpus-проверка).
	EditIndex int

	// Path holds the kinds of common ancestors down to the divergence.
	Path     []string
	Reason   string
	Expected string
	Actual   string

	// History is the edit prefix applied before (and including) the
	// failing step.
	History []engine.Edit

	// Trial is the replayable descriptor; nil for static corpus failures.
	Trial *Trial
}

// Location renders the ancestor path of the divergence.
func (m *Mismatch) Location() string {
	if len(m.Path) == 0 {
		return "(root)"
	}
	return strings.Join(m.Path, " > ")
}

// List accumulates mismatches. Each worker threads its own List and merges
// at a synchronization point; no shared cell is mutated concurrently.
type List struct {
	items []*Mismatch
}

// Add appends a mismatch.
func (l *List) Add(m *Mismatch) {
	l.items = append(l.items, m)
}

// Merge appends everything from other.
func (l *List) Merge(other *List) {
	if other == nil {
		return
	}
	l.items = append(l.items, other.items...)
}

// Len returns the number of collected mismatches.
func (l *List) Len() int { return len(l.items) }

// Items returns the collected mismatches. Не модифицируйте возвращаемый
// срез: он указывает на внутренний массив.
func (l *List) Items() []*Mismatch { return l.items }

// Sort orders mismatches by (language, entry, seed, edit index) so session
// output is reproducible regardless of trial completion order.
func (l *List) Sort() {
	sort.SliceStable(l.items, func(i, j int) bool {
		mi, mj := l.items[i], l.items[j]
		if mi.Language != mj.Language {
			return mi.Language < mj.Language
		}
		if mi.Entry != mj.Entry {
			return mi.Entry < mj.Entry
		}
		if mi.Seed != mj.Seed {
			return mi.Seed < mj.Seed
		}
		return mi.EditIndex < mj.EditIndex
	})
}
