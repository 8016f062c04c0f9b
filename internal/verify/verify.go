// Package verify drives one incremental-reparse trial: apply an edit,
// reparse incrementally, reparse from scratch, assert both trees are
// identical, repeat. The incremental tree is threaded forward so reuse is
// exercised across the whole edit sequence, not one-shot.
//
// Назначение: конечный автомат  Init → Parsed → {Edit → Reparsed →
// Compared}* → Done | Failed  из ядра верификации. Пакет ничего не знает о
// сидax и матрицах — ему дают язык, вход и готовую последовательность
// правок.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"treecheck/internal/engine"
	"treecheck/internal/report"
	"treecheck/internal/sexp"
	"treecheck/internal/testkit"
	"treecheck/internal/textbuf"
)

// Options configure a single trial.
type Options struct {
	Language engine.Language
	Input    []byte
	Encoding textbuf.Encoding
	Edits    []engine.Edit
	// PerEditTimeout bounds each parse call. Единственное фатальное
	// условие масштаба трасс — превышение намекает на зависание движка.
	PerEditTimeout time.Duration
	// Sampler, when set, receives per-parse durations.
	Sampler observSampler
	// CheckInvariants additionally validates every incremental tree
	// against the structural invariants in testkit.
	CheckInvariants bool
}

// observSampler is the minimal surface verify needs from observ.Sampler.
type observSampler interface {
	Observe(name string, d time.Duration)
}

// Result of one trial. A nil Mismatch means the trial reached Done: for
// every edit, incremental reparse matched the from-scratch reparse.
type Result struct {
	Mismatch *report.Mismatch
	// EditsRun is how many edits were fully verified.
	EditsRun int
}

// Run executes the trial. The returned mismatch carries the full edit
// history applied so far; language/entry/seed context is the caller's to
// fill in.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Language == nil {
		return nil, fmt.Errorf("verify: no language")
	}
	timeout := opts.PerEditTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	buf := textbuf.New(opts.Input, opts.Encoding)

	// Init → Parsed(tree0); сбой начального парса — EngineError, не mismatch
	prev, dur, err := engine.ParseBounded(ctx, opts.Language, buf.Bytes(), nil, timeout)
	opts.observe("parse-initial", dur)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{Mismatch: failure(err, -1, nil)}, nil
	}

	applied := make([]engine.Edit, 0, len(opts.Edits))
	for i := range opts.Edits {
		e := opts.Edits[i]
		if err := buf.Apply(&e); err != nil {
			// правка, не согласованная с буфером, — дефект генератора
			return nil, fmt.Errorf("verify: edit %d: %w", i, err)
		}
		if err := buf.CheckEncoding(); err != nil {
			return nil, fmt.Errorf("verify: edit %d: %w", i, err)
		}
		applied = append(applied, e)

		edited := prev.Edit(e)

		incTree, incDur, err := engine.ParseBounded(ctx, opts.Language, buf.Bytes(), edited, timeout)
		opts.observe("parse-incremental", incDur)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &Result{Mismatch: failure(err, i, applied), EditsRun: i}, nil
		}

		freshTree, freshDur, err := engine.ParseBounded(ctx, opts.Language, buf.Bytes(), nil, timeout)
		opts.observe("parse-fresh", freshDur)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &Result{Mismatch: failure(err, i, applied), EditsRun: i}, nil
		}

		if opts.CheckInvariants {
			if err := testkit.CheckTreeInvariants(incTree, len(buf.Bytes())); err != nil {
				return &Result{
					Mismatch: &report.Mismatch{
						Kind:      report.KindEngineError,
						EditIndex: i,
						Reason:    fmt.Sprintf("malformed incremental tree: %v", err),
						History:   snapshot(applied),
					},
					EditsRun: i,
				}, nil
			}
		}

		// сравнение всегда с байтовыми диапазонами
		freshRepr := engine.Sexp(freshTree, true)
		incRepr := engine.Sexp(incTree, true)
		diff, cmpErr := sexp.CompareReprs(freshRepr, incRepr)
		if cmpErr != nil {
			return nil, fmt.Errorf("verify: edit %d: %w", i, cmpErr)
		}
		if diff != nil {
			return &Result{
				Mismatch: &report.Mismatch{
					Kind:      report.KindStructuralDiff,
					EditIndex: i,
					Path:      diff.Path,
					Reason:    diff.Reason,
					Expected:  diff.Expected,
					Actual:    diff.Actual,
					History:   snapshot(applied),
				},
				EditsRun: i,
			}, nil
		}

		// инкрементальное дерево становится «предыдущим» для следующей
		// правки — повторное использование проверяется по всей трассе
		prev = incTree
	}

	return &Result{EditsRun: len(opts.Edits)}, nil
}

func (o Options) observe(name string, d time.Duration) {
	if o.Sampler != nil {
		o.Sampler.Observe(name, d)
	}
}

func failure(err error, editIndex int, applied []engine.Edit) *report.Mismatch {
	kind := report.KindEngineError
	if errors.Is(err, engine.ErrTimeout) {
		kind = report.KindTimeout
	}
	return &report.Mismatch{
		Kind:      kind,
		EditIndex: editIndex,
		Reason:    err.Error(),
		History:   snapshot(applied),
	}
}

func snapshot(edits []engine.Edit) []engine.Edit {
	return append([]engine.Edit(nil), edits...)
}
