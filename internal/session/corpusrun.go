package session

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"treecheck/internal/corpus"
	"treecheck/internal/engine"
	"treecheck/internal/report"
	"treecheck/internal/sexp"
)

// CorpusOptions configure a static expected-output run.
type CorpusOptions struct {
	// Paths are fixture files or directories. Ignored when Entries is set
	// (прямой вход для тестов и обвязки).
	Paths   []string
	Entries []corpus.Entry

	// Language is the default language; an entry's :language() attribute
	// overrides it.
	Language string
	Resolve  func(name string) (engine.Language, error)

	// Timeout bounds each parse; zero means a generous default.
	Timeout  time.Duration
	Jobs     int
	Progress Sink
}

// EntryOutcome classifies one corpus entry result.
type EntryOutcome uint8

const (
	OutcomePass EntryOutcome = iota
	OutcomeFail
	OutcomeSkip
)

func (o EntryOutcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeFail:
		return "fail"
	default:
		return "skip"
	}
}

// EntryResult pairs an entry with its outcome, in source file order.
type EntryResult struct {
	Entry    corpus.Entry
	Outcome  EntryOutcome
	Mismatch *report.Mismatch
}

// CorpusResult aggregates a whole run.
type CorpusResult struct {
	Passed, Failed, Skipped int

	// Results preserve entry order for deterministic reporting.
	Results []EntryResult
	// Failures are sorted by (language, entry, seed).
	Failures *report.List
	// LoadErrors are malformed-fixture and I/O errors; fatal to their
	// file only.
	LoadErrors []error
}

const defaultCorpusTimeout = 5 * time.Second

// RunCorpus checks every non-skipped entry: parse, render, compare against
// the expected tree. Entries flagged :error instead assert the tree
// contains at least one error node. There are no retries — a grammar/input
// mismatch is deterministic.
func RunCorpus(ctx context.Context, opts CorpusOptions) (*CorpusResult, error) {
	if opts.Resolve == nil {
		return nil, fmt.Errorf("session: no language resolver")
	}
	entries := opts.Entries
	var loadErrs []error
	if entries == nil {
		entries, loadErrs = corpus.LoadPaths(opts.Paths)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCorpusTimeout
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты по индексу: каждый воркер пишет только свой слот
	results := make([]EntryResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(entries), 1)))

	for i, entry := range entries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = checkEntry(gctx, entry, opts, timeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &CorpusResult{
		Results:    results,
		Failures:   &report.List{},
		LoadErrors: loadErrs,
	}
	for _, r := range results {
		switch r.Outcome {
		case OutcomePass:
			out.Passed++
		case OutcomeFail:
			out.Failed++
			out.Failures.Add(r.Mismatch)
		case OutcomeSkip:
			out.Skipped++
		}
	}
	out.Failures.Sort()
	return out, nil
}

func checkEntry(ctx context.Context, entry corpus.Entry, opts CorpusOptions, timeout time.Duration) EntryResult {
	langName := entry.Language
	if langName == "" {
		langName = opts.Language
	}

	if entry.Skip {
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusSkip})
		return EntryResult{Entry: entry, Outcome: OutcomeSkip}
	}
	emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusRunning})

	fail := func(m *report.Mismatch) EntryResult {
		m.Language = langName
		m.Entry = entry.Name
		m.EditIndex = -1
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusFail, Detail: m.Reason})
		return EntryResult{Entry: entry, Outcome: OutcomeFail, Mismatch: m}
	}

	lang, err := opts.Resolve(langName)
	if err != nil {
		return fail(&report.Mismatch{Kind: report.KindEngineError, Reason: err.Error()})
	}

	tree, _, err := engine.ParseBounded(ctx, lang, entry.Input, nil, timeout)
	if err != nil {
		kind := report.KindEngineError
		if errors.Is(err, engine.ErrTimeout) {
			kind = report.KindTimeout
		}
		return fail(&report.Mismatch{Kind: kind, Reason: err.Error()})
	}

	if entry.ErrorExpected {
		// запись с :error проходит тогда и только тогда, когда дерево
		// содержит хотя бы один узел ошибки
		if !tree.HasError() {
			return fail(&report.Mismatch{
				Kind:   report.KindStructuralDiff,
				Reason: "expected at least one error node, parse succeeded cleanly",
				Actual: engine.Sexp(tree, false),
			})
		}
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusPass})
		return EntryResult{Entry: entry, Outcome: OutcomePass}
	}

	actual := engine.Sexp(tree, false)
	diff, err := sexp.CompareReprs(entry.ExpectedSexp, actual)
	if err != nil {
		// ожидаемое дерево в фикстуре не разбирается — это дефект фикстуры
		return fail(&report.Mismatch{Kind: report.KindEngineError, Reason: err.Error()})
	}
	if diff != nil {
		return fail(&report.Mismatch{
			Kind:     report.KindStructuralDiff,
			Path:     diff.Path,
			Reason:   diff.Reason,
			Expected: diff.Expected,
			Actual:   diff.Actual,
		})
	}

	emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusPass})
	return EntryResult{Entry: entry, Outcome: OutcomePass}
}
