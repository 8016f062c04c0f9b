package session

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"treecheck/internal/corpus"
	"treecheck/internal/editgen"
	"treecheck/internal/engine"
	"treecheck/internal/observ"
	"treecheck/internal/report"
	"treecheck/internal/textbuf"
	"treecheck/internal/verify"
)

// FuzzOptions configure a fuzz session over the (language × entry × seed)
// matrix.
type FuzzOptions struct {
	Paths   []string
	Entries []corpus.Entry

	Language string
	Resolve  func(name string) (engine.Language, error)

	SeedStart uint64
	SeedCount int
	EditCount int
	// PerEditTimeout bounds every single parse inside a trial.
	PerEditTimeout time.Duration
	// Alphabet: grammar|ident|raw (политика выбора вставляемого текста).
	Alphabet string
	Encoding textbuf.Encoding

	Jobs int
	// KeepGoing runs all seeds of an entry even after a failure; the
	// default stops at the first failure per entry.
	KeepGoing bool
	// CheckInvariants validates every incremental tree structurally.
	CheckInvariants bool
	// SaveDir, when set, receives a replayable .trial.mp per failure.
	SaveDir string

	Progress Sink
	// Sampler, when set, aggregates parse durations across all trials.
	Sampler *observ.Sampler
}

// FuzzResult aggregates a session.
type FuzzResult struct {
	Trials, Passed, Failed int
	SkippedEntries         int

	// Failures are sorted by (language, entry, seed) regardless of the
	// order trials completed in.
	Failures   *report.List
	LoadErrors []error
	// SavedTrials maps failure order to written repro files.
	SavedTrials []string
}

// entryOutcome is the per-worker accumulator; merged after Wait.
type entryOutcome struct {
	trials, passed, failed int
	skipped                bool
	failures               report.List
	saved                  []string
	sampler                *observ.Sampler
}

// RunFuzz executes the matrix. Trials are embarrassingly parallel: each
// owns its buffer and parser state, entries are shared read-only. Failures
// never abort the session; every cell of the matrix gets its verdict.
func RunFuzz(ctx context.Context, opts FuzzOptions) (*FuzzResult, error) {
	if opts.Resolve == nil {
		return nil, fmt.Errorf("session: no language resolver")
	}
	if opts.SeedCount <= 0 {
		opts.SeedCount = 1
	}
	if opts.EditCount <= 0 {
		opts.EditCount = 20
	}
	if opts.PerEditTimeout <= 0 {
		opts.PerEditTimeout = 2 * time.Second
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	entries := opts.Entries
	var loadErrs []error
	if entries == nil {
		entries, loadErrs = corpus.LoadPaths(opts.Paths)
	}

	outcomes := make([]entryOutcome, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(entries), 1)))

	for i, entry := range entries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			out, err := fuzzEntry(gctx, entry, opts)
			if err != nil {
				return err
			}
			outcomes[i] = *out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FuzzResult{Failures: &report.List{}}
	for i := range outcomes {
		o := &outcomes[i]
		result.Trials += o.trials
		result.Passed += o.passed
		result.Failed += o.failed
		if o.skipped {
			result.SkippedEntries++
		}
		result.Failures.Merge(&o.failures)
		result.SavedTrials = append(result.SavedTrials, o.saved...)
		if opts.Sampler != nil {
			opts.Sampler.Merge(o.sampler)
		}
	}
	result.LoadErrors = loadErrs
	result.Failures.Sort()
	return result, nil
}

// fuzzEntry runs all seeds of one entry sequentially, so that
// stop-at-first-failure has a well-defined meaning under parallelism.
func fuzzEntry(ctx context.Context, entry corpus.Entry, opts FuzzOptions) (*entryOutcome, error) {
	out := &entryOutcome{sampler: observ.NewSampler()}

	langName := entry.Language
	if langName == "" {
		langName = opts.Language
	}
	if entry.Skip {
		out.skipped = true
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusSkip})
		return out, nil
	}

	lang, err := opts.Resolve(langName)
	if err != nil {
		// запись с неизвестным языком — сбой записи, не всей сессии
		out.failed++
		out.trials++
		out.failures.Add(&report.Mismatch{
			Kind:      report.KindEngineError,
			Language:  langName,
			Entry:     entry.Name,
			EditIndex: -1,
			Reason:    err.Error(),
		})
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Status: StatusFail, Detail: err.Error()})
		return out, nil
	}

	alphabet, err := editgen.Resolve(opts.Alphabet, lang.Alphabet())
	if err != nil {
		return nil, err
	}

	for s := 0; s < opts.SeedCount; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed := opts.SeedStart + uint64(s)
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Seed: seed, Status: StatusRunning})

		edits := editgen.New(seed, alphabet).Generate(entry.Input, opts.Encoding, opts.EditCount)
		res, err := verify.Run(ctx, verify.Options{
			Language:        lang,
			Input:           entry.Input,
			Encoding:        opts.Encoding,
			Edits:           edits,
			PerEditTimeout:  opts.PerEditTimeout,
			Sampler:         out.sampler,
			CheckInvariants: opts.CheckInvariants,
		})
		if err != nil {
			return nil, err
		}
		out.trials++

		if res.Mismatch == nil {
			out.passed++
			emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Seed: seed, Status: StatusPass})
			continue
		}

		m := res.Mismatch
		m.Language = langName
		m.Entry = entry.Name
		m.Seed = seed
		m.Trial = &report.Trial{
			Seed:      seed,
			Language:  langName,
			EntryName: entry.Name,
			EntryFile: entry.File,
			EditCount: opts.EditCount,
			TimeoutMS: opts.PerEditTimeout.Milliseconds(),
			Alphabet:  opts.Alphabet,
			Encoding:  opts.Encoding.String(),
		}
		out.failed++
		out.failures.Add(m)
		emit(opts.Progress, Event{Language: langName, Entry: entry.Name, Seed: seed, Status: StatusFail, Detail: m.Reason})

		if opts.SaveDir != "" {
			if path, saveErr := report.SaveTrial(opts.SaveDir, m.Trial); saveErr == nil {
				out.saved = append(out.saved, path)
			}
		}
		if !opts.KeepGoing {
			break
		}
	}
	return out, nil
}
