package session

import (
	"context"
	"fmt"
	"time"

	"treecheck/internal/corpus"
	"treecheck/internal/editgen"
	"treecheck/internal/engine"
	"treecheck/internal/observ"
	"treecheck/internal/report"
	"treecheck/internal/textbuf"
	"treecheck/internal/verify"
)

// TrialOptions configure a replayed trial.
type TrialOptions struct {
	Resolve func(name string) (engine.Language, error)
	// Entry, если задан, используется вместо загрузки из Trial.EntryFile.
	Entry           *corpus.Entry
	CheckInvariants bool
	Sampler         *observ.Sampler
}

// ReplayTrial re-executes a trial descriptor: same entry, same seed, same
// alphabet, hence the identical edit sequence. Returns nil mismatch when
// the trial passes.
func ReplayTrial(ctx context.Context, t *report.Trial, opts TrialOptions) (*report.Mismatch, error) {
	if opts.Resolve == nil {
		return nil, fmt.Errorf("session: no language resolver")
	}

	entry := opts.Entry
	if entry == nil {
		loaded, err := findEntry(t.EntryFile, t.EntryName)
		if err != nil {
			return nil, err
		}
		entry = loaded
	}

	lang, err := opts.Resolve(t.Language)
	if err != nil {
		return nil, err
	}
	enc, err := textbuf.EncodingFromString(t.Encoding)
	if err != nil {
		return nil, err
	}
	alphabet, err := editgen.Resolve(t.Alphabet, lang.Alphabet())
	if err != nil {
		return nil, err
	}

	edits := editgen.New(t.Seed, alphabet).Generate(entry.Input, enc, t.EditCount)
	vopts := verify.Options{
		Language:        lang,
		Input:           entry.Input,
		Encoding:        enc,
		Edits:           edits,
		PerEditTimeout:  time.Duration(t.TimeoutMS) * time.Millisecond,
		CheckInvariants: opts.CheckInvariants,
	}
	if opts.Sampler != nil {
		vopts.Sampler = opts.Sampler
	}
	res, err := verify.Run(ctx, vopts)
	if err != nil {
		return nil, err
	}
	if res.Mismatch == nil {
		return nil, nil
	}

	m := res.Mismatch
	m.Language = t.Language
	m.Entry = t.EntryName
	m.Seed = t.Seed
	m.Trial = t
	return m, nil
}

// Minimize binary-searches the shortest edit-sequence prefix of a failing
// trial that still reproduces the original mismatch kind. It trades extra
// engine calls for a smaller repro; the minimized trial never has more
// edits than the original failure point.
func Minimize(ctx context.Context, t *report.Trial, opts TrialOptions) (*report.Mismatch, *report.Trial, error) {
	full, err := ReplayTrial(ctx, t, opts)
	if err != nil {
		return nil, nil, err
	}
	if full == nil {
		return nil, nil, fmt.Errorf("trial %s does not reproduce a failure", t)
	}
	wantKind := full.Kind

	// точка сбоя уже ограничивает длину префикса
	hi := t.EditCount
	if full.EditIndex >= 0 && full.EditIndex+1 < hi {
		hi = full.EditIndex + 1
	}
	if hi < 1 {
		hi = 1
	}
	best := full
	lo := 1

	for lo < hi {
		mid := (lo + hi) / 2
		shorter := *t
		shorter.EditCount = mid

		m, err := ReplayTrial(ctx, &shorter, opts)
		if err != nil {
			return nil, nil, err
		}
		if m != nil && m.Kind == wantKind {
			best = m
			hi = mid
			if m.EditIndex >= 0 && m.EditIndex+1 < hi {
				hi = m.EditIndex + 1
			}
		} else {
			lo = mid + 1
		}
	}

	minimized := *t
	minimized.EditCount = hi
	best.Trial = &minimized
	return best, &minimized, nil
}

func findEntry(file, name string) (*corpus.Entry, error) {
	entries, err := corpus.LoadFile(file)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("entry %q not found in %s", name, file)
}
