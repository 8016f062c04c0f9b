package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"treecheck/internal/corpus"
	"treecheck/internal/engine"
	"treecheck/internal/grammar"
	"treecheck/internal/observ"
	"treecheck/internal/report"
	"treecheck/internal/textbuf"
)

func fuzzEntries() []corpus.Entry {
	return []corpus.Entry{
		{Name: "sum", Input: []byte("a + b * c\n"), File: "mem"},
		{Name: "nested", Language: "list", Input: []byte("(a (b c) d)"), File: "mem"},
	}
}

func baseFuzzOptions() FuzzOptions {
	reg := grammar.NewRegistry()
	return FuzzOptions{
		Resolve:        reg.Lookup,
		Language:       "expr",
		SeedStart:      1,
		SeedCount:      4,
		EditCount:      10,
		PerEditTimeout: 2 * time.Second,
		Encoding:       textbuf.EncodingUTF8,
		Entries:        fuzzEntries(),
	}
}

func TestRunFuzzAllTrialsPass(t *testing.T) {
	opts := baseFuzzOptions()
	sampler := observ.NewSampler()
	opts.Sampler = sampler

	res, err := RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if res.Trials != 8 || res.Passed != 8 || res.Failed != 0 {
		for _, m := range res.Failures.Items() {
			t.Errorf("failure %s/%s seed=%d: %s", m.Language, m.Entry, m.Seed, m.Reason)
		}
		t.Fatalf("trials/passed/failed = %d/%d/%d, want 8/8/0",
			res.Trials, res.Passed, res.Failed)
	}
	// каждый trial делает начальный парс плюс по два парса на правку
	stats := sampler.Stats("parse-fresh")
	if stats == nil || stats.Count == 0 {
		t.Fatal("sampler collected no fresh-parse observations")
	}
}

func TestRunFuzzWithInvariantChecks(t *testing.T) {
	opts := baseFuzzOptions()
	opts.CheckInvariants = true
	opts.SeedCount = 2

	res, err := RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if res.Failed != 0 {
		for _, m := range res.Failures.Items() {
			t.Errorf("failure %s/%s seed=%d: %s", m.Language, m.Entry, m.Seed, m.Reason)
		}
		t.Fatal("built-in grammars violated tree invariants")
	}
}

// unstableLang diverges on incremental parses, so every trial fails at its
// first edit.
type unstableLang struct{}

func (unstableLang) Name() string       { return "unstable" }
func (unstableLang) Alphabet() []string { return []string{"x", "y"} }

func (unstableLang) Parse(_ context.Context, src []byte, prev *engine.Tree) (*engine.Tree, error) {
	root := &engine.Node{Kind: "document", Named: true, EndByte: uint32(len(src))}
	if prev != nil && len(src) > 0 {
		root.Children = []*engine.Node{
			{Kind: "extra", Named: true, EndByte: uint32(len(src))},
		}
	}
	return engine.NewTree(root), nil
}

func unstableResolve(name string) (engine.Language, error) {
	return unstableLang{}, nil
}

func TestRunFuzzStopsAtFirstFailurePerEntry(t *testing.T) {
	opts := baseFuzzOptions()
	opts.Resolve = unstableResolve
	opts.Entries = []corpus.Entry{{Name: "doc", Input: []byte("xy"), File: "mem"}}
	opts.SeedCount = 5

	res, err := RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if res.Trials != 1 || res.Failed != 1 {
		t.Fatalf("trials/failed = %d/%d, want 1/1 without keep-going", res.Trials, res.Failed)
	}

	opts.KeepGoing = true
	res, err = RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if res.Trials != 5 || res.Failed != 5 {
		t.Fatalf("trials/failed = %d/%d, want 5/5 with keep-going", res.Trials, res.Failed)
	}

	// сбои отсортированы по сиду при любом порядке завершения
	items := res.Failures.Items()
	for i, m := range items {
		if m.Seed != opts.SeedStart+uint64(i) {
			t.Fatalf("failure %d has seed %d", i, m.Seed)
		}
		if m.Kind != report.KindStructuralDiff {
			t.Fatalf("failure kind = %v", m.Kind)
		}
		if m.Trial == nil || m.Trial.EntryName != "doc" {
			t.Fatalf("failure %d missing trial descriptor", i)
		}
	}
}

func TestRunFuzzSavesTrials(t *testing.T) {
	dir := t.TempDir()
	opts := baseFuzzOptions()
	opts.Resolve = unstableResolve
	opts.Entries = []corpus.Entry{{Name: "doc", Input: []byte("xy"), File: "mem"}}
	opts.SeedCount = 1
	opts.SaveDir = dir

	res, err := RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if len(res.SavedTrials) != 1 {
		t.Fatalf("saved %d trials, want 1", len(res.SavedTrials))
	}
	saved, err := report.LoadTrial(res.SavedTrials[0])
	if err != nil {
		t.Fatalf("LoadTrial: %v", err)
	}
	if saved.Seed != opts.SeedStart || saved.EntryName != "doc" || saved.EditCount != opts.EditCount {
		t.Fatalf("saved trial = %+v", saved)
	}
	if filepath.Dir(res.SavedTrials[0]) != dir {
		t.Fatalf("trial saved outside %s: %s", dir, res.SavedTrials[0])
	}
	if _, err := os.Stat(res.SavedTrials[0]); err != nil {
		t.Fatal(err)
	}
}

func TestRunFuzzUnknownLanguageFailsEntryOnly(t *testing.T) {
	opts := baseFuzzOptions()
	opts.Entries = []corpus.Entry{
		{Name: "good", Input: []byte("a + b\n"), File: "mem"},
		{Name: "bad", Language: "martian", Input: []byte("x"), File: "mem"},
	}
	opts.SeedCount = 1

	res, err := RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if res.Passed != 1 || res.Failed != 1 {
		t.Fatalf("passed/failed = %d/%d, want 1/1", res.Passed, res.Failed)
	}
	m := res.Failures.Items()[0]
	if m.Kind != report.KindEngineError || m.Entry != "bad" || m.EditIndex != -1 {
		t.Fatalf("unexpected failure: %+v", m)
	}
}

func TestRunFuzzSkipsFlaggedEntries(t *testing.T) {
	opts := baseFuzzOptions()
	opts.Entries = []corpus.Entry{
		{Name: "live", Input: []byte("a\n"), File: "mem"},
		{Name: "parked", Skip: true, File: "mem"},
	}
	opts.SeedCount = 2

	res, err := RunFuzz(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunFuzz: %v", err)
	}
	if res.SkippedEntries != 1 {
		t.Fatalf("skipped entries = %d, want 1", res.SkippedEntries)
	}
	if res.Trials != 2 {
		t.Fatalf("trials = %d, want 2", res.Trials)
	}
}

func TestRunFuzzRejectsUnknownAlphabet(t *testing.T) {
	opts := baseFuzzOptions()
	opts.Alphabet = "emoji"
	if _, err := RunFuzz(context.Background(), opts); err == nil ||
		!strings.Contains(err.Error(), "emoji") {
		t.Fatalf("expected an alphabet error, got %v", err)
	}
}
