package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestSaveTrialRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Trial{
		Seed:      42,
		Language:  "expr",
		EntryName: "precedence climb",
		EntryFile: "testdata/expr.corpus",
		EditCount: 20,
		TimeoutMS: 2000,
		Alphabet:  "grammar",
		Encoding:  "utf-8",
	}

	path, err := SaveTrial(dir, in)
	if err != nil {
		t.Fatalf("SaveTrial: %v", err)
	}
	if base := filepath.Base(path); base != "expr-precedence_climb-seed42"+TrialExtension {
		t.Fatalf("trial filename = %q", base)
	}

	out, err := LoadTrial(path)
	if err != nil {
		t.Fatalf("LoadTrial: %v", err)
	}
	if out.Schema == 0 {
		t.Fatal("schema not stamped on save")
	}
	if out.Seed != in.Seed || out.Language != in.Language || out.EntryName != in.EntryName ||
		out.EditCount != in.EditCount || out.TimeoutMS != in.TimeoutMS ||
		out.Alphabet != in.Alphabet || out.Encoding != in.Encoding {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
	if out.String() != "expr/precedence climb seed=42 edits=20" {
		t.Fatalf("String() = %q", out.String())
	}
}

func TestSaveTrialLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := SaveTrial(dir, &Trial{Seed: 1, Language: "list", EntryName: "x"}); err != nil {
		t.Fatalf("SaveTrial: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory holds %v, want a single trial file", names)
	}
}

func TestLoadTrialRejectsUnknownSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future"+TrialExtension)

	stale := Trial{Schema: 99, Seed: 1, Language: "expr", EntryName: "x"}
	raw, err := msgpack.Marshal(&stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTrial(path); err == nil || !strings.Contains(err.Error(), "schema 99") {
		t.Fatalf("expected a schema error, got %v", err)
	}
}

func TestLoadTrialRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad"+TrialExtension)
	if err := os.WriteFile(path, []byte("not msgpack at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrial(path); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestLoadTrialMissingFile(t *testing.T) {
	if _, err := LoadTrial(filepath.Join(t.TempDir(), "absent"+TrialExtension)); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
