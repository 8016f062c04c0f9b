package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"treecheck/internal/engine"
	"treecheck/internal/report"
	"treecheck/internal/textbuf"
)

// flatLang parses any input into a single root node spanning the whole
// buffer. Инкрементальный и полный разбор всегда совпадают.
type flatLang struct{}

func (flatLang) Name() string       { return "flat" }
func (flatLang) Alphabet() []string { return []string{"x"} }

func (flatLang) Parse(_ context.Context, src []byte, _ *engine.Tree) (*engine.Tree, error) {
	return engine.NewTree(&engine.Node{
		Kind:    "document",
		Named:   true,
		EndByte: uint32(len(src)),
	}), nil
}

// divergingLang returns the flat tree from scratch but grows an extra child
// whenever a previous tree is supplied, модель сломанного переиспользования.
type divergingLang struct{}

func (divergingLang) Name() string       { return "diverging" }
func (divergingLang) Alphabet() []string { return []string{"x"} }

func (divergingLang) Parse(_ context.Context, src []byte, prev *engine.Tree) (*engine.Tree, error) {
	root := &engine.Node{Kind: "document", Named: true, EndByte: uint32(len(src))}
	if prev != nil && len(src) > 0 {
		root.Children = []*engine.Node{
			{Kind: "ghost", Named: true, StartByte: 0, EndByte: uint32(len(src))},
		}
	}
	return engine.NewTree(root), nil
}

// hangingLang blocks on incremental parses until cancelled.
type hangingLang struct{}

func (hangingLang) Name() string       { return "hanging" }
func (hangingLang) Alphabet() []string { return []string{"x"} }

func (hangingLang) Parse(ctx context.Context, src []byte, prev *engine.Tree) (*engine.Tree, error) {
	if prev != nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return engine.NewTree(&engine.Node{Kind: "document", Named: true, EndByte: uint32(len(src))}), nil
}

// malformedLang emits a tree whose root extends past the buffer.
type malformedLang struct{}

func (malformedLang) Name() string       { return "malformed" }
func (malformedLang) Alphabet() []string { return []string{"x"} }

func (malformedLang) Parse(_ context.Context, src []byte, _ *engine.Tree) (*engine.Tree, error) {
	return engine.NewTree(&engine.Node{
		Kind:    "document",
		Named:   true,
		EndByte: uint32(len(src)) + 5,
	}), nil
}

// brokenLang fails every parse outright.
type brokenLang struct{ err error }

func (brokenLang) Name() string       { return "broken" }
func (brokenLang) Alphabet() []string { return []string{"x"} }

func (b brokenLang) Parse(context.Context, []byte, *engine.Tree) (*engine.Tree, error) {
	return nil, b.err
}

type splice struct {
	start, oldEnd uint32
	text          string
}

// editsFor replays splices over a scratch copy of input so the produced
// edits are consistent with the buffer the trial will maintain.
func editsFor(input string, splices ...splice) []engine.Edit {
	buf := textbuf.New([]byte(input), textbuf.EncodingUTF8)
	edits := make([]engine.Edit, 0, len(splices))
	for _, s := range splices {
		edits = append(edits, buf.Splice(s.start, s.oldEnd, []byte(s.text)))
	}
	return edits
}

func TestRunCleanTrial(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Language: flatLang{},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
		Edits:    editsFor("abc", splice{1, 2, "XY"}, splice{0, 0, "z"}),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mismatch != nil {
		t.Fatalf("clean trial reported mismatch: %+v", res.Mismatch)
	}
	if res.EditsRun != 2 {
		t.Fatalf("EditsRun = %d, want 2", res.EditsRun)
	}
}

func TestRunNoopEdit(t *testing.T) {
	// пустая правка не должна менять дерево ни в одном режиме
	res, err := Run(context.Background(), Options{
		Language: flatLang{},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
		Edits:    editsFor("abc", splice{2, 2, ""}),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mismatch != nil || res.EditsRun != 1 {
		t.Fatalf("noop edit changed the verdict: %+v", res)
	}
}

func TestRunNoEdits(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Language: flatLang{},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mismatch != nil || res.EditsRun != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunReportsStructuralDiff(t *testing.T) {
	edits := editsFor("abc",
		splice{0, 0, "q"},
		splice{1, 1, "w"})
	res, err := Run(context.Background(), Options{
		Language: divergingLang{},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
		Edits:    edits,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := res.Mismatch
	if m == nil {
		t.Fatal("expected a mismatch")
	}
	if m.Kind != report.KindStructuralDiff {
		t.Fatalf("Kind = %v, want StructuralDiff", m.Kind)
	}
	if m.EditIndex != 0 {
		t.Fatalf("EditIndex = %d, want 0", m.EditIndex)
	}
	if len(m.History) != 1 {
		t.Fatalf("History holds %d edits, want 1", len(m.History))
	}
	if m.History[0].String() != edits[0].String() {
		t.Fatalf("history edit %s does not match applied edit %s", m.History[0].String(), edits[0].String())
	}
	if !strings.Contains(m.Actual, "ghost") {
		t.Fatalf("Actual = %q, want the spurious node", m.Actual)
	}
}

func TestRunReportsTimeout(t *testing.T) {
	start := time.Now()
	res, err := Run(context.Background(), Options{
		Language:       hangingLang{},
		Input:          []byte("abc"),
		Encoding:       textbuf.EncodingUTF8,
		Edits:          editsFor("abc", splice{0, 1, "Z"}),
		PerEditTimeout: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
	m := res.Mismatch
	if m == nil || m.Kind != report.KindTimeout {
		t.Fatalf("expected a timeout mismatch, got %+v", m)
	}
	if m.EditIndex != 0 {
		t.Fatalf("EditIndex = %d, want 0", m.EditIndex)
	}
	if len(m.History) != 1 {
		t.Fatalf("History holds %d edits, want 1", len(m.History))
	}
}

func TestRunChecksTreeInvariants(t *testing.T) {
	opts := Options{
		Language: malformedLang{},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
		Edits:    editsFor("abc", splice{0, 0, "q"}),
	}

	// без проверки инвариантов деревья совпадают и трасса «зелёная»
	res, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mismatch != nil {
		t.Fatalf("unexpected mismatch without invariant checks: %+v", res.Mismatch)
	}

	opts.CheckInvariants = true
	res, err = Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := res.Mismatch
	if m == nil || m.Kind != report.KindEngineError {
		t.Fatalf("expected an engine-error mismatch, got %+v", m)
	}
	if !strings.Contains(m.Reason, "malformed incremental tree") {
		t.Fatalf("Reason = %q", m.Reason)
	}
}

func TestRunInitialParseFailure(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Language: brokenLang{err: errors.New("reducer stack exhausted")},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
		Edits:    editsFor("abc", splice{0, 0, "q"}),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := res.Mismatch
	if m == nil || m.Kind != report.KindEngineError {
		t.Fatalf("expected an engine-error mismatch, got %+v", m)
	}
	if m.EditIndex != -1 {
		t.Fatalf("EditIndex = %d, want -1 for the initial parse", m.EditIndex)
	}
	if len(m.History) != 0 {
		t.Fatalf("History holds %d edits, want 0", len(m.History))
	}
}

func TestRunRejectsInconsistentEdits(t *testing.T) {
	// правка выходит за границы буфера — дефект генератора, не движка
	bad := engine.Edit{StartByte: 10, OldEndByte: 12, NewEndByte: 10}
	_, err := Run(context.Background(), Options{
		Language: flatLang{},
		Input:    []byte("abc"),
		Encoding: textbuf.EncodingUTF8,
		Edits:    []engine.Edit{bad},
	})
	if err == nil {
		t.Fatal("expected a hard error for an out-of-bounds edit")
	}
	if !strings.Contains(err.Error(), "edit 0") {
		t.Fatalf("error %q does not name the edit", err)
	}
}

func TestRunRequiresLanguage(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected an error for a missing language")
	}
}
