package fuzztests

import (
	"context"
	"testing"
	"unicode/utf8"

	"treecheck/internal/editgen"
	"treecheck/internal/grammar"
	"treecheck/internal/textbuf"
	"treecheck/internal/verify"
)

// FuzzIncrementalEquivalence is the core property harness: for any input
// and seed, incremental reparsing of the built-in grammars must produce a
// tree identical to a from-scratch parse after every edit.
func FuzzIncrementalEquivalence(f *testing.F) {
	addCorpusSeeds(f)
	f.Add([]byte("a + b\nc * d"))

	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		enc := textbuf.EncodingRaw
		if utf8.Valid(input) {
			enc = textbuf.EncodingUTF8
		}

		reg := grammar.NewRegistry()
		for _, name := range reg.Names() {
			lang, err := reg.Lookup(name)
			if err != nil {
				t.Fatalf("lookup %q: %v", name, err)
			}

			const seed = 1
			edits := editgen.New(seed, lang.Alphabet()).Generate(input, enc, 10)
			res, err := verify.Run(context.Background(), verify.Options{
				Language:        lang,
				Input:           input,
				Encoding:        enc,
				Edits:           edits,
				PerEditTimeout:  parseTimeout,
				CheckInvariants: true,
			})
			if err != nil {
				t.Fatalf("%s: harness error: %v", name, err)
			}
			if res.Mismatch != nil {
				t.Fatalf("%s: %s at edit %d: %s\nexpected: %s\nactual:   %s\ninput (%d bytes): %q",
					name, res.Mismatch.Kind, res.Mismatch.EditIndex, res.Mismatch.Reason,
					res.Mismatch.Expected, res.Mismatch.Actual,
					len(input), truncateForLog(input, 200))
			}
		}
	})
}
