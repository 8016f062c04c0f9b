package fuzztests

import (
	"context"
	"testing"
	"time"

	"treecheck/internal/grammar"
	"treecheck/internal/testkit"
)

const maxFuzzInput = 1 << 16 // 64 KiB

// parseTimeout is the maximum time allowed for parsing a single input.
// If parsing takes longer, it indicates a potential infinite loop.
const parseTimeout = 5 * time.Second

func FuzzGrammarTrees(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		reg := grammar.NewRegistry()
		for _, name := range reg.Names() {
			lang, err := reg.Lookup(name)
			if err != nil {
				t.Fatalf("lookup %q: %v", name, err)
			}
			tree, err := lang.Parse(context.Background(), input, nil)
			if err != nil {
				t.Fatalf("%s: parse error on arbitrary input: %v", name, err)
			}
			if err := testkit.CheckTreeInvariants(tree, len(input)); err != nil {
				t.Fatalf("%s: malformed tree: %v\ninput (%d bytes): %q",
					name, err, len(input), truncateForLog(input, 200))
			}
		}
	})
}

// FuzzGrammarNoHang tests that no built-in grammar hangs on any input.
// It uses a timeout to detect infinite loops that could be caused by
// malformed input or edge cases in error recovery.
func FuzzGrammarNoHang(f *testing.F) {
	addCorpusSeeds(f)

	f.Add([]byte("(((((((((("))
	f.Add([]byte("a+b+c+d+e+f+g+h"))
	f.Add([]byte(";;;;;;\n\n\n;;;;"))
	f.Add([]byte("-(-(-(-(-x"))

	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			reg := grammar.NewRegistry()
			for _, name := range reg.Names() {
				lang, err := reg.Lookup(name)
				if err != nil {
					return
				}
				_, _ = lang.Parse(ctx, input, nil)
			}
		}()

		select {
		case <-done:
			// Parser completed successfully
		case <-ctx.Done():
			t.Fatalf("grammar hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen], []byte("...")...)
}
