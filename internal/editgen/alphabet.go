package editgen

import "fmt"

// Alphabet policies. Which characters get inserted is a tunable bias, not a
// contract: grammar tokens steer mutations toward parseable noise, raw
// bytes stress error recovery. Both stay deterministic under a fixed seed.

// AlphabetIdent returns single identifier characters. The pinned regression
// fixtures use this alphabet.
func AlphabetIdent() []string {
	return []string{"a", "b", "c", "x", "y", "z", "0", "1", "2", "_"}
}

// AlphabetRaw returns printable ASCII punctuation, control characters and a
// few multi-byte runes. Valid UTF-8 throughout, so it is usable in both
// encoding modes; the multi-byte entries exercise boundary clamping.
func AlphabetRaw() []string {
	out := []string{"\x00", "\t", "\n", "\r", " ", "!", "\"", "#", "$", "%", "&", "'"}
	for c := byte('('); c <= '~'; c++ {
		out = append(out, string(c))
	}
	return append(out, "é", "ж", "日", "🙂")
}

// Resolve maps an alphabet name to its character set. The grammar alphabet
// comes from the language itself and is handled by the caller.
func Resolve(name string, grammarTokens []string) ([]string, error) {
	switch name {
	case "", "grammar":
		if len(grammarTokens) == 0 {
			return AlphabetIdent(), nil
		}
		return grammarTokens, nil
	case "ident":
		return AlphabetIdent(), nil
	case "raw":
		return AlphabetRaw(), nil
	default:
		return nil, fmt.Errorf("unknown alphabet %q (expected grammar|ident|raw)", name)
	}
}
