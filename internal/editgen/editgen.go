// Package editgen produces randomized, seeded sequences of text edits:
// insertions, deletions and replacements at random byte offsets. The same
// seed over the same starting buffer always yields the identical sequence,
// which is what makes fuzz failures replayable.
//
// Назначение: генератор правок для fuzz-трасс. Генератор держит теневую
// копию буфера и применяет правки к ней по ходу генерации, так что смещения
// каждой следующей правки согласованы с каноническим порядком применения.
package editgen

import (
	"math/rand/v2"

	"treecheck/internal/engine"
	"treecheck/internal/textbuf"
)

// maxEditSpan bounds how many bytes one delete/replace may remove.
const maxEditSpan = 16

// maxInsertTokens bounds how many alphabet entries one insertion joins.
const maxInsertTokens = 3

// Generator is an explicit seeded source of edits. Not safe for concurrent
// use; parallel trials each build their own.
type Generator struct {
	rng      *rand.Rand
	alphabet []string
}

// New returns a generator for the given seed and insertion alphabet. An
// empty alphabet falls back to single identifier characters.
func New(seed uint64, alphabet []string) *Generator {
	if len(alphabet) == 0 {
		alphabet = AlphabetIdent()
	}
	return &Generator{
		// два независимых слова состояния из одного seed
		rng:      rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		alphabet: alphabet,
	}
}

// Generate produces count edits against a buffer that starts as src.
// Subsequent edits are positioned against the buffer with all prior edits
// applied; point fields are fully populated. The shadow buffer guarantees
// offsets never go out of bounds and, in UTF-8 mode, never split a rune.
func (g *Generator) Generate(src []byte, enc textbuf.Encoding, count int) []engine.Edit {
	shadow := textbuf.New(src, enc)
	edits := make([]engine.Edit, 0, count)
	for range count {
		edits = append(edits, g.next(shadow))
	}
	return edits
}

func (g *Generator) next(shadow *textbuf.Buffer) engine.Edit {
	n := shadow.Len()

	const (
		kindInsert = iota
		kindDelete
		kindReplace
	)
	kind := kindInsert
	if n > 0 {
		kind = int(g.rng.Uint32N(3))
	}

	switch kind {
	case kindDelete:
		start := g.rng.Uint32N(n)
		span := 1 + g.rng.Uint32N(maxEditSpan)
		return shadow.Splice(start, min(start+span, n), nil)
	case kindReplace:
		start := g.rng.Uint32N(n)
		span := 1 + g.rng.Uint32N(maxEditSpan)
		return shadow.Splice(start, min(start+span, n), g.insertText())
	default:
		start := g.rng.Uint32N(n + 1)
		return shadow.Splice(start, start, g.insertText())
	}
}

func (g *Generator) insertText() []byte {
	tokens := 1 + g.rng.IntN(maxInsertTokens)
	var out []byte
	for range tokens {
		out = append(out, g.alphabet[g.rng.IntN(len(g.alphabet))]...)
	}
	return out
}
