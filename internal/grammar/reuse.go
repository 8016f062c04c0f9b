package grammar

import "treecheck/internal/engine"

// reusableTopLevel returns clones of the previous tree's top-level nodes
// that are provably untouched by the edits recorded on it, plus the byte
// offset at which a reparse must resume.
//
// Правило консервативное: узел переиспользуется, только если он не помечен
// stale и заканчивается строго до первой правки. Узел, чей конец совпадает
// с границей правки, перечитывается заново — вставка встык могла склеить
// его последний токен со вставленным текстом.
//
// sealed дополнительно отсекает узлы, чья протяжённость не ограничена их
// собственными байтами: оператор без терминатора в свежем парсе дорастает
// до следующего терминатора, даже если правка лежит дальше его конца.
// nil означает, что все узлы грамматики самоограничены.
func reusableTopLevel(prev *engine.Tree, src []byte, sealed func(*engine.Node) bool) ([]*engine.Node, uint32) {
	if prev == nil || prev.Root == nil {
		return nil, 0
	}
	dirtyStart, dirty := prev.DirtyStart()
	if !dirty {
		// дерево без зарегистрированных правок — переиспользовать нечего
		return nil, 0
	}
	srcLen := uint32(len(src))

	var out []*engine.Node
	var resume uint32
	for _, top := range prev.Root.Children {
		if top.Stale() || top.EndByte >= dirtyStart || top.EndByte > srcLen {
			break
		}
		if sealed != nil && !sealed(top) {
			break
		}
		out = append(out, top.Clone())
		resume = top.EndByte
	}
	return out, resume
}
