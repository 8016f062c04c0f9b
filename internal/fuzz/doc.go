// Package fuzztests houses Go fuzz harnesses that exercise the verification
// core on arbitrary inputs: the fixture loader, the edit generator and the
// built-in grammars. Its goal is to smoke test robustness and guard against
// panics, hangs and incremental/fresh divergence.
//
// Назначение: прогонять произвольные байты через загрузчик корпуса и
// грамматики, а произвольные семена — через генератор правок с проверкой
// эквивалентности инкрементального разбора.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/corpus, internal/editgen, internal/engine,
// internal/grammar, internal/sexp, internal/textbuf.

package fuzztests
