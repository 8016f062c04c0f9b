// Package engine defines the contract between the verification core and a
// parsing engine: edits over a byte buffer, opaque syntax trees that can be
// marked stale and reused across reparses, s-expression rendering, and a
// deadline-bounded parse wrapper for engines that may not terminate.
//
// Назначение: типы Edit/Point/Tree и интерфейс Language, за которым живёт
// внешний парсер. Само ядро верификации никогда не заглядывает внутрь
// движка — только через этот пакет.
//
// Не делает: генерацию правок, загрузку корпусов, сравнение деревьев.
package engine
