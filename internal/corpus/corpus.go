// Package corpus loads test-fixture files into (input, expected-tree,
// attributes) records. Loading is side-effect-free and preserves source
// file order; a malformed fixture fails with the file and line, without
// touching entries from other files.
//
// Формат фикстуры:
//
//	================
//	имя записи
//	:skip | :error | :language(NAME)
//	================
//	---
//	сырые байты входа
//	---
//	(ожидаемое дерево)
//
// Записи в одном файле разделяются строкой из '=' (не короче трёх);
// закрывающая строка заголовка необязательна.
package corpus

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the fixture file extension picked up by directory walks.
const Extension = ".corpus"

// Entry is one immutable corpus record.
type Entry struct {
	Name         string
	Input        []byte
	ExpectedSexp string

	Skip          bool
	ErrorExpected bool
	// Language переопределяет язык записи поверх фильтра запуска.
	Language string

	// File and Line locate the entry header for reporting.
	File string
	Line int
}

// MalformedError reports a fixture parse failure. It is fatal to its file;
// other files continue loading.
type MalformedError struct {
	File   string
	Line   int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s:%d: malformed corpus: %s", e.File, e.Line, e.Reason)
}

// LoadPaths loads every fixture reachable from the given paths. A path may
// be a fixture file or a directory walked for *.corpus files in sorted
// order. Entries keep file order; per-file failures are collected, not
// fatal to the load.
func LoadPaths(paths []string) ([]Entry, []error) {
	var files []string
	var errs []error

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		walkErr := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, Extension) {
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			errs = append(errs, walkErr)
		}
	}
	// сортируем для детерминированного порядка отчётов
	sort.Strings(files)

	var entries []Entry
	for _, f := range files {
		loaded, err := LoadFile(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, loaded...)
	}
	return entries, errs
}

// LoadFile loads all entries of one fixture file.
func LoadFile(path string) ([]Entry, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(path, data)
}

// ParseFixture parses fixture bytes. The name parameter is used only for
// error and entry locations, so virtual fixtures (tests, fuzzing) work too.
func ParseFixture(name string, data []byte) ([]Entry, error) {
	data = dropBOM(data)
	lines := bytes.Split(data, []byte{'\n'})

	var entries []Entry
	i := 0

	// допускаем пустые строки до первого разделителя
	for i < len(lines) && len(bytes.TrimSpace(lines[i])) == 0 {
		i++
	}
	if i >= len(lines) {
		return nil, nil
	}
	if !isDelimiter(lines[i]) {
		return nil, &MalformedError{File: name, Line: i + 1, Reason: "expected '===' entry delimiter"}
	}

	for i < len(lines) {
		if !isDelimiter(lines[i]) {
			return nil, &MalformedError{File: name, Line: i + 1, Reason: "expected '===' entry delimiter"}
		}
		i++ // за разделителем — имя
		if i >= len(lines) || len(bytes.TrimSpace(lines[i])) == 0 {
			return nil, &MalformedError{File: name, Line: i + 1, Reason: "missing entry name"}
		}
		entry := Entry{
			Name: string(bytes.TrimSpace(lines[i])),
			File: name,
			Line: i + 1,
		}
		i++

		// атрибуты — строки вида :flag сразу после имени
		for i < len(lines) && bytes.HasPrefix(bytes.TrimSpace(lines[i]), []byte(":")) {
			if err := applyAttribute(&entry, string(bytes.TrimSpace(lines[i]))); err != nil {
				return nil, &MalformedError{File: name, Line: i + 1, Reason: err.Error()}
			}
			i++
		}

		// закрывающая строка '===' заголовка необязательна
		if i < len(lines) && isDelimiter(lines[i]) {
			i++
		}

		if i >= len(lines) || !isSeparator(lines[i]) {
			return nil, &MalformedError{File: name, Line: i + 1, Reason: "expected '---' before entry input"}
		}
		i++

		// входные байты: строки до следующего '---', без завершающего '\n'
		inputStart := i
		for i < len(lines) && !isSeparator(lines[i]) {
			i++
		}
		if i >= len(lines) {
			return nil, &MalformedError{File: name, Line: inputStart + 1, Reason: "missing '---' after entry input"}
		}
		entry.Input = bytes.Join(lines[inputStart:i], []byte{'\n'})
		i++

		// ожидаемое дерево: до следующего разделителя или конца файла;
		// хвостовые атрибуты после дерева тоже принимаем
		var sexpLines [][]byte
		for i < len(lines) && !isDelimiter(lines[i]) {
			trimmed := bytes.TrimSpace(lines[i])
			if bytes.HasPrefix(trimmed, []byte(":")) {
				if err := applyAttribute(&entry, string(trimmed)); err != nil {
					return nil, &MalformedError{File: name, Line: i + 1, Reason: err.Error()}
				}
			} else {
				sexpLines = append(sexpLines, lines[i])
			}
			i++
		}
		entry.ExpectedSexp = strings.TrimSpace(string(bytes.Join(sexpLines, []byte{'\n'})))
		if entry.ExpectedSexp == "" && !entry.Skip && !entry.ErrorExpected {
			return nil, &MalformedError{File: name, Line: entry.Line, Reason: fmt.Sprintf("entry %q has no expected tree", entry.Name)}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func applyAttribute(e *Entry, attr string) error {
	switch {
	case attr == ":skip":
		e.Skip = true
	case attr == ":error":
		e.ErrorExpected = true
	case strings.HasPrefix(attr, ":language(") && strings.HasSuffix(attr, ")"):
		lang := strings.TrimSuffix(strings.TrimPrefix(attr, ":language("), ")")
		if lang == "" {
			return fmt.Errorf("empty :language() attribute")
		}
		e.Language = lang
	default:
		return fmt.Errorf("unknown attribute %q", attr)
	}
	return nil
}

// isDelimiter: строка только из '=', минимум три.
func isDelimiter(line []byte) bool {
	trimmed := bytes.TrimRight(line, "\r")
	if len(trimmed) < 3 {
		return false
	}
	for _, c := range trimmed {
		if c != '=' {
			return false
		}
	}
	return true
}

// isSeparator: строка ровно "---".
func isSeparator(line []byte) bool {
	return string(bytes.TrimRight(line, "\r")) == "---"
}

func dropBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
