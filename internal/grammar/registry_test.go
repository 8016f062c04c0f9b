package grammar

import (
	"strings"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"expr", "list"} {
		lang, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if lang.Name() != name {
			t.Fatalf("Lookup(%q).Name() = %q", name, lang.Name())
		}
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "expr" || names[1] != "list" {
		t.Fatalf("Names() = %v, want sorted [expr list]", names)
	}
}

func TestRegistryLookupSuggestsClosestName(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("expt")
	if err == nil {
		t.Fatal("unknown language accepted")
	}
	if !strings.Contains(err.Error(), `did you mean "expr"`) {
		t.Fatalf("error without suggestion: %v", err)
	}

	// совсем далёкое имя — без подсказки
	_, err = reg.Lookup("javascript")
	if err == nil {
		t.Fatal("unknown language accepted")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Fatalf("noise suggestion for a distant name: %v", err)
	}
}

func TestRegistryOverrideReplacesAlphabetOnly(t *testing.T) {
	reg := NewRegistry()
	base, err := reg.Lookup("expr")
	if err != nil {
		t.Fatal(err)
	}

	custom := []string{"q", "w"}
	reg.Register(Override(base, custom))

	lang, err := reg.Lookup("expr")
	if err != nil {
		t.Fatal(err)
	}
	got := lang.Alphabet()
	if len(got) != 2 || got[0] != "q" || got[1] != "w" {
		t.Fatalf("overridden alphabet = %v", got)
	}
	if lang.Name() != "expr" {
		t.Fatalf("override changed the name to %q", lang.Name())
	}

	// разбор не затронут
	if got := parseSexp(t, lang, "a + b"); got != "(source_file (expression_statement (binary_expression (identifier) (identifier))))" {
		t.Fatalf("override changed parsing: %s", got)
	}
}
