package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// RenderOpts controls mismatch rendering.
type RenderOpts struct {
	Color bool
	// MaxHistory ограничивает число печатаемых правок; 0 — печатать все.
	MaxHistory int
}

// Render writes one mismatch in the multi-line CLI format: kind and trial
// context first, then the divergence location and both subtrees, then the
// edit history needed to reproduce.
func Render(w io.Writer, m *Mismatch, opts RenderOpts) {
	kindColor := color.New(color.FgRed, color.Bold)
	dimColor := color.New(color.Faint)
	if !opts.Color {
		kindColor.DisableColor()
		dimColor.DisableColor()
	}

	fmt.Fprintf(w, "%s %s/%s", kindColor.Sprint(m.Kind.String()), m.Language, m.Entry)
	if m.Trial != nil {
		fmt.Fprintf(w, " seed=%d", m.Seed)
	}
	if m.EditIndex >= 0 {
		fmt.Fprintf(w, " edit=%d", m.EditIndex)
	}
	fmt.Fprintln(w)

	if m.Reason != "" {
		fmt.Fprintf(w, "  at %s: %s\n", m.Location(), m.Reason)
	}
	if m.Expected != "" || m.Actual != "" {
		fmt.Fprintf(w, "  expected: %s\n", emptyAs(m.Expected, "<no node>"))
		fmt.Fprintf(w, "  actual:   %s\n", emptyAs(m.Actual, "<no node>"))
	}

	if len(m.History) > 0 {
		fmt.Fprintf(w, "  %s\n", dimColor.Sprintf("edit history (%d):", len(m.History)))
		limit := len(m.History)
		if opts.MaxHistory > 0 && limit > opts.MaxHistory {
			limit = opts.MaxHistory
		}
		for i := range limit {
			fmt.Fprintf(w, "    %2d. %s\n", i, m.History[i].String())
		}
		if limit < len(m.History) {
			fmt.Fprintf(w, "    ... %d more\n", len(m.History)-limit)
		}
	}
}

// Summary writes the session tail line: pass/fail/skip counts.
func Summary(w io.Writer, passed, failed, skipped int, useColor bool) {
	okColor := color.New(color.FgGreen, color.Bold)
	failColor := color.New(color.FgRed, color.Bold)
	if !useColor {
		okColor.DisableColor()
		failColor.DisableColor()
	}

	if failed == 0 {
		fmt.Fprintf(w, "%s %d passed", okColor.Sprint("ok"), passed)
	} else {
		fmt.Fprintf(w, "%s %d passed, %d failed", failColor.Sprint("FAIL"), passed, failed)
	}
	if skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", skipped)
	}
	fmt.Fprintln(w)
}

func emptyAs(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
