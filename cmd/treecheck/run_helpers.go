package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"treecheck/internal/engine"
	"treecheck/internal/grammar"
	"treecheck/internal/report"
)

// globalFlags are the persistent flags every subcommand reads.
type globalFlags struct {
	useColor bool
	quiet    bool
	timings  bool
	jobs     int
}

func readGlobalFlags(cmd *cobra.Command) (globalFlags, error) {
	flags := cmd.Root().PersistentFlags()

	colorMode, err := flags.GetString("color")
	if err != nil {
		return globalFlags{}, fmt.Errorf("failed to get color flag: %w", err)
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return globalFlags{}, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return globalFlags{}, fmt.Errorf("failed to get timings flag: %w", err)
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return globalFlags{}, fmt.Errorf("failed to get jobs flag: %w", err)
	}

	return globalFlags{
		useColor: colorMode == "on" || (colorMode == "auto" && isTerminal(os.Stdout)),
		quiet:    quiet,
		timings:  timings,
		jobs:     jobs,
	}, nil
}

// setupRegistry loads the nearest treecheck.toml (when present) and builds
// the language registry with its overrides applied.
func setupRegistry() (*grammar.Registry, *manifest, error) {
	m, found, err := loadManifest(".")
	if err != nil {
		return nil, nil, err
	}
	if !found {
		m = nil
	}
	reg, err := newRegistry(m)
	if err != nil {
		return nil, nil, err
	}
	return reg, m, nil
}

func resolverFor(reg *grammar.Registry) func(string) (engine.Language, error) {
	return reg.Lookup
}

// printFailures renders every mismatch followed by the summary line.
func printFailures(flags globalFlags, failures *report.List, passed, failed, skipped int) {
	opts := report.RenderOpts{Color: flags.useColor, MaxHistory: 16}
	for _, m := range failures.Items() {
		report.Render(os.Stdout, m, opts)
		fmt.Println()
	}
	if !flags.quiet || failed > 0 {
		report.Summary(os.Stdout, passed, failed, skipped, flags.useColor)
	}
}

// useProgressUI decides whether the live progress view drives the run:
// "on" forces it, "off" disables it, "auto" enables it on a terminal only,
// и никогда при --quiet.
func useProgressUI(value string, flags globalFlags) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return !flags.quiet && isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func printLoadErrors(errs []error) {
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}
