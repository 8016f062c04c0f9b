package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"treecheck/internal/corpus"
	"treecheck/internal/observ"
	"treecheck/internal/session"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus [flags] paths...",
	Short: "Check corpus fixtures against expected trees",
	Long:  `Corpus parses every fixture entry and compares the rendered tree with the expected one`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCorpus,
}

func init() {
	corpusCmd.Flags().String("language", "expr", "default language for entries without :language()")
	corpusCmd.Flags().Duration("timeout", 5*time.Second, "per-entry parse deadline")
	corpusCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func runCorpus(cmd *cobra.Command, args []string) error {
	flags, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	language, err := cmd.Flags().GetString("language")
	if err != nil {
		return fmt.Errorf("failed to get language flag: %w", err)
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return fmt.Errorf("failed to get timeout flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	withUI, err := useProgressUI(uiValue, flags)
	if err != nil {
		return err
	}

	reg, _, err := setupRegistry()
	if err != nil {
		return err
	}

	timer := observ.NewTimer()
	loadPhase := timer.Begin("corpus load")
	entries, loadErrs := corpus.LoadPaths(args)
	timer.End(loadPhase, fmt.Sprintf("%d entries", len(entries)))
	printLoadErrors(loadErrs)

	opts := session.CorpusOptions{
		Entries:  entries,
		Language: language,
		Resolve:  resolverFor(reg),
		Timeout:  timeout,
		Jobs:     flags.jobs,
	}

	runPhase := timer.Begin("corpus run")
	var result *session.CorpusResult
	if withUI {
		result, err = runCorpusWithUI(cmd.Context(), entries, opts)
	} else {
		result, err = session.RunCorpus(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}
	timer.End(runPhase, fmt.Sprintf("%d passed, %d failed", result.Passed, result.Failed))

	printFailures(flags, result.Failures, result.Passed, result.Failed, result.Skipped)
	if flags.timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	if result.Failed > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d corpus entries failed", result.Failed)
	}
	return nil
}
