package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"treecheck/internal/corpus"
	"treecheck/internal/observ"
	"treecheck/internal/session"
	"treecheck/internal/textbuf"
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz [flags] paths...",
	Short: "Fuzz incremental reparsing over corpus entries",
	Long: `Fuzz generates a deterministic random edit sequence per (entry, seed) pair
and asserts that incremental reparsing matches a from-scratch parse after
every edit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFuzz,
}

func init() {
	fuzzCmd.Flags().String("language", "expr", "default language for entries without :language()")
	fuzzCmd.Flags().Uint64("seed", 1, "first seed of the range")
	fuzzCmd.Flags().Int("seeds", 0, "seeds per entry (0 = manifest default or 1)")
	fuzzCmd.Flags().Int("edits", 0, "edits per trial (0 = manifest default or 20)")
	fuzzCmd.Flags().Duration("timeout", 0, "per-parse deadline (0 = manifest default or 2s)")
	fuzzCmd.Flags().String("alphabet", "", "insertion alphabet (grammar|ident|raw)")
	fuzzCmd.Flags().String("encoding", "utf-8", "buffer encoding (utf-8|raw)")
	fuzzCmd.Flags().Bool("keep-going", false, "run every seed of an entry even after a failure")
	fuzzCmd.Flags().Bool("check-invariants", false, "structurally validate every incremental tree")
	fuzzCmd.Flags().String("save-failures", "", "directory for replayable .trial.mp repro files")
	fuzzCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func runFuzz(cmd *cobra.Command, args []string) error {
	flags, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	opts, uiValue, err := readFuzzOptions(cmd)
	if err != nil {
		return err
	}
	withUI, err := useProgressUI(uiValue, flags)
	if err != nil {
		return err
	}

	reg, m, err := setupRegistry()
	if err != nil {
		return err
	}
	opts.Resolve = resolverFor(reg)
	opts.Jobs = flags.jobs
	applyManifestFuzzDefaults(&opts, m)

	timer := observ.NewTimer()
	loadPhase := timer.Begin("corpus load")
	entries, loadErrs := corpus.LoadPaths(args)
	timer.End(loadPhase, fmt.Sprintf("%d entries", len(entries)))
	printLoadErrors(loadErrs)
	opts.Entries = entries

	sampler := observ.NewSampler()
	opts.Sampler = sampler

	runPhase := timer.Begin("fuzz matrix")
	var result *session.FuzzResult
	if withUI {
		result, err = runFuzzWithUI(cmd.Context(), entries, opts)
	} else {
		result, err = session.RunFuzz(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}
	timer.End(runPhase, fmt.Sprintf("%d trials", result.Trials))

	printFailures(flags, result.Failures, result.Passed, result.Failed, result.SkippedEntries)
	for _, path := range result.SavedTrials {
		fmt.Printf("saved repro: %s\n", path)
	}
	if flags.timings {
		fmt.Fprint(os.Stderr, timer.Summary())
		fmt.Fprint(os.Stderr, sampler.Summary())
	}

	if result.Failed > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d fuzz trials failed", result.Failed)
	}
	return nil
}

func readFuzzOptions(cmd *cobra.Command) (session.FuzzOptions, string, error) {
	var opts session.FuzzOptions

	language, err := cmd.Flags().GetString("language")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get language flag: %w", err)
	}
	seed, err := cmd.Flags().GetUint64("seed")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get seed flag: %w", err)
	}
	seeds, err := cmd.Flags().GetInt("seeds")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get seeds flag: %w", err)
	}
	edits, err := cmd.Flags().GetInt("edits")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get edits flag: %w", err)
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get timeout flag: %w", err)
	}
	alphabet, err := cmd.Flags().GetString("alphabet")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get alphabet flag: %w", err)
	}
	encodingValue, err := cmd.Flags().GetString("encoding")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get encoding flag: %w", err)
	}
	keepGoing, err := cmd.Flags().GetBool("keep-going")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get keep-going flag: %w", err)
	}
	checkInvariants, err := cmd.Flags().GetBool("check-invariants")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get check-invariants flag: %w", err)
	}
	saveDir, err := cmd.Flags().GetString("save-failures")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get save-failures flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return opts, "", fmt.Errorf("failed to get ui flag: %w", err)
	}
	encoding, err := textbuf.EncodingFromString(encodingValue)
	if err != nil {
		return opts, "", err
	}

	opts = session.FuzzOptions{
		Language:        language,
		SeedStart:       seed,
		SeedCount:       seeds,
		EditCount:       edits,
		PerEditTimeout:  timeout,
		Alphabet:        alphabet,
		Encoding:        encoding,
		KeepGoing:       keepGoing,
		CheckInvariants: checkInvariants,
		SaveDir:         saveDir,
	}
	return opts, uiValue, nil
}

// applyManifestFuzzDefaults fills unset knobs from treecheck.toml. Flags
// the user set explicitly always win.
func applyManifestFuzzDefaults(opts *session.FuzzOptions, m *manifest) {
	if m == nil {
		return
	}
	cfg := m.Config.Fuzz
	if opts.SeedCount <= 0 && cfg.Seeds > 0 {
		opts.SeedCount = cfg.Seeds
	}
	if opts.EditCount <= 0 && cfg.Edits > 0 {
		opts.EditCount = cfg.Edits
	}
	if opts.PerEditTimeout <= 0 {
		opts.PerEditTimeout = cfg.timeout()
	}
	if opts.Alphabet == "" {
		opts.Alphabet = cfg.Alphabet
	}
}
