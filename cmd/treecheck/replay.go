package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"treecheck/internal/observ"
	"treecheck/internal/report"
	"treecheck/internal/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay [flags] file" + report.TrialExtension,
	Short: "Re-run a saved failing trial",
	Long:  `Replay regenerates the exact edit sequence of a saved trial and re-verifies it`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var minimizeCmd = &cobra.Command{
	Use:   "minimize [flags] file" + report.TrialExtension,
	Short: "Shrink a failing trial to a shorter repro",
	Long: `Minimize binary-searches the shortest edit prefix of a saved trial that
still reproduces the failure, and writes the smaller trial back out`,
	Args: cobra.ExactArgs(1),
	RunE: runMinimize,
}

func init() {
	replayCmd.Flags().Bool("check-invariants", false, "structurally validate every incremental tree")
	minimizeCmd.Flags().Bool("check-invariants", false, "structurally validate every incremental tree")
	minimizeCmd.Flags().String("out", "", "directory for the minimized trial (default: alongside the input)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	flags, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	checkInvariants, err := cmd.Flags().GetBool("check-invariants")
	if err != nil {
		return fmt.Errorf("failed to get check-invariants flag: %w", err)
	}

	trial, opts, err := loadTrialAndOptions(args[0], checkInvariants)
	if err != nil {
		return err
	}

	mismatch, err := session.ReplayTrial(cmd.Context(), trial, opts)
	if err != nil {
		return err
	}
	if flags.timings && opts.Sampler != nil {
		fmt.Fprint(os.Stderr, opts.Sampler.Summary())
	}

	if mismatch == nil {
		fmt.Printf("trial %s no longer fails\n", trial)
		return nil
	}
	report.Render(os.Stdout, mismatch, report.RenderOpts{Color: flags.useColor, MaxHistory: 16})
	cmd.SilenceUsage = true
	return fmt.Errorf("trial still fails")
}

func runMinimize(cmd *cobra.Command, args []string) error {
	flags, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	checkInvariants, err := cmd.Flags().GetBool("check-invariants")
	if err != nil {
		return fmt.Errorf("failed to get check-invariants flag: %w", err)
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}

	trial, opts, err := loadTrialAndOptions(args[0], checkInvariants)
	if err != nil {
		return err
	}

	mismatch, minimized, err := session.Minimize(cmd.Context(), trial, opts)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}

	report.Render(os.Stdout, mismatch, report.RenderOpts{Color: flags.useColor, MaxHistory: 16})
	fmt.Printf("minimized: %d edits -> %d\n", trial.EditCount, minimized.EditCount)

	if outDir == "" {
		outDir = filepath.Dir(args[0])
	}
	path, err := report.SaveTrial(outDir, minimized)
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", path)
	return nil
}

func loadTrialAndOptions(path string, checkInvariants bool) (*report.Trial, session.TrialOptions, error) {
	trial, err := report.LoadTrial(path)
	if err != nil {
		return nil, session.TrialOptions{}, err
	}
	reg, _, err := setupRegistry()
	if err != nil {
		return nil, session.TrialOptions{}, err
	}
	return trial, session.TrialOptions{
		Resolve:         resolverFor(reg),
		CheckInvariants: checkInvariants,
		Sampler:         observ.NewSampler(),
	}, nil
}
