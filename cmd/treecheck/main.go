package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"treecheck/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "treecheck",
	Short: "Parser correctness harness",
	Long:  `Treecheck verifies parsers against corpus fixtures and fuzzes their incremental reparse paths`,
}

// main registers subcommands and persistent flags, then executes the root
// command. If command execution returns an error, the process exits with
// status code 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	// Добавляем команды
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(fuzzCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(minimizeCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("jobs", 0, "worker count (0 = GOMAXPROCS)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
