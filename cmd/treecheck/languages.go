package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List registered languages",
	RunE:  runLanguages,
}

func init() {
	languagesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	reg, _, err := setupRegistry()
	if err != nil {
		return err
	}
	names := reg.Names()

	switch format {
	case "pretty":
		for _, name := range names {
			lang, err := reg.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s alphabet: %d tokens\n", name, len(lang.Alphabet()))
		}
		return nil
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(names)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
