package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/league-vision/internal/config"
	"github.com/GriffinCanCode/league-vision/internal/vocab"
)

func newMatchCmd() *cobra.Command {
	var entries []string

	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Match recognized text against a vocabulary",
		Long: "Match runs the fuzzy vocabulary matcher. Without --vocab the stash tabs\n" +
			"from the vision config are used.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(entries) == 0 {
				cfg := config.Load()
				entries = loadStore(cfg.VisionConfig, setupLogger(cfg)).Snapshot().Vision.StashTabs
			}
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			entry, ok := vocab.Match(text, entries)
			if !ok {
				fmt.Fprintf(out, "no match for %q among %d entries\n", text, len(entries))
				return nil
			}
			fmt.Fprintln(out, entry)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&entries, "vocab", nil, "vocabulary entries (repeat or comma-separate)")
	return cmd
}
