package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/dimension"
)

var matchCmd = &cobra.Command{
	Use:   "match <a> <b>",
	Short: "Score how closely two dimension strings agree",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	na, nb := dimension.NormalizeDimension(a), dimension.NormalizeDimension(b)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "confidence: %.4f\n", dimension.ConfidenceScore(a, b))
	fmt.Fprintf(out, "similar:    %v\n", dimension.Similar(a, b, cfg.Matcher.SimilarThreshold))
	fmt.Fprintf(out, "normalized: %q vs %q (%.4f)\n", na, nb, dimension.ConfidenceScore(na, nb))
	return nil
}
