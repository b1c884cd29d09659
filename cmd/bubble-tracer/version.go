package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/bubble-tracer/internal/ocr"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bubble-tracer %s\n", Version)
		fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Tesseract:  %s\n", ocr.NewTesseract("").Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
