package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/bubble-tracer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Run the MCP server. It communicates via the MCP protocol over stdin/stdout;
configure it in your MCP client.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	reader, validator, closeValidator, err := collaborators(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeValidator()

	log.Debugf("bubble-tracer %s (built %s, commit %s)", Version, BuildTime, GitCommit)

	srv := server.New(cfg, log, server.Options{Reader: reader, Validator: validator, Version: Version})
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("Server error")
		return err
	}
	return nil
}
