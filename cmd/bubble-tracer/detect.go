package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	disimaging "github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/pipeline"
)

var (
	detectPage       int
	detectDimensions string
	detectOverlay    string
	detectNoValidate bool
)

var detectCmd = &cobra.Command{
	Use:   "detect <drawing>",
	Short: "Detect bubbles on one page and print the result document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().IntVar(&detectPage, "page", 1, "1-based page number for PDFs")
	detectCmd.Flags().StringVar(&detectDimensions, "dimensions", "", "YAML or JSON file mapping balloon numbers to table dimensions")
	detectCmd.Flags().StringVar(&detectOverlay, "overlay", "", "Write a debug overlay PNG to this path")
	detectCmd.Flags().BoolVar(&detectNoValidate, "no-validate", false, "Skip the vision validator")
	rootCmd.AddCommand(detectCmd)
}

// loadDimensions reads a balloon number to dimension map. YAML is a
// superset of JSON, so both formats parse.
func loadDimensions(path string) (map[int]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dimensions: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dimensions %s: %w", path, err)
	}
	dims := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("dimensions %s: key %q is not a balloon number", path, k)
		}
		dims[n] = v
	}
	return dims, nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if detectPage < 1 {
		return fmt.Errorf("--page must be at least 1, got %d", detectPage)
	}

	dims, err := loadDimensions(detectDimensions)
	if err != nil {
		return err
	}

	reader, validator, closeValidator, err := collaborators(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeValidator()

	cache := imaging.NewPageCache(cfg.Color)
	opts := []pipeline.Option{pipeline.WithCache(cache)}
	if reader != nil {
		opts = append(opts, pipeline.WithReader(reader))
	}
	if validator != nil && !detectNoValidate {
		opts = append(opts, pipeline.WithValidator(validator))
	}

	in := pipeline.Input{Path: args[0], Page: detectPage - 1, Dimensions: dims}
	res, runErr := pipeline.New(cfg, log, opts...).Run(ctx, in)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if detectOverlay != "" {
		page, err := cache.Load(in.Path, in.Page, cfg.Pipeline.DPI)
		if err != nil {
			return err
		}
		out := imaging.DrawOverlay(page.Color, res.Marks(), imaging.OverlayOptions{})
		if err := disimaging.Save(out, detectOverlay); err != nil {
			return fmt.Errorf("failed to write overlay: %w", err)
		}
		log.WithField("path", detectOverlay).Info("Overlay written")
	}
	return nil
}
