package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/logging"
	"github.com/ironsheep/bubble-tracer/internal/ocr"
	"github.com/ironsheep/bubble-tracer/internal/pipeline"
	"github.com/ironsheep/bubble-tracer/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	noOCR      bool
)

var rootCmd = &cobra.Command{
	Use:   "bubble-tracer",
	Short: "Find balloon callouts on engineering drawings and trace their leaders",
	Long: `bubble-tracer locates numbered blue balloon callouts on a drawing, works out
which way each leader points and checks the referenced dimension against the
drawing's dimension table with a vision model.

Environment variables:
  BUBBLE_TRACER_LOG_LEVEL=debug   Log level (logs always go to stderr)
  BUBBLE_TRACER_WORKERS, BUBBLE_TRACER_DPI
  VISION_PROVIDER (gemini|openai|azure), VISION_MODEL, VISION_API_KEY, VISION_ENDPOINT
  TESSDATA_PREFIX                 Tesseract language data directory`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overriding the default thresholds")
	rootCmd.PersistentFlags().BoolVar(&noOCR, "no-ocr", false, "Number bubbles in reading order instead of reading them with Tesseract")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and the shared logger.
func setup() (config.Config, *logrus.Logger, error) {
	log := logging.FromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}

// collaborators builds the OCR reader and the vision validator selected by
// cfg. A missing validator configuration is not an error. The returned
// closer releases the validator's connection.
func collaborators(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (pipeline.NumberReader, vision.Validator, func(), error) {
	var reader pipeline.NumberReader
	if !noOCR {
		reader = ocr.NewReader(ocr.NewTesseract(cfg.Pipeline.OCRLanguage), cfg.Color, cfg.Pipeline.BubbleCropPad)
	}

	v, err := vision.New(ctx, cfg.Vision)
	switch {
	case errors.Is(err, vision.ErrNotConfigured):
		log.Info("No vision provider configured, dimensions will be reported table-only")
		return reader, nil, func() {}, nil
	case err != nil:
		return nil, nil, nil, fmt.Errorf("vision validator: %w", err)
	}
	log.WithFields(logrus.Fields{"provider": cfg.Vision.Provider, "model": cfg.Vision.Model}).Info("Vision validator ready")

	closer := func() {}
	if c, ok := v.(io.Closer); ok {
		closer = func() {
			if err := c.Close(); err != nil {
				log.WithError(err).Warn("Failed to close vision client")
			}
		}
	}
	return reader, v, closer, nil
}
