package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/arie/internal/logger"
	"github.com/spigell/arie/internal/pipeline"
)

// bootstrap holds what every pipeline-running command needs.
type bootstrap struct {
	config  *Config
	logger  *zap.Logger
	service *pipeline.Service
	close   func()
}

func askKeyFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("ask-key", false, "prompt for the Gemini API key instead of reading it from a file")
}

// prepare builds the logger, config and a pipeline service with workers
// pipelines. Startup failures are fatal.
func prepare(ctx context.Context, cmd *cobra.Command, workers int) *bootstrap {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	lg.Info("starting arie", zap.String("version", version), zap.String("command", cmd.Name()))
	lg.Debug("effective config", zap.Any("config", redacted(config)))

	var promptedKey string
	if ask, _ := cmd.Flags().GetBool("ask-key"); ask {
		promptedKey, err = promptKey()
		if err != nil {
			lg.Fatal("reading gemini api key", zap.Error(err))
		}
	}

	b, err := newBuilder(config, promptedKey, lg)
	if err != nil {
		lg.Fatal(startupFailure(err), zap.Error(err))
	}

	pool, err := pipeline.NewPool(workers, func(worker int) (*pipeline.Pipeline, error) {
		return b.Pipeline(ctx, worker)
	})
	if err != nil {
		lg.Fatal(startupFailure(err), zap.Error(err))
	}

	cache, err := openCache(ctx, config.Cache, lg)
	if err != nil {
		lg.Fatal("opening profile cache", zap.Error(err))
	}

	boot := &bootstrap{config: config, logger: lg, close: func() {}}
	if cache != nil {
		boot.service = pipeline.NewService(pool, cache, lg)
		boot.close = func() {
			if err := cache.Close(); err != nil {
				lg.Warn("closing profile cache", zap.Error(err))
			}
		}
	} else {
		boot.service = pipeline.NewService(pool, nil, lg)
	}

	lg.Info("pipelines ready",
		zap.Int("workers", pool.Size()),
		zap.String("layout", config.Layout.Provider),
		zap.Bool("ocr", config.OCR.Enabled),
		zap.Bool("cache", cache != nil),
	)

	return boot
}

// startupFailure names a failed pipeline construction for the log.
func startupFailure(err error) string {
	if pipeline.IsModelUnavailable(err) {
		return "model unavailable"
	}
	return "initializing pipelines"
}

func promptKey() (string, error) {
	p := promptui.Prompt{
		Label: "Gemini API key",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) == 0 {
				return fmt.Errorf("key must not be empty")
			}
			return nil
		},
	}
	return p.Run()
}

// redacted returns a copy of cfg safe to log.
func redacted(cfg *Config) Config {
	out := *cfg
	if cfg.NER != nil && cfg.NER.Gemini != nil && cfg.NER.Gemini.APIKey != "" {
		ner := *cfg.NER
		gem := *cfg.NER.Gemini
		gem.APIKey = "***"
		ner.Gemini = &gem
		out.NER = &ner
	}
	return out
}
