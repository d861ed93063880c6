package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/arie/internal/ai"
	"github.com/spigell/arie/internal/ai/gemini"
	"github.com/spigell/arie/internal/ai/language"
	"github.com/spigell/arie/internal/extract"
	"github.com/spigell/arie/internal/layout"
	"github.com/spigell/arie/internal/logger"
	"github.com/spigell/arie/internal/ocr"
	"github.com/spigell/arie/internal/pipeline"
	"github.com/spigell/arie/internal/profile"
	"github.com/spigell/arie/internal/secrets"
	"github.com/spigell/arie/internal/store"
)

const geminiKeyHint = "set ner.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY, or pass --ask-key"

// builder constructs pipelines that share configuration and secrets but
// own their model handles.
type builder struct {
	cfg       *Config
	geminiKey string
	language  *language.Detector
	logger    *zap.Logger
}

func newBuilder(cfg *Config, promptedKey string, log *zap.Logger) (*builder, error) {
	b := &builder{cfg: cfg, logger: log}

	provider := strings.ToLower(strings.TrimSpace(cfg.NER.Provider))
	if provider != "" && provider != "gemini" {
		return nil, pipeline.ModelUnavailable("ner", fmt.Errorf("unsupported ner provider: %s", cfg.NER.Provider))
	}

	inline := cfg.NER.Gemini.APIKey
	if promptedKey != "" {
		inline = promptedKey
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: inline,
		File:  cfg.NER.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, pipeline.ModelUnavailable("ner", fmt.Errorf("%w (%s)", err, geminiKeyHint))
	}
	b.geminiKey = key
	b.language = language.New()

	return b, nil
}

// Pipeline builds the components of one worker.
func (b *builder) Pipeline(ctx context.Context, worker int) (*pipeline.Pipeline, error) {
	log := b.logger.With(zap.Int("worker", worker))

	detector, err := b.detector(log)
	if err != nil {
		return nil, err
	}

	fallback, err := b.ocrFallback(log)
	if err != nil {
		return nil, err
	}

	recognizer, err := b.recognizer(ctx, log)
	if err != nil {
		return nil, err
	}

	parser, err := profile.New(profile.Config{
		SkillsFile: b.cfg.Parser.SkillsFile,
		BodyLabels: b.cfg.Parser.BodyLabels,
	}, recognizer, logger.ForPhase(log, pipeline.PhaseParse))
	if err != nil {
		return nil, err
	}

	extractor := extract.New(fallback, logger.ForPhase(log, pipeline.PhaseExtract))

	return pipeline.New(detector, extractor, parser, log), nil
}

func (b *builder) detector(log *zap.Logger) (pipeline.LayoutDetector, error) {
	cfg := b.cfg.Layout
	log = logger.ForPhase(log, pipeline.PhaseLayout)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", layout.ProviderTabula:
		return layout.NewTabula(log), nil
	case layout.ProviderDocling:
		var key string
		if cfg.Docling.APIKeyFile != "" {
			var err error
			key, err = secrets.Load(secrets.Source{Name: "docling api key", File: cfg.Docling.APIKeyFile})
			if err != nil {
				return nil, pipeline.ModelUnavailable("layout", err)
			}
		}
		return layout.NewDocling(log, cfg.Docling.URL, key, cfg.Docling.Timeout), nil
	default:
		return nil, pipeline.ModelUnavailable("layout", fmt.Errorf("unsupported layout provider: %s", cfg.Provider))
	}
}

// ocrFallback returns nil when OCR is disabled or not compiled in.
func (b *builder) ocrFallback(log *zap.Logger) (extract.OCR, error) {
	cfg := b.cfg.OCR
	if !cfg.Enabled {
		return nil, nil
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider != "" && provider != ocr.ProviderTesseract {
		return nil, pipeline.ModelUnavailable("ocr", fmt.Errorf("unsupported ocr provider: %s", cfg.Provider))
	}

	engine, err := ocr.NewTesseract(cfg.Languages)
	if errors.Is(err, ocr.ErrOCRNotEnabled) {
		log.Warn("ocr fallback disabled", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, pipeline.ModelUnavailable("ocr", err)
	}

	rasterizer, err := ocr.NewPoppler(cfg.Pdftoppm)
	if err != nil {
		return nil, pipeline.ModelUnavailable("ocr", err)
	}

	ocrLog := logger.WithCommonFields(logger.ForPhase(log, "ocr"), ocr.ProviderTesseract, strings.Join(cfg.Languages, "+"))
	fallback := ocr.New(rasterizer, engine, cfg.Scale, ocrLog)
	ocrLog.Debug("ocr fallback ready", zap.Float64("scale", fallback.Scale()))
	return fallback, nil
}

func (b *builder) recognizer(ctx context.Context, log *zap.Logger) (ai.Recognizer, error) {
	cfg := b.cfg.NER.Gemini

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Model).With(
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, b.geminiKey, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, pipeline.ModelUnavailable("ner", err)
	}

	return gemini.NewRecognizer(generator, b.language, cfg.MaxLogLength, genLogger), nil
}

// openCache returns nil when caching is disabled.
func openCache(ctx context.Context, cfg *CacheConfig, log *zap.Logger) (*store.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	s, err := store.Open(cfg.Path)
	if err != nil {
		return nil, err
	}

	entries, err := s.Count(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("count cached profiles: %w", err)
	}

	log.Info("profile cache enabled", zap.String("path", s.Path()), zap.Int("entries", entries))
	return s, nil
}
