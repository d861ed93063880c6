package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/arie/internal/ai"
	"github.com/spigell/arie/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

type languageDetector interface {
	Detect(text string) string
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// Recognizer implements ai.Recognizer on top of a Gemini model.
type Recognizer struct {
	generator contentGenerator
	language  languageDetector
	logger    *zap.Logger
	maxLogLen int
}

// NewRecognizer builds a Gemini-backed entity recognizer. language may be nil.
func NewRecognizer(generator contentGenerator, language languageDetector, maxLogLength int, logger *zap.Logger) *Recognizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recognizer{
		generator: generator,
		language:  language,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Recognize returns the entities found in text. Blank text yields no
// entities without calling the model.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]ai.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if r.generator == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	message := buildMessage(text, r.detectLanguage(text))

	r.logger.Debug("gemini ner request",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.String("text_preview", utils.TruncateForLog(utils.OneLine(text), r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini ner response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	entities, err := parseEntities(raw)
	if err != nil {
		return nil, err
	}

	kept := make([]ai.Entity, 0, len(entities))
	for _, entity := range entities {
		if !strings.Contains(text, entity.Text) {
			r.logger.Debug("dropping entity not present in text",
				zap.String("entity", entity.Text),
				zap.String("label", entity.Label),
			)
			continue
		}
		kept = append(kept, entity)
	}

	return kept, nil
}

func (r *Recognizer) detectLanguage(text string) string {
	if r.language == nil {
		return ""
	}
	return r.language.Detect(text)
}

func buildMessage(text, language string) string {
	var b strings.Builder
	if language != "" {
		fmt.Fprintf(&b, "Document language: %s\n\n", language)
	}
	b.WriteString("Text:\n<<<\n")
	b.WriteString(text)
	b.WriteString("\n>>>")
	return b.String()
}

func parseEntities(raw string) ([]ai.Entity, error) {
	cleaned := extractJSON(raw)

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var items any
	switch val := data.(type) {
	case map[string]any:
		items = val["entities"]
	case []any:
		items = val
	default:
		return nil, fmt.Errorf("parse gemini response: unexpected payload type %T", data)
	}

	if items == nil {
		return nil, nil
	}

	var decoded []ai.Entity
	if err := mapstructure.Decode(items, &decoded); err != nil {
		return nil, fmt.Errorf("decode gemini entities: %w", err)
	}

	entities := make([]ai.Entity, 0, len(decoded))
	for _, entity := range decoded {
		entity.Text = strings.TrimSpace(entity.Text)
		entity.Label = ai.NormalizeLabel(entity.Label)
		if entity.Text == "" || entity.Label == "" {
			continue
		}
		entities = append(entities, entity)
	}

	return entities, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
