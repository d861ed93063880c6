// Package profile turns extracted blocks into a structured resume profile.
package profile

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/arie/internal/ai"
	"github.com/spigell/arie/internal/resume"
)

var (
	emailRe = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d \t\-().]{6,}\d`)
)

const minPhoneDigits = 8

// DefaultBodyLabels are the layout labels whose blocks count as experience
// content.
var DefaultBodyLabels = []string{"text", "list_item", "paragraph", "caption", "footnote", "formula"}

// Config controls the parser vocabulary.
type Config struct {
	SkillsFile string
	BodyLabels []string
}

// Parser builds profiles. The recognizer is the only model it talks to.
type Parser struct {
	recognizer ai.Recognizer
	skills     []string
	bodyLabels map[string]struct{}
	logger     *zap.Logger
}

func New(cfg Config, recognizer ai.Recognizer, logger *zap.Logger) (*Parser, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("entity recognizer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	skills, err := LoadVocabulary(cfg.SkillsFile)
	if err != nil {
		return nil, err
	}

	labels := cfg.BodyLabels
	if len(labels) == 0 {
		labels = DefaultBodyLabels
	}
	body := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if label = strings.ToLower(strings.TrimSpace(label)); label != "" {
			body[label] = struct{}{}
		}
	}

	return &Parser{
		recognizer: recognizer,
		skills:     skills,
		bodyLabels: body,
		logger:     logger,
	}, nil
}

// Parse builds the profile of one document. Any recognizer failure fails the
// whole parse.
func (p *Parser) Parse(ctx context.Context, blocks []resume.ExtractedBlock) (*resume.Profile, error) {
	fullText := joinTexts(blocks)

	entities, err := p.recognizer.Recognize(ctx, fullText)
	if err != nil {
		return nil, fmt.Errorf("recognize entities: %w", err)
	}

	name, _ := ai.First(entities, ai.LabelPerson)

	experience, err := p.experience(ctx, blocks)
	if err != nil {
		return nil, err
	}

	profile := &resume.Profile{
		PersonalInfo: resume.PersonalInfo{
			Name:  resume.StringPtr(name),
			Email: resume.StringPtr(FindEmail(fullText)),
			Phone: resume.StringPtr(FindPhone(fullText)),
		},
		Links:            CollectLinks(blocks),
		Skills:           MatchSkills(fullText, p.skills),
		ExperienceBlocks: experience,
	}
	profile.Normalize()

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	p.logger.Debug("parsed profile",
		zap.Int("entities", len(entities)),
		zap.Int("links", len(profile.Links)),
		zap.Int("skills", len(profile.Skills)),
		zap.Int("experience_blocks", len(profile.ExperienceBlocks)),
	)

	return profile, nil
}

func (p *Parser) experience(ctx context.Context, blocks []resume.ExtractedBlock) ([]resume.ExperienceBlock, error) {
	experience := make([]resume.ExperienceBlock, 0)
	for i, block := range blocks {
		if _, ok := p.bodyLabels[strings.ToLower(block.Label)]; !ok {
			continue
		}
		if strings.TrimSpace(block.Text) == "" {
			continue
		}

		entities, err := p.recognizer.Recognize(ctx, block.Text)
		if err != nil {
			return nil, fmt.Errorf("recognize entities in block %d: %w", i, err)
		}
		company, _ := ai.First(entities, ai.LabelOrg)

		experience = append(experience, resume.ExperienceBlock{
			Company:     resume.StringPtr(company),
			TextContent: block.Text,
		})
	}
	return experience, nil
}

func joinTexts(blocks []resume.ExtractedBlock) string {
	texts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// FindEmail returns the first email-looking token in text.
func FindEmail(text string) string {
	return emailRe.FindString(text)
}

// FindPhone returns the first phone-looking run in text with enough digits.
func FindPhone(text string) string {
	for _, candidate := range phoneRe.FindAllString(text, -1) {
		if countDigits(candidate) >= minPhoneDigits {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// CollectLinks merges block links, keeping the first occurrence of each URL.
func CollectLinks(blocks []resume.ExtractedBlock) []resume.LinkItem {
	links := make([]resume.LinkItem, 0)
	seen := make(map[string]struct{})
	for _, block := range blocks {
		for _, link := range block.URLs {
			if link.URL == "" {
				continue
			}
			if _, ok := seen[link.URL]; ok {
				continue
			}
			seen[link.URL] = struct{}{}
			links = append(links, link)
		}
	}
	return links
}

// MatchSkills returns the vocabulary entries found in text, sorted. The
// vocabulary is expected to be lowercase and deduplicated.
func MatchSkills(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0)
	seen := make(map[string]struct{})
	for _, skill := range vocabulary {
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		if strings.Contains(lower, key) {
			seen[key] = struct{}{}
			found = append(found, key)
		}
	}
	sort.Strings(found)
	return found
}
