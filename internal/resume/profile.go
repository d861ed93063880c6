package resume

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// LinkItem is a hyperlink found in the document.
type LinkItem struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ExtractedBlock is the text and links read from one BoundingBox.
type ExtractedBlock struct {
	Label string     `json:"label"`
	Text  string     `json:"text"`
	URLs  []LinkItem `json:"urls"`
	Page  int        `json:"page"`
}

type PersonalInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type ExperienceBlock struct {
	Company     *string `json:"company"`
	TextContent string  `json:"text_content"`
}

// Profile is the structured result of parsing one resume.
type Profile struct {
	PersonalInfo     PersonalInfo      `json:"personal_info"`
	Links            []LinkItem        `json:"links"`
	Skills           []string          `json:"skills"`
	ExperienceBlocks []ExperienceBlock `json:"experience_blocks"`
}

// Normalize replaces nil lists with empty ones so the profile always
// serializes lists as JSON arrays.
func (p *Profile) Normalize() {
	if p.Links == nil {
		p.Links = []LinkItem{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.ExperienceBlocks == nil {
		p.ExperienceBlocks = []ExperienceBlock{}
	}
}

// Validate checks the invariants of a finished profile.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile is nil")
	}

	if email := p.PersonalInfo.Email; email != nil {
		if err := ValidateEmail(*email); err != nil {
			return err
		}
	}

	seenURLs := make(map[string]struct{}, len(p.Links))
	for _, link := range p.Links {
		if link.URL == "" {
			return errors.New("link url must not be empty")
		}
		if _, ok := seenURLs[link.URL]; ok {
			return fmt.Errorf("duplicate link url %q", link.URL)
		}
		seenURLs[link.URL] = struct{}{}
	}

	seenSkills := make(map[string]struct{}, len(p.Skills))
	for i, skill := range p.Skills {
		key := strings.ToLower(skill)
		if _, ok := seenSkills[key]; ok {
			return fmt.Errorf("duplicate skill %q", skill)
		}
		seenSkills[key] = struct{}{}
		if i > 0 && p.Skills[i-1] > skill {
			return fmt.Errorf("skills are not sorted: %q before %q", p.Skills[i-1], skill)
		}
	}

	for i, block := range p.ExperienceBlocks {
		if strings.TrimSpace(block.TextContent) == "" {
			return fmt.Errorf("experience block %d has empty text", i)
		}
	}

	return nil
}

// ValidateEmail reports whether s is a bare, syntactically valid address.
func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return fmt.Errorf("invalid email %q: %w", s, err)
	}
	if addr.Address != s {
		return fmt.Errorf("invalid email %q: not a bare address", s)
	}
	return nil
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
