package ai

import (
	"context"
	"strings"
)

// Entity labels follow the OntoNotes scheme used by common NER models.
const (
	LabelPerson = "PERSON"
	LabelOrg    = "ORG"
)

// Entity is a span of text tagged with a semantic category.
type Entity struct {
	Text  string `mapstructure:"text" json:"text"`
	Label string `mapstructure:"label" json:"label"`
}

// Recognizer tags entities in text. Entities are returned in the order the
// model reports them.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// First returns the text of the first entity carrying label.
func First(entities []Entity, label string) (string, bool) {
	for _, entity := range entities {
		if entity.Label == label && strings.TrimSpace(entity.Text) != "" {
			return strings.TrimSpace(entity.Text), true
		}
	}
	return "", false
}

var labelAliases = map[string]string{
	"PER":          LabelPerson,
	"PERSON":       LabelPerson,
	"PEOPLE":       LabelPerson,
	"NAME":         LabelPerson,
	"ORG":          LabelOrg,
	"ORGANIZATION": LabelOrg,
	"ORGANISATION": LabelOrg,
	"COMPANY":      LabelOrg,
}

// NormalizeLabel maps common label spellings onto the canonical tags.
func NormalizeLabel(label string) string {
	upper := strings.ToUpper(strings.TrimSpace(label))
	if canonical, ok := labelAliases[upper]; ok {
		return canonical
	}
	return upper
}
