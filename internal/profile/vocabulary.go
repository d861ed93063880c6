package profile

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

type vocabularyFile struct {
	Skills []string `yaml:"skills"`
}

// LoadVocabulary reads the skills list from path, or the built-in list when
// path is empty. Entries are lowercased and deduplicated.
func LoadVocabulary(path string) ([]string, error) {
	data := defaultVocabulary
	if path = strings.TrimSpace(path); path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading skills file %q: %w", path, err)
		}
	}

	return parseVocabulary(data)
}

func parseVocabulary(data []byte) ([]string, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse skills vocabulary: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Skills))
	skills := make([]string, 0, len(file.Skills))
	for _, skill := range file.Skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		skills = append(skills, skill)
	}

	if len(skills) == 0 {
		return nil, fmt.Errorf("skills vocabulary is empty")
	}

	sort.Strings(skills)
	return skills, nil
}
