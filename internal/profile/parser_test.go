package profile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spigell/arie/internal/ai"
	"github.com/spigell/arie/internal/resume"
)

type fakeRecognizer struct {
	byText map[string][]ai.Entity
	err    error
	calls  []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, text string) ([]ai.Entity, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.byText[text], nil
}

func newTestParser(t *testing.T, rec ai.Recognizer) *Parser {
	t.Helper()
	p, err := New(Config{}, rec, nil)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	return p
}

func TestParseEndToEnd(t *testing.T) {
	text := "Jane Doe\njane@example.com\n+1 (555) 123-4567\nPython, Docker"
	rec := &fakeRecognizer{byText: map[string][]ai.Entity{
		text: {{Text: "Jane Doe", Label: ai.LabelPerson}},
	}}

	profile, err := newTestParser(t, rec).Parse(context.Background(), []resume.ExtractedBlock{
		{Label: "text", Text: text, URLs: []resume.LinkItem{}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info := profile.PersonalInfo
	if info.Name == nil || *info.Name != "Jane Doe" {
		t.Fatalf("unexpected name: %v", info.Name)
	}
	if info.Email == nil || *info.Email != "jane@example.com" {
		t.Fatalf("unexpected email: %v", info.Email)
	}
	if info.Phone == nil || *info.Phone != "+1 (555) 123-4567" {
		t.Fatalf("unexpected phone: %v", info.Phone)
	}
	if !slices.Equal(profile.Skills, []string{"docker", "python"}) {
		t.Fatalf("unexpected skills: %v", profile.Skills)
	}
	if profile.Links == nil || len(profile.Links) != 0 {
		t.Fatalf("expected empty links, got %#v", profile.Links)
	}

	data, err := json.Marshal(profile)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"links":[]`) {
		t.Fatalf("links must serialize as an array: %s", data)
	}
}

func TestParseCompanyPerBlock(t *testing.T) {
	header := "Jane Doe"
	job := "Backend engineer at Acme Corp, then Globex"
	rec := &fakeRecognizer{byText: map[string][]ai.Entity{
		header + "\n" + job: {
			{Text: "Acme Corp", Label: ai.LabelOrg},
			{Text: "Jane Doe", Label: ai.LabelPerson},
		},
		job: {
			{Text: "Backend", Label: "NORP"},
			{Text: "Acme Corp", Label: ai.LabelOrg},
			{Text: "Globex", Label: ai.LabelOrg},
		},
	}}

	profile, err := newTestParser(t, rec).Parse(context.Background(), []resume.ExtractedBlock{
		{Label: "section_header", Text: header},
		{Label: "Text", Text: job},
		{Label: "picture", Text: ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *profile.PersonalInfo.Name != "Jane Doe" {
		t.Fatalf("name must be the first PERSON entity, got %q", *profile.PersonalInfo.Name)
	}
	if len(profile.ExperienceBlocks) != 1 {
		t.Fatalf("expected one experience block, got %+v", profile.ExperienceBlocks)
	}
	block := profile.ExperienceBlocks[0]
	if block.Company == nil || *block.Company != "Acme Corp" || block.TextContent != job {
		t.Fatalf("unexpected experience block: %+v", block)
	}
	if len(rec.calls) != 2 {
		t.Fatalf("expected full text plus one body block to be recognized, got %q", rec.calls)
	}
}

func TestParseNoEligibleBlocks(t *testing.T) {
	profile, err := newTestParser(t, &fakeRecognizer{}).Parse(context.Background(), []resume.ExtractedBlock{
		{Label: "section_header", Text: "Experience"},
		{Label: "text", Text: "   "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ExperienceBlocks == nil || len(profile.ExperienceBlocks) != 0 {
		t.Fatalf("expected empty experience blocks, got %#v", profile.ExperienceBlocks)
	}
	if profile.PersonalInfo.Name != nil || profile.PersonalInfo.Email != nil || profile.PersonalInfo.Phone != nil {
		t.Fatalf("expected empty personal info, got %+v", profile.PersonalInfo)
	}
}

func TestParseRecognizerFailure(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("model offline")}
	if _, err := newTestParser(t, rec).Parse(context.Background(), []resume.ExtractedBlock{{Label: "text", Text: "x"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseCustomBodyLabels(t *testing.T) {
	p, err := New(Config{BodyLabels: []string{" Section_Header "}}, &fakeRecognizer{}, nil)
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}

	profile, err := p.Parse(context.Background(), []resume.ExtractedBlock{
		{Label: "section_header", Text: "Experience"},
		{Label: "text", Text: "body"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profile.ExperienceBlocks) != 1 || profile.ExperienceBlocks[0].TextContent != "Experience" {
		t.Fatalf("unexpected experience blocks: %+v", profile.ExperienceBlocks)
	}
}

func TestNewRequiresRecognizer(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("expected error without recognizer")
	}
}

func TestCollectLinksDedupesFirstSeen(t *testing.T) {
	blocks := []resume.ExtractedBlock{
		{URLs: []resume.LinkItem{{Label: "GitHub", URL: "https://github.com/jane"}}},
		{URLs: []resume.LinkItem{
			{Label: "LinkedIn", URL: "https://linkedin.com/in/jane"},
			{Label: "Code", URL: "https://github.com/jane"},
		}},
		{URLs: []resume.LinkItem{{Label: "blog.example.com", URL: "https://blog.example.com"}}},
	}

	got := CollectLinks(blocks)
	want := []resume.LinkItem{
		{Label: "GitHub", URL: "https://github.com/jane"},
		{Label: "LinkedIn", URL: "https://linkedin.com/in/jane"},
		{Label: "blog.example.com", URL: "https://blog.example.com"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected links:\n got %+v\nwant %+v", got, want)
	}
}

func TestMatchSkills(t *testing.T) {
	vocabulary := []string{"python", "docker", "Go", "go", "machine learning", "rust"}

	got := MatchSkills("PYTHON and Docker; Machine Learning with GO", vocabulary)
	want := []string{"docker", "go", "machine learning", "python"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected skills: %v", got)
	}

	if got := MatchSkills("", vocabulary); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil skills, got %#v", got)
	}
}

func TestFindPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{text: "Call +1 (555) 123-4567 today", want: "+1 (555) 123-4567"},
		{text: "tel: 8 800 555 35 35", want: "8 800 555 35 35"},
		{text: "room 12-34-56 then +44 20 7946 0958", want: "+44 20 7946 0958"},
		{text: "born 1990", want: ""},
		{text: "+49 30\n1234 5678", want: "1234 5678"},
	}

	for _, tt := range tests {
		if got := FindPhone(tt.text); got != tt.want {
			t.Fatalf("FindPhone(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestFindEmail(t *testing.T) {
	if got := FindEmail("Contact: jane.doe@mail.example.com."); got != "jane.doe@mail.example.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if got := FindEmail("no address here"); got != "" {
		t.Fatalf("expected no email, got %q", got)
	}
}

func TestLoadVocabulary(t *testing.T) {
	skills, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("load default vocabulary: %v", err)
	}
	if !slices.Contains(skills, "python") || !slices.IsSorted(skills) {
		t.Fatalf("unexpected default vocabulary: %v", skills)
	}

	path := filepath.Join(t.TempDir(), "skills.yaml")
	if err := os.WriteFile(path, []byte("skills:\n  - Go\n  - go\n  - ' Kafka '\n  - ''\n"), 0o600); err != nil {
		t.Fatalf("write vocabulary: %v", err)
	}
	skills, err = LoadVocabulary(path)
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	if !slices.Equal(skills, []string{"go", "kafka"}) {
		t.Fatalf("unexpected vocabulary: %v", skills)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("skills: []\n"), 0o600); err != nil {
		t.Fatalf("write vocabulary: %v", err)
	}
	if _, err := LoadVocabulary(empty); err == nil {
		t.Fatal("expected error for empty vocabulary")
	}

	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
