// Package intake prüft das Profilformular und baut daraus die Profileingabe
// für das Backend.
package intake

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"parcours/internal/models"
)

// Form ist das Profilformular, wie es vom Client kommt
type Form struct {
	Job       string `json:"job"`
	Sector    string `json:"sector"`
	AILevel   string `json:"ai_level"`
	ToolsUsed string `json:"tools_used"`
	WorkStyle string `json:"work_style"`

	Seniority                string `json:"seniority"`
	ExperienceYears          *int   `json:"experience_years"`
	CompanySize              string `json:"company_size"`
	PreferredModels          string `json:"preferred_models"`
	LearningGoals            string `json:"learning_goals"`
	AvailabilityHoursPerWeek *int   `json:"availability_hours_per_week"`
	Timezone                 string `json:"timezone"`
	Language                 string `json:"language"`
	Industries               string `json:"industries"`
	ComplianceNeeds          string `json:"compliance_needs"`
	DataPrivacyNotes         string `json:"data_privacy_notes"`
	HardwareConstraints      string `json:"hardware_constraints"`
	PreferredWorkflows       string `json:"preferred_workflows"`
}

// FieldError ist ein Fehler an einem Formularfeld
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError sammelt alle Feldfehler eines Formulars
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "ungültiges Profil: " + strings.Join(parts, "; ")
}

// Validate prüft Pflichtfelder und Wertebereiche
func (f *Form) Validate() error {
	var errs []FieldError
	minLen := func(field, value string, n int, msg string) {
		if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
			errs = append(errs, FieldError{Field: field, Message: msg})
		}
	}
	between := func(field string, v *int, lo, hi int) {
		if v != nil && (*v < lo || *v > hi) {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("muss zwischen %d und %d liegen", lo, hi)})
		}
	}

	minLen("job", f.Job, 2, "Beruf angeben")
	minLen("sector", f.Sector, 2, "Branche angeben")
	minLen("ai_level", f.AILevel, 1, "Niveau erforderlich")
	between("experience_years", f.ExperienceYears, 0, 60)
	between("availability_hours_per_week", f.AvailabilityHoursPerWeek, 0, 168)

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Build prüft das Formular und packt die erweiterten Angaben zusammen mit
// der Werkzeugliste in tools_used
func (f *Form) Build(userID string) (*models.ProfileInput, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &models.ProfileInput{
		UserID:  userID,
		Job:     strings.TrimSpace(f.Job),
		Sector:  strings.TrimSpace(f.Sector),
		AILevel: strings.TrimSpace(f.AILevel),
		ToolsUsed: &models.Tools{
			List: SplitTools(f.ToolsUsed),
			Extras: models.ProfileExtras{
				Seniority:                strings.TrimSpace(f.Seniority),
				ExperienceYears:          f.ExperienceYears,
				CompanySize:              strings.TrimSpace(f.CompanySize),
				PreferredModels:          strings.TrimSpace(f.PreferredModels),
				LearningGoals:            strings.TrimSpace(f.LearningGoals),
				AvailabilityHoursPerWeek: f.AvailabilityHoursPerWeek,
				Timezone:                 strings.TrimSpace(f.Timezone),
				Language:                 strings.TrimSpace(f.Language),
				Industries:               strings.TrimSpace(f.Industries),
				ComplianceNeeds:          strings.TrimSpace(f.ComplianceNeeds),
				DataPrivacyNotes:         strings.TrimSpace(f.DataPrivacyNotes),
				HardwareConstraints:      strings.TrimSpace(f.HardwareConstraints),
				PreferredWorkflows:       strings.TrimSpace(f.PreferredWorkflows),
			},
		},
		WorkStyle: strings.TrimSpace(f.WorkStyle),
	}, nil
}

// SplitTools trennt eine kommagetrennte Werkzeugliste; leere Einträge fallen weg
func SplitTools(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Suggestion sind Vorschläge aus einem Lebenslauf für das Formular
type Suggestion struct {
	Tools           []string `json:"tools"`
	ToolsUsed       string   `json:"tools_used"`
	ExperienceYears *int     `json:"experience_years,omitempty"`
}

var knownTools = map[string]string{
	"chatgpt":          "ChatGPT",
	"gpt-4":            "GPT-4",
	"claude":           "Claude",
	"copilot":          "Copilot",
	"gemini":           "Gemini",
	"mistral":          "Mistral",
	"midjourney":       "Midjourney",
	"dall-e":           "DALL-E",
	"stable diffusion": "Stable Diffusion",
	"perplexity":       "Perplexity",
	"notion ai":        "Notion AI",
	"whisper":          "Whisper",
	"langchain":        "LangChain",
	"hugging face":     "Hugging Face",
	"deepl":            "DeepL",
}

var experienceRe = regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(jahre|years|ans|yrs)`)

// FromResume schlägt Werkzeuge und Berufsjahre aus Lebenslauftext vor.
// Die Jahre sind der größte gefundene Wert, gedeckelt auf 60.
func FromResume(text string) Suggestion {
	lower := strings.ToLower(text)
	tools := []string{}
	for key, name := range knownTools {
		if strings.Contains(lower, key) {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)

	s := Suggestion{Tools: tools, ToolsUsed: strings.Join(tools, ", ")}
	best := -1
	for _, m := range experienceRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > best {
			best = n
		}
	}
	if best >= 0 {
		best = min(best, 60)
		s.ExperienceYears = &best
	}
	return s
}
