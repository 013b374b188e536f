// Package pdf liest Lebensläufe als PDF für den Profilimport
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes begrenzt die Größe eines hochgeladenen Lebenslaufs
const MaxUploadBytes = 10 << 20

var ErrTooLarge = errors.New("PDF ist zu groß")

// Resume ist der extrahierte Text eines Lebenslaufs
type Resume struct {
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	PageCount int       `json:"page_count"`
	Sections  []Section `json:"sections"`
}

// Section ist ein erkannter Abschnitt (Berufserfahrung, Kenntnisse, ...)
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ParseFromReader liest ein PDF aus einem Upload
func ParseFromReader(reader io.Reader, filename string) (*Resume, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der PDF: %w", err)
	}

	var text strings.Builder
	totalPages := r.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(pageText)
	}

	content := text.String()
	return &Resume{
		Name:      filename,
		Text:      content,
		PageCount: totalPages,
		Sections:  ExtractSections(content),
	}, nil
}

var resumeHeadings = []string{
	"berufserfahrung", "erfahrung", "experience", "expérience",
	"kenntnisse", "skills", "compétences", "fähigkeiten",
	"ausbildung", "education", "formation",
	"sprachen", "languages", "langues",
	"projekte", "projects", "projets",
}

// ExtractSections teilt den Text an typischen Lebenslauf-Überschriften
func ExtractSections(content string) []Section {
	var sections []Section
	var current *Section

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isHeading(trimmed) {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &Section{Title: trimmed}
			continue
		}
		if current != nil {
			current.Content += trimmed + "\n"
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

func isHeading(line string) bool {
	if len(line) > 60 {
		return false
	}
	lower := strings.ToLower(strings.TrimRight(line, ": "))
	for _, h := range resumeHeadings {
		if lower == h || strings.HasPrefix(lower, h+" ") {
			return true
		}
	}
	// Versalien-Überschrift wie "BERUFLICHER WERDEGANG"
	return len(line) > 3 && strings.ToUpper(line) == line && strings.ToLower(line) != line
}
