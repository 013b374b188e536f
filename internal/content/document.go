package content

import "encoding/json"

// DefaultMaxContinuations gilt, wenn meta.maxContinuations fehlt oder ungültig ist
const DefaultMaxContinuations = 10

// Kind ist das Typ-Tag einer Section
type Kind string

const (
	KindText    Kind = "text"
	KindList    Kind = "list"
	KindCode    Kind = "code"
	KindCallout Kind = "callout"
)

// Callout-Varianten
const (
	VariantTip     = "tip"
	VariantWarning = "warning"
	VariantNote    = "note"
)

// DefaultCodeLanguage wird gesetzt, wenn keine Sprache angegeben ist
const DefaultCodeLanguage = "text"

// Section ist die geschlossene Menge der Inhaltsblöcke. Nur die vier Typen
// dieses Pakets implementieren sie.
type Section interface {
	Kind() Kind
	Title() string
	isSection()
}

// TextSection ist ein Fließtext-Block
type TextSection struct {
	Heading string
	Text    string
}

// ListSection ist eine Aufzählung
type ListSection struct {
	Heading string
	Items   []string
}

// CodeSection ist ein Codeblock
type CodeSection struct {
	Heading  string
	Language string
	Code     string
}

// CalloutSection ist ein hervorgehobener Hinweis
type CalloutSection struct {
	Heading string
	Variant string
	Text    string
}

func (TextSection) Kind() Kind    { return KindText }
func (ListSection) Kind() Kind    { return KindList }
func (CodeSection) Kind() Kind    { return KindCode }
func (CalloutSection) Kind() Kind { return KindCallout }

func (s TextSection) Title() string    { return s.Heading }
func (s ListSection) Title() string    { return s.Heading }
func (s CodeSection) Title() string    { return s.Heading }
func (s CalloutSection) Title() string { return s.Heading }

func (TextSection) isSection()    {}
func (ListSection) isSection()    {}
func (CodeSection) isSection()    {}
func (CalloutSection) isSection() {}

func (s TextSection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind   `json:"type"`
		Heading string `json:"heading,omitempty"`
		Text    string `json:"text"`
	}{KindText, s.Heading, s.Text})
}

func (s ListSection) MarshalJSON() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(struct {
		Type    Kind     `json:"type"`
		Heading string   `json:"heading,omitempty"`
		Items   []string `json:"items"`
	}{KindList, s.Heading, items})
}

func (s CodeSection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Kind   `json:"type"`
		Heading  string `json:"heading,omitempty"`
		Language string `json:"language"`
		Code     string `json:"code"`
	}{KindCode, s.Heading, s.Language, s.Code})
}

func (s CalloutSection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind   `json:"type"`
		Heading string `json:"heading,omitempty"`
		Variant string `json:"variant"`
		Text    string `json:"text"`
	}{KindCallout, s.Heading, s.Variant, s.Text})
}

// QuizQuestion ist eine bereinigte Quizfrage (Modul- oder Lektionsquiz)
type QuizQuestion struct {
	ID         string   `json:"id,omitempty"`
	OrderIndex *int     `json:"orderIndex,omitempty"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
}

// Meta enthält den Fortsetzungszähler einer Lektion
type Meta struct {
	Continuations    int `json:"continuations"`
	MaxContinuations int `json:"maxContinuations"`
}

// CapReached meldet, ob keine Fortsetzung mehr erlaubt ist
func (m Meta) CapReached() bool {
	return m.Continuations >= m.MaxContinuations
}

// Document ist ein normalisiertes, typsicheres Lektionsdokument.
// Es entsteht ausschließlich über Parse/Normalize.
type Document struct {
	Title      string         `json:"title"`
	Sections   []Section      `json:"sections"`
	References []string       `json:"references,omitempty"`
	Quiz       []QuizQuestion `json:"quiz,omitempty"`
	Meta       Meta           `json:"meta"`
}
