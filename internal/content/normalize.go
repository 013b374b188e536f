package content

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Parse dekodiert rohen Lektionsinhalt. Ein Dokument entsteht nur, wenn der
// Text ein JSON-Objekt mit einem Array "sections" ist; sonst (false) gilt der
// Inhalt als unstrukturierter Text.
func Parse(raw string) (*Document, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// Nachfolgender Müll macht den Inhalt ungültig
	if dec.More() {
		return nil, false
	}
	return Normalize(v)
}

// Normalize wandelt einen beliebigen dekodierten Wert in ein Document.
// Fehlerhafte Elemente werden verworfen, nie gemeldet.
func Normalize(v any) (*Document, bool) {
	obj, ok := CoerceObject(v)
	if !ok {
		return nil, false
	}
	rawSections, ok := obj["sections"].([]any)
	if !ok {
		return nil, false
	}

	doc := &Document{
		Title:      CoerceOptionalString(obj["title"]),
		Sections:   make([]Section, 0, len(rawSections)),
		References: OnlyStrings(obj["references"]),
		Quiz:       NormalizeQuiz(obj["quiz"]),
		Meta:       normalizeMeta(obj["meta"]),
	}
	for _, rs := range rawSections {
		if sec, ok := normalizeSection(rs); ok {
			doc.Sections = append(doc.Sections, sec)
		}
	}
	return doc, true
}

func normalizeSection(v any) (Section, bool) {
	obj, ok := CoerceObject(v)
	if !ok {
		return nil, false
	}
	heading := CoerceOptionalString(obj["heading"])

	switch Kind(CoerceOptionalString(obj["type"])) {
	case KindText:
		return TextSection{Heading: heading, Text: CoerceString(obj["text"])}, true
	case KindList:
		return ListSection{Heading: heading, Items: CoerceStrings(obj["items"])}, true
	case KindCode:
		return CodeSection{
			Heading:  heading,
			Language: CoerceStringOr(obj["language"], DefaultCodeLanguage),
			Code:     CoerceString(obj["code"]),
		}, true
	case KindCallout:
		return CalloutSection{
			Heading: heading,
			Variant: normalizeVariant(obj["variant"]),
			Text:    CoerceString(obj["text"]),
		}, true
	default:
		// unbekanntes Tag
		return nil, false
	}
}

func normalizeVariant(v any) string {
	switch s := CoerceOptionalString(v); s {
	case VariantTip, VariantWarning, VariantNote:
		return s
	}
	return VariantNote
}

func normalizeMeta(v any) Meta {
	m := Meta{MaxContinuations: DefaultMaxContinuations}
	obj, ok := CoerceObject(v)
	if !ok {
		return m
	}
	m.Continuations = CoerceInt(obj["continuations"], 0)
	if m.Continuations < 0 {
		m.Continuations = 0
	}
	m.MaxContinuations = CoerceInt(obj["maxContinuations"], DefaultMaxContinuations)
	if m.MaxContinuations <= 0 {
		m.MaxContinuations = DefaultMaxContinuations
	}
	if m.Continuations > m.MaxContinuations {
		m.Continuations = m.MaxContinuations
	}
	return m
}

// NormalizeQuiz bereinigt eine Liste von Quizfragen. Eine Frage bleibt nur
// erhalten, wenn Fragetext und mindestens eine Option übrig bleiben.
func NormalizeQuiz(v any) []QuizQuestion {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]QuizQuestion, 0, len(arr))
	for _, it := range arr {
		if q, ok := normalizeQuestion(it); ok {
			out = append(out, q)
		}
	}
	return out
}

func normalizeQuestion(v any) (QuizQuestion, bool) {
	obj, ok := CoerceObject(v)
	if !ok {
		return QuizQuestion{}, false
	}
	question := CoerceString(obj["question"])
	options := dedupe(CoerceStrings(obj["options"]))
	if question == "" || len(options) == 0 {
		return QuizQuestion{}, false
	}

	q := QuizQuestion{
		ID:       idString(obj["id"]),
		Question: question,
		Options:  options,
		Answer:   CoerceStringOr(obj["answer"], options[0]),
	}
	if _, present := obj["orderIndex"]; present {
		if idx := CoerceInt(obj["orderIndex"], -1); idx >= 0 {
			q.OrderIndex = &idx
		}
	}
	return q, true
}

// idString akzeptiert String- und Zahl-IDs
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
