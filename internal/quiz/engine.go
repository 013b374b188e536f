// Package quiz verwaltet Auswahl und Validierung für eine Liste von Quizfragen.
// Modul- und Lektionsquiz sind strukturell identisch.
package quiz

import (
	"strconv"
	"sync"

	"parcours/internal/content"
)

// Score ist das Ergebnis über alle Fragen einer Liste
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// QuestionState ist der Zustand einer Frage für die Darstellung
type QuestionState struct {
	Key       string   `json:"key"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Selected  *string  `json:"selected"`
	Validated bool     `json:"validated"`
	// Correct und Answer werden erst nach der Validierung gesetzt
	Correct *bool  `json:"correct,omitempty"`
	Answer  string `json:"answer,omitempty"`
}

// Engine hält den Antwortzustand einer Fragenliste.
// Validierung ist pro Frage endgültig.
type Engine struct {
	mu        sync.Mutex
	questions []content.QuizQuestion
	keys      []string
	index     map[string]int
	selected  map[string]string
	validated map[string]bool
}

// NewEngine erstellt eine Engine über bereits normalisierte Fragen
func NewEngine(questions []content.QuizQuestion) *Engine {
	e := &Engine{
		questions: questions,
		keys:      make([]string, len(questions)),
		index:     make(map[string]int, len(questions)),
		selected:  make(map[string]string),
		validated: make(map[string]bool),
	}
	for i, q := range questions {
		key := questionKey(q, i)
		if _, dup := e.index[key]; dup {
			key = "#" + strconv.Itoa(i)
			// auch der Ersatzschlüssel kann schon als ID vergeben sein
			for n := 1; e.taken(key); n++ {
				key = "#" + strconv.Itoa(i) + "." + strconv.Itoa(n)
			}
		}
		e.keys[i] = key
		e.index[key] = i
	}
	return e
}

// questionKey: ID, sonst orderIndex, sonst Position
func questionKey(q content.QuizQuestion, pos int) string {
	if q.ID != "" {
		return q.ID
	}
	if q.OrderIndex != nil {
		return strconv.Itoa(*q.OrderIndex)
	}
	return strconv.Itoa(pos)
}

func (e *Engine) taken(key string) bool {
	_, ok := e.index[key]
	return ok
}

// Select setzt die Auswahl einer noch nicht validierten Frage.
// Unbekannte Schlüssel oder Optionen werden ignoriert (false).
func (e *Engine) Select(key, option string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.index[key]
	if !ok || e.validated[key] {
		return false
	}
	if !hasOption(e.questions[i].Options, option) {
		return false
	}
	e.selected[key] = option
	return true
}

// Validate schließt eine Frage ab. Nur möglich mit Auswahl und nur einmal.
func (e *Engine) Validate(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.index[key]; !ok || e.validated[key] {
		return false
	}
	if _, ok := e.selected[key]; !ok {
		return false
	}
	e.validated[key] = true
	return true
}

// Score zählt validierte, korrekt beantwortete Fragen. Wird bei jedem Aufruf
// neu berechnet.
func (e *Engine) Score() Score {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Score{Total: len(e.questions)}
	for i, q := range e.questions {
		key := e.keys[i]
		if e.validated[key] && e.selected[key] == q.Answer {
			s.Correct++
		}
	}
	return s
}

// State liefert den Zustand aller Fragen in Reihenfolge
func (e *Engine) State() []QuestionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]QuestionState, 0, len(e.questions))
	for i, q := range e.questions {
		key := e.keys[i]
		st := QuestionState{
			Key:       key,
			Question:  q.Question,
			Options:   q.Options,
			Validated: e.validated[key],
		}
		if sel, ok := e.selected[key]; ok {
			sel := sel
			st.Selected = &sel
		}
		if st.Validated {
			correct := e.selected[key] == q.Answer
			st.Correct = &correct
			st.Answer = q.Answer
		}
		out = append(out, st)
	}
	return out
}

func hasOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
