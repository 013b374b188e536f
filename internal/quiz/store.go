package quiz

import (
	"sync"

	"parcours/internal/content"
)

// Scope unterscheidet Modul- und Lektionsquiz
type Scope string

const (
	ScopeModule Scope = "module"
	ScopeLesson Scope = "lesson"
)

// ParseScope prüft einen Scope aus einer URL
func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case ScopeModule, ScopeLesson:
		return Scope(s), true
	}
	return "", false
}

type storeKey struct {
	session string
	scope   Scope
	id      string
}

// Store hält eine Engine pro (Sitzung, Scope, ID). Es gibt keinen geteilten
// Zustand zwischen verschiedenen Instanzen derselben Fragenliste.
type Store struct {
	mu      sync.Mutex
	engines map[storeKey]*Engine
}

func NewStore() *Store {
	return &Store{engines: make(map[storeKey]*Engine)}
}

// Reset ersetzt die Engine durch eine frische über questions (neue Darstellung)
func (s *Store) Reset(session string, scope Scope, id string, questions []content.QuizQuestion) *Engine {
	e := NewEngine(questions)
	s.mu.Lock()
	s.engines[storeKey{session, scope, id}] = e
	s.mu.Unlock()
	return e
}

// Get liefert die aktuelle Engine oder nil
func (s *Store) Get(session string, scope Scope, id string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[storeKey{session, scope, id}]
}

// DropSession entfernt alle Engines einer Sitzung (Logout)
func (s *Store) DropSession(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.engines {
		if k.session == session {
			delete(s.engines, k)
		}
	}
}
