// Package lesson steuert das begrenzte, sequentielle Wachstum von
// Lektionsinhalten über wiederholte Fortsetzungsaufrufe.
package lesson

import (
	"context"
	"math"
	"sync"
	"time"

	"parcours/internal/content"
	"parcours/internal/logging"
	"parcours/internal/models"
)

// Continuer ist der Teil des Backends, den der Controller braucht
type Continuer interface {
	ContinueLesson(ctx context.Context, lessonID string) (*models.Lesson, error)
}

// Outcome beschreibt, was ein Continue-Aufruf bewirkt hat
type Outcome string

const (
	// Applied: neues Dokument hat den Inhalt ersetzt
	Applied Outcome = "applied"
	// Unchanged: Antwort war kein Dokument, Zustand bleibt
	Unchanged Outcome = "unchanged"
	// SkippedLoading: es läuft bereits eine Anfrage für diese Lektion
	SkippedLoading Outcome = "skipped_loading"
	// SkippedCap: Obergrenze erreicht, keine Anfrage gesendet
	SkippedCap Outcome = "skipped_cap"
	// Discarded: Lektion wurde während der Anfrage verworfen
	Discarded Outcome = "discarded"
	// Failed: Transport- oder HTTP-Fehler, Inhalt bleibt erhalten
	Failed Outcome = "failed"
)

// Progress ist der Fortschritt einer Lektion für die Anzeige
type Progress struct {
	Count       int  `json:"count"`
	Max         int  `json:"max"`
	Percent     int  `json:"percent"`
	Loading     bool `json:"loading"`
	CanContinue bool `json:"can_continue"`
}

// State ist eine Momentaufnahme des Zustands einer Lektion
type State struct {
	LessonID  string            `json:"lesson_id"`
	Document  *content.Document `json:"document,omitempty"`
	Loading   bool              `json:"loading"`
	LastError string            `json:"last_error,omitempty"`
}

// Result ist das Ergebnis eines Continue-Aufrufs
type Result struct {
	Outcome Outcome        `json:"outcome"`
	State   State          `json:"state"`
	Lesson  *models.Lesson `json:"-"`
}

type entry struct {
	doc       *content.Document
	loading   bool
	lastError string
}

// Controller hält pro Lektions-ID den Zustand {Dokument, loading}.
// inflight gehört der laufenden Anfrage und überlebt Load und Forget; nur
// der Besitzer der Anfrage gibt die ID wieder frei.
type Controller struct {
	mu       sync.Mutex
	lessons  map[string]*entry
	inflight map[string]bool
	backend  Continuer
	log      *logging.Logger
	timeout  time.Duration
}

// NewController erstellt einen Controller. timeout begrenzt eine einzelne
// Fortsetzungsanfrage; 0 heißt unbegrenzt.
func NewController(backend Continuer, log *logging.Logger, timeout time.Duration) *Controller {
	return &Controller{
		lessons:  make(map[string]*entry),
		inflight: make(map[string]bool),
		backend:  backend,
		log:      log,
		timeout:  timeout,
	}
}

// Load setzt den Ausgangszustand einer Lektion (nil = noch kein Dokument).
// Die Antwort einer laufenden Anfrage wird verworfen, die Lektion bleibt aber
// bis zu deren Ende belegt.
func (c *Controller) Load(lessonID string, doc *content.Document) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &entry{doc: doc, loading: c.inflight[lessonID]}
	c.lessons[lessonID] = e
	return snapshot(lessonID, e)
}

// Forget entfernt den Zustand einer Lektion; eine später eintreffende
// Antwort wird verworfen
func (c *Controller) Forget(lessonID string) {
	c.mu.Lock()
	delete(c.lessons, lessonID)
	c.mu.Unlock()
}

// State liefert den aktuellen Zustand
func (c *Controller) State(lessonID string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lessons[lessonID]
	if !ok {
		return State{LessonID: lessonID}, false
	}
	return snapshot(lessonID, e), true
}

// Progress liefert Zähler, Obergrenze und Prozentwert
func (c *Controller) Progress(lessonID string) Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lessons[lessonID]
	if !ok {
		return computeProgress(nil, false)
	}
	return computeProgress(e.doc, e.loading)
}

func computeProgress(doc *content.Document, loading bool) Progress {
	p := Progress{Max: content.DefaultMaxContinuations, Loading: loading}
	if doc != nil {
		p.Count = doc.Meta.Continuations
		p.Max = doc.Meta.MaxContinuations
	}
	denom := p.Max
	if denom <= 0 {
		denom = 1
	}
	pct := int(math.Round(float64(p.Count) / float64(denom) * 100))
	p.Percent = min(100, max(0, pct))
	p.CanContinue = doc != nil && !loading && !doc.Meta.CapReached()
	return p
}

// Continue fordert genau eine Erweiterung an. Läuft bereits eine Anfrage oder
// ist die Obergrenze erreicht, passiert nichts. Ohne Dokument wird die
// Obergrenze nicht geprüft. Fehler lassen den bisherigen Inhalt unberührt.
func (c *Controller) Continue(ctx context.Context, lessonID string) (Result, error) {
	c.mu.Lock()
	e, ok := c.lessons[lessonID]
	if !ok {
		e = &entry{loading: c.inflight[lessonID]}
		c.lessons[lessonID] = e
	}
	if c.inflight[lessonID] {
		res := Result{Outcome: SkippedLoading, State: snapshot(lessonID, e)}
		c.mu.Unlock()
		return res, nil
	}
	if e.doc != nil && e.doc.Meta.CapReached() {
		res := Result{Outcome: SkippedCap, State: snapshot(lessonID, e)}
		c.mu.Unlock()
		return res, nil
	}
	c.inflight[lessonID] = true
	e.loading = true
	e.lastError = ""
	c.mu.Unlock()

	// Eine laufende Anfrage wird nicht abgebrochen, auch wenn der Aufrufer geht
	reqCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, c.timeout)
		defer cancel()
	}
	lesson, err := c.backend.ContinueLesson(reqCtx, lessonID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, lessonID)

	if cur, ok := c.lessons[lessonID]; !ok || cur != e {
		if ok {
			cur.loading = false
		}
		c.log.Debug("Fortsetzung verworfen", "lesson", lessonID)
		return Result{Outcome: Discarded, State: State{LessonID: lessonID}}, nil
	}
	e.loading = false

	if err != nil {
		e.lastError = err.Error()
		c.log.Warn("Fortsetzung fehlgeschlagen", "lesson", lessonID, "error", err)
		return Result{Outcome: Failed, State: snapshot(lessonID, e)}, err
	}

	doc, ok := content.Parse(lesson.Content)
	if !ok {
		c.log.Warn("Fortsetzung ohne strukturierten Inhalt", "lesson", lessonID)
		return Result{Outcome: Unchanged, State: snapshot(lessonID, e), Lesson: lesson}, nil
	}
	if prev := e.doc; prev != nil && doc.Meta.Continuations < prev.Meta.Continuations {
		c.log.Warn("Backend meldet niedrigeren Zähler",
			"lesson", lessonID,
			"previous", prev.Meta.Continuations,
			"reported", doc.Meta.Continuations,
		)
		doc.Meta.Continuations = min(prev.Meta.Continuations, doc.Meta.MaxContinuations)
	}
	e.doc = doc
	c.log.Info("Lektion fortgesetzt",
		"lesson", lessonID,
		"continuations", doc.Meta.Continuations,
		"max", doc.Meta.MaxContinuations,
	)
	return Result{Outcome: Applied, State: snapshot(lessonID, e), Lesson: lesson}, nil
}

func snapshot(lessonID string, e *entry) State {
	return State{
		LessonID:  lessonID,
		Document:  e.doc,
		Loading:   e.loading,
		LastError: e.lastError,
	}
}
