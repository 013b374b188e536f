// Package pipeline verkettet Profil, Pipeline-Lauf und Kursnavigation und
// entscheidet pro Lektion, ob sie einmalig entwickelt werden muss.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"parcours/internal/content"
	"parcours/internal/lesson"
	"parcours/internal/logging"
	"parcours/internal/models"
	"parcours/internal/session"
)

// Backend ist die Backend-Oberfläche, die der Orchestrator nutzt
type Backend interface {
	SubmitProfile(ctx context.Context, in *models.ProfileInput) (*models.UserRef, error)
	RunPipeline(ctx context.Context, userID string) (*models.PipelineRun, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetModule(ctx context.Context, id string) (*models.Module, error)
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	DevelopLesson(ctx context.Context, lessonID string) (*models.Lesson, error)
	GenerateLessons(ctx context.Context, moduleID string) ([]models.LessonSummary, error)
	GenerateSummary(ctx context.Context, userID, courseID string) (any, error)
	UserCourses(ctx context.Context, userID string) ([]models.UserCourse, error)
	ToolsPractices(ctx context.Context, userID string) (*models.ToolsPractices, error)
}

// SessionUpdater speichert geänderte Sitzungs-IDs
type SessionUpdater interface {
	Update(s *session.Session) error
}

// SnapshotStore hält den zuletzt gesehenen Rohinhalt einer Lektion
type SnapshotStore interface {
	SaveLessonSnapshot(snap *models.LessonSnapshot) error
	GetLessonSnapshot(lessonID string) (*models.LessonSnapshot, error)
}

// Nav ist das Navigationsziel nach dem Absenden des Profils
type Nav string

const (
	NavCourse    Nav = "course"
	NavDashboard Nav = "dashboard"
)

// LessonState ist der Zustand einer Lektionsansicht
type LessonState string

const (
	StateRaw        LessonState = "RAW"
	StateStructured LessonState = "STRUCTURED"
	StatePlain      LessonState = "PLAIN"
	StateDeveloping LessonState = "DEVELOPING"
)

// ErrNoUser: die Sitzung hat noch keine Nutzer-ID (Profil fehlt)
var ErrNoUser = errors.New("kein Nutzer in der Sitzung, bitte zuerst das Profil speichern")

// PipelineError markiert einen gescheiterten Pipeline-Lauf. Er ist für den
// aktuellen Versuch endgültig; das Profil bleibt gespeichert.
type PipelineError struct {
	Err error
}

func (e *PipelineError) Error() string { return e.Err.Error() }
func (e *PipelineError) Unwrap() error { return e.Err }

// SubmitResult ist das Ergebnis von SubmitProfile
type SubmitResult struct {
	UserID        string `json:"user_id"`
	CourseID      string `json:"course_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Nav           Nav    `json:"nav"`
	PipelineError string `json:"pipeline_error,omitempty"`
}

// LessonView ist eine geöffnete Lektion
type LessonView struct {
	Lesson       *models.Lesson    `json:"lesson"`
	State        LessonState       `json:"state"`
	Document     *content.Document `json:"document,omitempty"`
	Text         string            `json:"text,omitempty"`
	Developed    bool              `json:"developed"`
	DevelopError string            `json:"develop_error,omitempty"`
	FromSnapshot bool              `json:"from_snapshot,omitempty"`
}

// LessonPreview ist eine Lektion in der Modulliste
type LessonPreview struct {
	models.LessonSummary
	Preview string `json:"preview"`
}

// ModuleView ist ein geöffnetes Modul mit Vorschauen
type ModuleView struct {
	Module   *models.Module  `json:"module"`
	Previews []LessonPreview `json:"previews"`
}

// Outline ist ein Kurs mit allen Moduldetails
type Outline struct {
	Course  *models.Course   `json:"course"`
	Modules []*models.Module `json:"modules"`
}

// Dashboard bündelt die Startansicht eines Nutzers
type Dashboard struct {
	Courses        []models.UserCourse    `json:"courses"`
	ToolsPractices *models.ToolsPractices `json:"tools_practices,omitempty"`
	Course         *models.Course         `json:"course,omitempty"`
	CourseError    string                 `json:"course_error,omitempty"`
}

// Options konfiguriert den Orchestrator
type Options struct {
	MinLessonLength    int
	OutlineConcurrency int
}

// Orchestrator koordiniert den Ablauf über das Backend
type Orchestrator struct {
	backend   Backend
	sessions  SessionUpdater
	lessons   *lesson.Controller
	snapshots SnapshotStore
	log       *logging.Logger
	opts      Options
}

// New erstellt einen Orchestrator; snapshots darf nil sein
func New(backend Backend, sessions SessionUpdater, lessons *lesson.Controller, snapshots SnapshotStore, log *logging.Logger, opts Options) *Orchestrator {
	if opts.MinLessonLength <= 0 {
		opts.MinLessonLength = 120
	}
	if opts.OutlineConcurrency <= 0 {
		opts.OutlineConcurrency = 4
	}
	return &Orchestrator{
		backend:   backend,
		sessions:  sessions,
		lessons:   lessons,
		snapshots: snapshots,
		log:       log,
		opts:      opts,
	}
}

// SubmitProfile schreibt das Profil und startet direkt den Pipeline-Lauf.
// Scheitert der Lauf, bleibt das Profil gespeichert und das Ziel ist das
// Dashboard; der Fehler kommt als *PipelineError zurück.
func (o *Orchestrator) SubmitProfile(ctx context.Context, sess *session.Session, in *models.ProfileInput) (*SubmitResult, error) {
	if in.UserID == "" {
		in.UserID = sess.UserID
	}
	ref, err := o.backend.SubmitProfile(ctx, in)
	if err != nil {
		return nil, err
	}

	sess.UserID = ref.UserID
	if err := o.sessions.Update(sess); err != nil {
		return nil, fmt.Errorf("Sitzung aktualisieren: %w", err)
	}
	o.log.Info("Profil gespeichert", "user", ref.UserID)

	res := &SubmitResult{UserID: ref.UserID, Nav: NavDashboard}
	run, err := o.RunPipeline(ctx, sess)
	if err != nil {
		res.PipelineError = err.Error()
		return res, err
	}
	if run.CourseID != "" {
		res.CourseID = run.CourseID
		res.Title = run.Title
		res.Nav = NavCourse
	}
	return res, nil
}

// RunPipeline startet genau einen Lauf für den Nutzer der Sitzung. Es gibt
// keine automatische Wiederholung.
func (o *Orchestrator) RunPipeline(ctx context.Context, sess *session.Session) (*models.PipelineRun, error) {
	if sess.UserID == "" {
		return nil, ErrNoUser
	}
	run, err := o.backend.RunPipeline(ctx, sess.UserID)
	if err != nil {
		o.log.Warn("Pipeline fehlgeschlagen", "user", sess.UserID, "error", err)
		return nil, &PipelineError{Err: err}
	}
	if run.CourseID != "" {
		sess.CourseID = run.CourseID
		if err := o.sessions.Update(sess); err != nil {
			return nil, fmt.Errorf("Sitzung aktualisieren: %w", err)
		}
	}
	o.log.Info("Pipeline abgeschlossen", "user", sess.UserID, "course", run.CourseID)
	return run, nil
}

// OpenLesson lädt eine Lektion und entwickelt sie höchstens einmal, wenn der
// Inhalt nicht strukturiert oder kürzer als der Schwellwert ist
func (o *Orchestrator) OpenLesson(ctx context.Context, lessonID string) (*LessonView, error) {
	base, err := o.backend.GetLesson(ctx, lessonID)
	fromSnapshot := false
	if err != nil {
		snap := o.snapshot(lessonID)
		if snap == nil {
			return nil, err
		}
		o.log.Warn("Lektion aus Schnappschuss", "lesson", lessonID, "error", err)
		base = &models.Lesson{ID: lessonID, Title: snap.Title, Content: snap.Content}
		fromSnapshot = true
	}

	view := &LessonView{Lesson: base, State: StateRaw, FromSnapshot: fromSnapshot}
	doc, parsed := content.Parse(base.Content)
	if parsed {
		view.State = StateStructured
		view.Document = doc
	} else {
		view.State = StatePlain
		view.Text = base.Content
	}

	if !fromSnapshot && (!parsed || utf8.RuneCountInString(base.Content) < o.opts.MinLessonLength) {
		o.develop(ctx, lessonID, view)
	}

	if view.State == StateStructured {
		o.lessons.Load(lessonID, view.Document)
	} else {
		o.lessons.Forget(lessonID)
	}
	o.saveSnapshot(lessonID, view.Lesson)
	return view, nil
}

// develop führt den einzigen Develop-Aufruf aus. Scheitert er, bleibt der
// vorherige Zustand sichtbar.
func (o *Orchestrator) develop(ctx context.Context, lessonID string, view *LessonView) {
	prevState := view.State
	view.State = StateDeveloping

	developed, err := o.backend.DevelopLesson(ctx, lessonID)
	if err != nil {
		o.log.Warn("Develop fehlgeschlagen", "lesson", lessonID, "error", err)
		view.State = prevState
		view.DevelopError = err.Error()
		return
	}
	view.Developed = true
	if developed.ID == "" {
		developed.ID = lessonID
	}
	if developed.Title == "" {
		developed.Title = view.Lesson.Title
	}
	if developed.Module == nil {
		developed.Module = view.Lesson.Module
	}

	if doc, ok := content.Parse(developed.Content); ok {
		view.Lesson = developed
		view.State = StateStructured
		view.Document = doc
		view.Text = ""
		return
	}
	if prevState == StateStructured {
		// vorhandene Struktur bleibt vor unstrukturiertem Text
		view.State = StateStructured
		return
	}
	view.Lesson = developed
	view.State = StatePlain
	view.Text = developed.Content
}

// ContinueLesson leitet an den Continuation Controller weiter und hält den
// Schnappschuss aktuell
func (o *Orchestrator) ContinueLesson(ctx context.Context, lessonID string) (lesson.Result, error) {
	res, err := o.lessons.Continue(ctx, lessonID)
	if err == nil && res.Outcome == lesson.Applied {
		o.saveSnapshot(lessonID, res.Lesson)
	}
	return res, err
}

// OpenModule lädt ein Modul samt Lektionsvorschauen
func (o *Orchestrator) OpenModule(ctx context.Context, moduleID string) (*ModuleView, error) {
	mod, err := o.backend.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	return &ModuleView{Module: mod, Previews: previews(mod.Lessons)}, nil
}

// GenerateLessons erzeugt weitere Lektionen und hängt sie an die Modulliste an
func (o *Orchestrator) GenerateLessons(ctx context.Context, mod *models.Module) ([]LessonPreview, error) {
	added, err := o.backend.GenerateLessons(ctx, mod.ID)
	if err != nil {
		return nil, err
	}
	mod.Lessons = append(mod.Lessons, added...)
	o.log.Info("Lektionen erzeugt", "module", mod.ID, "added", len(added))
	return previews(mod.Lessons), nil
}

func previews(lessons []models.LessonSummary) []LessonPreview {
	out := make([]LessonPreview, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, LessonPreview{LessonSummary: l, Preview: content.Preview(l.Content)})
	}
	return out
}

// CourseOutline lädt den Kurs und alle Moduldetails parallel. Die Reihenfolge
// folgt der Kursreihenfolge.
func (o *Orchestrator) CourseOutline(ctx context.Context, courseID string) (*Outline, error) {
	course, err := o.backend.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	sortModules(course.Modules)
	modules := make([]*models.Module, len(course.Modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.OutlineConcurrency)
	for i, m := range course.Modules {
		i, id := i, m.ID
		g.Go(func() error {
			mod, err := o.backend.GetModule(gctx, id)
			if err != nil {
				return fmt.Errorf("Modul %s: %w", id, err)
			}
			modules[i] = mod
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Outline{Course: course, Modules: modules}, nil
}

func sortModules(mods []models.ModuleSummary) {
	sort.SliceStable(mods, func(a, b int) bool {
		return orderOf(mods[a].OrderIndex) < orderOf(mods[b].OrderIndex)
	})
}

func orderOf(idx *int) int {
	if idx == nil {
		return 1 << 30
	}
	return *idx
}

// GetCourse lädt einen Kurs, Module in Kursreihenfolge
func (o *Orchestrator) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := o.backend.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sortModules(course.Modules)
	return course, nil
}

// GenerateSummary erzeugt die Kurszusammenfassung
func (o *Orchestrator) GenerateSummary(ctx context.Context, sess *session.Session, courseID string) (any, error) {
	if sess.UserID == "" {
		return nil, ErrNoUser
	}
	if courseID == "" {
		courseID = sess.CourseID
	}
	return o.backend.GenerateSummary(ctx, sess.UserID, courseID)
}

// Dashboard lädt Kursliste und Werkzeuge. Fehler dort bleiben stumm; nur ein
// Fehler beim aktuellen Kurs wird gemeldet.
func (o *Orchestrator) Dashboard(ctx context.Context, sess *session.Session) *Dashboard {
	d := &Dashboard{Courses: []models.UserCourse{}}
	if sess.UserID != "" {
		if list, err := o.backend.UserCourses(ctx, sess.UserID); err == nil {
			d.Courses = list
		} else {
			o.log.Debug("Kursliste nicht verfügbar", "error", err)
		}
		if tp, err := o.backend.ToolsPractices(ctx, sess.UserID); err == nil {
			d.ToolsPractices = tp
		} else {
			o.log.Debug("Werkzeuge nicht verfügbar", "error", err)
		}
	}
	if sess.CourseID != "" {
		course, err := o.GetCourse(ctx, sess.CourseID)
		if err != nil {
			d.CourseError = err.Error()
		} else {
			d.Course = course
		}
	}
	return d
}

func (o *Orchestrator) snapshot(lessonID string) *models.LessonSnapshot {
	if o.snapshots == nil {
		return nil
	}
	snap, err := o.snapshots.GetLessonSnapshot(lessonID)
	if err != nil {
		return nil
	}
	return snap
}

func (o *Orchestrator) saveSnapshot(lessonID string, l *models.Lesson) {
	if o.snapshots == nil || l == nil {
		return
	}
	err := o.snapshots.SaveLessonSnapshot(&models.LessonSnapshot{
		LessonID: lessonID,
		Title:    l.Title,
		Content:  l.Content,
	})
	if err != nil {
		o.log.Warn("Schnappschuss nicht gespeichert", "lesson", lessonID, "error", err)
	}
}
