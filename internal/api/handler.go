package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"parcours/internal/backend"
	"parcours/internal/chat"
	"parcours/internal/intake"
	"parcours/internal/lesson"
	"parcours/internal/logging"
	"parcours/internal/models"
	"parcours/internal/pdf"
	"parcours/internal/pipeline"
	"parcours/internal/quiz"
	"parcours/internal/render"
	"parcours/internal/session"
	"parcours/internal/storage"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "parcours_session"
)

// Health prüft die Erreichbarkeit des Backends
type Health interface {
	IsAvailable(ctx context.Context) bool
	BaseURL() string
}

// Deps sind die Komponenten, die der Handler verbindet
type Deps struct {
	Store        storage.Storage
	Sessions     *session.Manager
	Orchestrator *pipeline.Orchestrator
	Lessons      *lesson.Controller
	Quizzes      *quiz.Store
	Chat         *chat.Service
	Health       Health
	Log          *logging.Logger
}

// Handler verwaltet alle API-Endpunkte
type Handler struct {
	store    storage.Storage
	sessions *session.Manager
	orch     *pipeline.Orchestrator
	lessons  *lesson.Controller
	quizzes  *quiz.Store
	chat     *chat.Service
	health   Health
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	modules    map[string]*models.Module
	generating map[string]*sync.Mutex // ein Generierungslauf pro Modul
}

// NewHandler erstellt einen neuen API-Handler
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:      d.Store,
		sessions:   d.Sessions,
		orch:       d.Orchestrator,
		lessons:    d.Lessons,
		quizzes:    d.Quizzes,
		chat:       d.Chat,
		health:     d.Health,
		log:        d.Log,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		modules:    make(map[string]*models.Module),
		generating: make(map[string]*sync.Mutex),
	}
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// fail bildet Fehler auf HTTP-Status ab; die Meldung geht unverändert an den Client
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		ve     *intake.ValidationError
		pe     *pipeline.PipelineError
		apiErr *backend.APIError
		urlErr *url.Error
	)
	switch {
	case errors.As(err, &ve):
		jsonResponse(w, map[string]interface{}{"error": ve.Error(), "fields": ve.Fields}, http.StatusBadRequest)
		return
	case errors.Is(err, session.ErrNotFound):
		errorResponse(w, "Keine gültige Sitzung", http.StatusUnauthorized)
		return
	case errors.Is(err, session.ErrMissingCreds), errors.Is(err, chat.ErrEmptyMessage):
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, pipeline.ErrNoUser), errors.Is(err, chat.ErrChatDisabled):
		errorResponse(w, err.Error(), http.StatusConflict)
		return
	case errors.As(err, &pe):
		errorResponse(w, backend.Message(err), http.StatusBadGateway)
		return
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		errorResponse(w, apiErr.Message, status)
		return
	case errors.As(err, &urlErr):
		errorResponse(w, backend.Message(err), http.StatusBadGateway)
		return
	}
	h.log.Error("Interner Fehler", "error", err)
	errorResponse(w, backend.Message(err), http.StatusInternalServerError)
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// session liest die Sitzung aus Header oder Cookie
func (h *Handler) session(r *http.Request) (*session.Session, error) {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	return h.sessions.Get(id)
}

func setSessionCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// === System Endpoints ===

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	jsonResponse(w, map[string]interface{}{
		"status":            "ok",
		"backend_available": h.health.IsAvailable(ctx),
		"backend_url":       h.health.BaseURL(),
		"timestamp":         time.Now(),
	}, http.StatusOK)
}

// === Auth Endpoints ===

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	intake.Form
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	var extras *models.ProfileInput
	if req.Job != "" || req.Sector != "" || req.AILevel != "" || req.ToolsUsed != "" || req.WorkStyle != "" {
		extras = &models.ProfileInput{
			Job:       strings.TrimSpace(req.Job),
			Sector:    strings.TrimSpace(req.Sector),
			AILevel:   strings.TrimSpace(req.AILevel),
			WorkStyle: strings.TrimSpace(req.WorkStyle),
		}
		if tools := intake.SplitTools(req.ToolsUsed); len(tools) > 0 {
			extras.ToolsUsed = &models.Tools{List: tools}
		}
	}

	sess, err := h.sessions.Register(r.Context(), req.Email, req.Password, extras)
	if err != nil {
		h.fail(w, err)
		return
	}
	setSessionCookie(w, sess.ID, 0)
	jsonResponse(w, sess, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	sess, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	setSessionCookie(w, sess.ID, 0)
	jsonResponse(w, sess, http.StatusOK)
}

// StartAnonymous öffnet eine Sitzung ohne Konto (Profil ohne Registrierung)
func (h *Handler) StartAnonymous(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Anonymous()
	if err != nil {
		h.fail(w, err)
		return
	}
	setSessionCookie(w, sess.ID, 0)
	jsonResponse(w, sess, http.StatusCreated)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResponse(w, sess, http.StatusOK)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.sessions.Logout(sess.ID); err != nil {
		h.fail(w, err)
		return
	}
	h.quizzes.DropSession(sess.ID)
	if err := h.store.DeleteChatHistory(sess.ID); err != nil {
		h.log.Warn("Chatverlauf nicht gelöscht", "session", sess.ID, "error", err)
	}
	setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// === Profil & Pipeline Endpoints ===

func (h *Handler) SubmitProfile(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var form intake.Form
	if err := decode(r, &form); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	in, err := form.Build(sess.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}

	res, err := h.orch.SubmitProfile(r.Context(), sess, in)
	var pe *pipeline.PipelineError
	if err != nil && !errors.As(err, &pe) {
		h.fail(w, err)
		return
	}
	// Ein gescheiterter Pipeline-Lauf lässt das Profil bestehen; der Client
	// navigiert zum Dashboard
	jsonResponse(w, res, http.StatusOK)
}

// ImportResume liest einen PDF-Lebenslauf und schlägt Formularwerte vor
func (h *Handler) ImportResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, pdf.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(pdf.MaxUploadBytes); err != nil {
		errorResponse(w, "Ungültiger Upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, "Keine Datei gefunden", http.StatusBadRequest)
		return
	}
	defer file.Close()

	resume, err := pdf.ParseFromReader(file, header.Filename)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"resume":     resume,
		"suggestion": intake.FromResume(resume.Text),
	}, http.StatusOK)
}

func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	run, err := h.orch.RunPipeline(r.Context(), sess)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResponse(w, run, http.StatusOK)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResponse(w, h.orch.Dashboard(r.Context(), sess), http.StatusOK)
}

// === Kurs Endpoints ===

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.orch.GetCourse(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResponse(w, course, http.StatusOK)
}

func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	outline, err := h.orch.CourseOutline(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	for _, m := range outline.Modules {
		h.rememberModule(m)
	}
	jsonResponse(w, outline, http.StatusOK)
}

func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	summary, err := h.orch.GenerateSummary(r.Context(), sess, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResponse(w, map[string]interface{}{"summary": summary}, http.StatusOK)
}

// === Modul Endpoints ===

func (h *Handler) rememberModule(m *models.Module) {
	h.mu.Lock()
	h.modules[m.ID] = m
	h.mu.Unlock()
}

// module liefert das zuletzt geladene Modul oder lädt es nach
func (h *Handler) module(ctx context.Context, id string) (*models.Module, error) {
	h.mu.Lock()
	m, ok := h.modules[id]
	h.mu.Unlock()
	if ok {
		return m, nil
	}
	view, err := h.orch.OpenModule(ctx, id)
	if err != nil {
		return nil, err
	}
	h.rememberModule(view.Module)
	return view.Module, nil
}

func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	view, err := h.orch.OpenModule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.rememberModule(view.Module)
	engine := h.quizzes.Reset(sess.ID, quiz.ScopeModule, view.Module.ID, view.Module.Quiz)

	jsonResponse(w, map[string]interface{}{
		"module":       view.Module,
		"previews":     view.Previews,
		"quiz":         engine.State(),
		"score":        engine.Score(),
		"chat_enabled": chat.Enabled(view.Module),
		"chat_intro":   chat.Intro(view.Module),
	}, http.StatusOK)
}

func (h *Handler) generateLock(moduleID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.generating[moduleID]
	if !ok {
		l = &sync.Mutex{}
		h.generating[moduleID] = l
	}
	return l
}

func (h *Handler) GenerateLessons(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lock := h.generateLock(id)
	lock.Lock()
	defer lock.Unlock()

	// erst unter der Sperre lesen, damit ein vorheriger Lauf enthalten ist
	mod, err := h.module(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.mu.Lock()
	// Kopie, damit parallele Leser keine halbe Liste sehen
	updated := *mod
	updated.Lessons = append([]models.LessonSummary(nil), mod.Lessons...)
	h.mu.Unlock()

	previews, err := h.orch.GenerateLessons(r.Context(), &updated)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.rememberModule(&updated)
	jsonResponse(w, map[string]interface{}{"previews": previews}, http.StatusOK)
}

func (h *Handler) ModuleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	mod, err := h.module(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}

	reply, err := h.chat.Send(r.Context(), sess.ID, mod, req.Message)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonResponse(w, reply, http.StatusOK)
}

func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	mod, err := h.module(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	messages, err := h.chat.History(sess.ID, mod)
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, messages, http.StatusOK)
}

// ModuleChatStream hält eine WebSocket-Verbindung für den Modul-Chat offen.
// Jede eingehende Nachricht ergibt genau eine Antwort oder einen Fehler.
func (h *Handler) ModuleChatStream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	mod, err := h.module(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.WriteJSON(map[string]interface{}{"role": chat.RoleAssistant, "content": chat.Intro(mod)})
	for {
		var req struct {
			Message string `json:"message"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		reply, err := h.chat.Send(r.Context(), sess.ID, mod, req.Message)
		if err != nil {
			conn.WriteJSON(map[string]string{"error": err.Error()})
			continue
		}
		conn.WriteJSON(reply)
	}
}

// === Lektion Endpoints ===

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	view, err := h.orch.OpenLesson(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := map[string]interface{}{
		"lesson":   view,
		"progress": h.lessons.Progress(id),
	}
	if view.Document != nil {
		engine := h.quizzes.Reset(sess.ID, quiz.ScopeLesson, id, view.Document.Quiz)
		resp["quiz"] = engine.State()
		resp["score"] = engine.Score()
	}
	jsonResponse(w, resp, http.StatusOK)
}

func (h *Handler) ContinueLesson(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	res, err := h.orch.ContinueLesson(r.Context(), id)
	if err != nil {
		// Inhalt bleibt erhalten; manueller Neuversuch möglich
		jsonResponse(w, map[string]interface{}{
			"error":    backend.Message(err),
			"result":   res,
			"progress": h.lessons.Progress(id),
		}, http.StatusBadGateway)
		return
	}
	if res.Outcome == lesson.Applied {
		h.quizzes.Reset(sess.ID, quiz.ScopeLesson, id, res.State.Document.Quiz)
	}
	jsonResponse(w, map[string]interface{}{
		"result":   res,
		"progress": h.lessons.Progress(id),
	}, http.StatusOK)
}

func (h *Handler) GetLessonProgress(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.lessons.Progress(mux.Vars(r)["id"]), http.StatusOK)
}

// GetLessonMarkdown rendert den aktuellen Stand einer geöffneten Lektion
func (h *Handler) GetLessonMarkdown(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var md string
	if st, ok := h.lessons.State(id); ok && st.Document != nil {
		md = render.Markdown(st.Document)
	} else {
		snap, err := h.store.GetLessonSnapshot(id)
		if err != nil {
			errorResponse(w, "Lektion nicht geöffnet", http.StatusNotFound)
			return
		}
		md = render.Plain(snap.Title, snap.Content)
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

// === Quiz Endpoints ===

func (h *Handler) quizEngine(w http.ResponseWriter, r *http.Request) (*quiz.Engine, bool) {
	sess, err := h.session(r)
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	vars := mux.Vars(r)
	scope, ok := quiz.ParseScope(vars["scope"])
	if !ok {
		errorResponse(w, "Unbekannter Quiz-Bereich", http.StatusBadRequest)
		return nil, false
	}
	engine := h.quizzes.Get(sess.ID, scope, vars["id"])
	if engine == nil {
		errorResponse(w, "Quiz nicht geladen", http.StatusNotFound)
		return nil, false
	}
	return engine, true
}

func quizResponse(w http.ResponseWriter, engine *quiz.Engine, accepted bool) {
	jsonResponse(w, map[string]interface{}{
		"accepted": accepted,
		"quiz":     engine.State(),
		"score":    engine.Score(),
	}, http.StatusOK)
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.quizEngine(w, r)
	if !ok {
		return
	}
	quizResponse(w, engine, true)
}

// SelectAnswer wählt eine Option; nach der Validierung ist das ein No-op
func (h *Handler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.quizEngine(w, r)
	if !ok {
		return
	}
	var req struct {
		Key    string `json:"key"`
		Option string `json:"option"`
	}
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	quizResponse(w, engine, engine.Select(req.Key, req.Option))
}

// ValidateAnswer validiert eine Frage endgültig
func (h *Handler) ValidateAnswer(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.quizEngine(w, r)
	if !ok {
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := decode(r, &req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	quizResponse(w, engine, engine.Validate(req.Key))
}
