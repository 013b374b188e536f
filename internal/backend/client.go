// Package backend ist der REST-Client für den externen Kursgenerator.
// Jede Methode ist ein dünner Request/Response-Adapter ohne Wiederholungen.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parcours/internal/content"
	"parcours/internal/models"
)

const maxResponseBytes = 8 << 20

// Options konfiguriert den Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client spricht mit dem Kursgenerator-Backend
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// New erstellt einen neuen Client
func New(opts Options) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    opts.Timeout,
		httpClient: hc,
	}
}

// BaseURL liefert die konfigurierte Backend-Adresse
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsAvailable prüft, ob das Backend antwortet
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// ---- Auth & Profil ----

// Register legt ein Konto an; die optionalen Profilfelder werden in den
// Body übernommen
func (c *Client) Register(ctx context.Context, email, password string, extras *models.ProfileInput) (*models.UserRef, error) {
	body := map[string]any{"email": email, "password": password}
	if extras != nil {
		if extras.Job != "" {
			body["job"] = extras.Job
		}
		if extras.Sector != "" {
			body["sector"] = extras.Sector
		}
		if extras.AILevel != "" {
			body["ai_level"] = extras.AILevel
		}
		if extras.ToolsUsed != nil {
			body["tools_used"] = extras.ToolsUsed
		}
		if extras.WorkStyle != "" {
			body["work_style"] = extras.WorkStyle
		}
	}
	var out models.UserRef
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.UserRef, error) {
	var out models.UserRef
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitProfile(ctx context.Context, in *models.ProfileInput) (*models.UserRef, error) {
	var out models.UserRef
	if err := c.doJSON(ctx, http.MethodPost, "/profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToolsPractices(ctx context.Context, userID string) (*models.ToolsPractices, error) {
	var out models.ToolsPractices
	if err := c.doJSON(ctx, http.MethodPost, "/ai/tools-practices", map[string]string{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Pipeline & Kurs ----

func (c *Client) RunPipeline(ctx context.Context, userID string) (*models.PipelineRun, error) {
	var out models.PipelineRun
	if err := c.doJSON(ctx, http.MethodPost, "/ai/run-pipeline", map[string]string{"user_id": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCourse lädt das Kurs-Aggregat; Felder falschen Typs werden verworfen
func (c *Client) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/course/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return remapCourse(raw), nil
}

func remapCourse(raw map[string]any) *models.Course {
	course := &models.Course{
		ID:            content.CoerceString(raw["id"]),
		Title:         content.CoerceOptionalString(raw["title"]),
		Modules:       []models.ModuleSummary{},
		BestPractices: content.OnlyStrings(raw["best_practices"]),
	}
	if arr, ok := raw["modules"].([]any); ok {
		for _, it := range arr {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			course.Modules = append(course.Modules, models.ModuleSummary{
				ID:          content.CoerceString(obj["id"]),
				Title:       content.CoerceOptionalString(obj["title"]),
				Description: content.CoerceOptionalString(obj["description"]),
				Objectives:  content.OnlyStrings(obj["objectives"]),
				OrderIndex:  optionalInt(obj["orderIndex"]),
			})
		}
	}
	if sum, ok := content.CoerceObject(raw["summary"]); ok {
		course.Summary = &models.CourseSummary{
			CertificateText: content.CoerceOptionalString(sum["certificate_text"]),
			SkillsGained:    content.OnlyStrings(sum["skills_gained"]),
			Profile:         sum["profile"],
		}
	}
	return course
}

func (c *Client) UserCourses(ctx context.Context, userID string) ([]models.UserCourse, error) {
	var out []models.UserCourse
	if err := c.doJSON(ctx, http.MethodGet, "/courses/by-user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.UserCourse{}
	}
	return out, nil
}

// GenerateSummary liefert die rohe Zusammenfassung; ihre Form ist nicht festgelegt
func (c *Client) GenerateSummary(ctx context.Context, userID, courseID string) (any, error) {
	var out struct {
		Summary any `json:"summary"`
	}
	body := map[string]string{"user_id": userID, "course_id": courseID}
	if err := c.doJSON(ctx, http.MethodPost, "/ai/generate-summary", body, &out); err != nil {
		return nil, err
	}
	return out.Summary, nil
}

// ---- Modul ----

// GetModule lädt ein Modul und bildet die Rohform ab: module_id|id → id,
// fehlende Listen werden leer, das Quiz läuft durch den Normalizer
func (c *Client) GetModule(ctx context.Context, id string) (*models.Module, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/module/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return remapModule(raw), nil
}

func remapModule(raw map[string]any) *models.Module {
	mod := &models.Module{
		Title:          content.CoerceOptionalString(raw["title"]),
		Description:    content.CoerceOptionalString(raw["description"]),
		Objectives:     content.CoerceStrings(raw["objectives"]),
		OrderIndex:     optionalInt(raw["orderIndex"]),
		Lessons:        []models.LessonSummary{},
		Quiz:           content.NormalizeQuiz(raw["quiz"]),
		ChatbotContext: content.CoerceOptionalString(raw["chatbot_context"]),
	}
	if v, ok := raw["module_id"]; ok && v != nil {
		mod.ID = content.CoerceString(v)
	} else {
		mod.ID = content.CoerceString(raw["id"])
	}
	if mod.Quiz == nil {
		mod.Quiz = []content.QuizQuestion{}
	}
	if arr, ok := raw["lessons"].([]any); ok {
		for _, it := range arr {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			mod.Lessons = append(mod.Lessons, models.LessonSummary{
				ID:         content.CoerceString(obj["id"]),
				Title:      content.CoerceOptionalString(obj["title"]),
				Content:    lessonContent(obj["content"]),
				OrderIndex: optionalInt(obj["orderIndex"]),
			})
		}
	}
	return mod
}

// ---- Lektion ----

func (c *Client) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	return c.lessonCall(ctx, http.MethodGet, "/lesson/"+url.PathEscape(id), nil)
}

// DevelopLesson entwickelt eine Lektion einmalig; der Inhalt wird ersetzt
func (c *Client) DevelopLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	return c.lessonCall(ctx, http.MethodPost, "/ai/develop-lesson", map[string]string{"lesson_id": lessonID})
}

// ContinueLesson erweitert eine Lektion um einen Schritt; der Inhalt wird ersetzt
func (c *Client) ContinueLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	return c.lessonCall(ctx, http.MethodPost, "/ai/continue-lesson", map[string]string{"lesson_id": lessonID})
}

func (c *Client) lessonCall(ctx context.Context, method, path string, body any) (*models.Lesson, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	lesson := &models.Lesson{
		ID:         content.CoerceString(raw["id"]),
		Title:      content.CoerceOptionalString(raw["title"]),
		Content:    lessonContent(raw["content"]),
		OrderIndex: optionalInt(raw["orderIndex"]),
	}
	if m, ok := raw["module"].(map[string]any); ok {
		lesson.Module = &models.ModuleRef{
			ID:    content.CoerceString(m["id"]),
			Title: content.CoerceOptionalString(m["title"]),
		}
	}
	return lesson, nil
}

// GenerateLessons erzeugt weitere Lektionen für ein Modul
func (c *Client) GenerateLessons(ctx context.Context, moduleID string) ([]models.LessonSummary, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodPost, "/ai/generate-lessons", map[string]string{"module_id": moduleID}, &raw); err != nil {
		return nil, err
	}
	mod := remapModule(map[string]any{"lessons": raw["lessons"]})
	return mod.Lessons, nil
}

// ---- Chat ----

func (c *Client) ChatModule(ctx context.Context, moduleID, message string) (string, error) {
	var out struct {
		Reply any `json:"reply"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/module/"+url.PathEscape(moduleID), map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	return content.CoerceString(out.Reply), nil
}

// ---------------- HTTP helpers ----------------

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend nicht erreichbar: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("ungültige Antwort von %s: %w", path, err)
	}
	return nil
}

// lessonContent liefert Strings unverändert; strukturierte Inhalte werden
// serialisiert, damit der Normalizer sie parsen kann
func lessonContent(v any) string {
	return content.CoerceString(v)
}

func optionalInt(v any) *int {
	if v == nil {
		return nil
	}
	const missing = -1 << 31
	n := content.CoerceInt(v, missing)
	if n == missing {
		return nil
	}
	return &n
}

