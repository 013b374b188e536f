package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcours/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestParseHTTPError(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string message", `{"message":"course not found"}`, "course not found"},
		{"nested message", `{"message":{"message":"bad profile","error":"Bad Request"}}`, "bad profile"},
		{"nested error only", `{"message":{"error":"Unauthorized"}}`, "Unauthorized"},
		{"array message", `{"message":["a","b"]}`, "HTTP 422"},
		{"no json", `<html>oops</html>`, "HTTP 422"},
		{"empty", ``, "HTTP 422"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := parseHTTPError(422, []byte(tc.body))
			assert.Equal(t, tc.want, err.Message)
			assert.Equal(t, 422, err.Status)
		})
	}
}

func TestClient_NonOKIsAPIError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"generator down"}`))
	})

	_, err := c.RunPipeline(context.Background(), "u1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "generator down", Message(err))
	assert.Equal(t, 1, calls, "no automatic retry")
}

func TestClient_RequestBodies(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		switch r.URL.Path {
		case "/ai/run-pipeline":
			_, _ = w.Write([]byte(`{"course_id":"c1","title":"KI im Vertrieb"}`))
		case "/ai/generate-summary":
			_, _ = w.Write([]byte(`{"summary":{"skills_gained":["prompting"]}}`))
		case "/chat/module/m 1":
			_, _ = w.Write([]byte(`{"reply":"Hallo"}`))
		default:
			_, _ = w.Write([]byte(`{"user_id":"u1"}`))
		}
	})
	ctx := context.Background()

	run, err := c.RunPipeline(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "POST /ai/run-pipeline", gotPath)
	assert.Equal(t, map[string]any{"user_id": "u1"}, gotBody)
	assert.Equal(t, "c1", run.CourseID)

	sum, err := c.GenerateSummary(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user_id": "u1", "course_id": "c1"}, gotBody)
	assert.NotNil(t, sum)

	reply, err := c.ChatModule(ctx, "m 1", "Was ist RAG?")
	require.NoError(t, err)
	assert.Equal(t, "Hallo", reply)
	assert.Equal(t, map[string]any{"message": "Was ist RAG?"}, gotBody)

	_, err = c.Register(ctx, "a@b.c", "pw", &models.ProfileInput{Job: "Lehrer", Sector: "Bildung"})
	require.NoError(t, err)
	assert.Equal(t, "POST /auth/register", gotPath)
	assert.Equal(t, map[string]any{"email": "a@b.c", "password": "pw", "job": "Lehrer", "sector": "Bildung"}, gotBody)
}

func TestClient_GetModuleRemapsRawShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"module_id": "m-7",
			"id": "ignored",
			"title": "Prompting",
			"orderIndex": 2,
			"lessons": [{"id": 11, "title": "Einstieg", "content": {"title": "x", "sections": []}}, "junk"],
			"quiz": [
				{"id": "q1", "question": "Was?", "options": ["a", "a", "b"]},
				{"question": "", "options": ["a"]}
			]
		}`))
	})

	mod, err := c.GetModule(context.Background(), "m-7")
	require.NoError(t, err)
	assert.Equal(t, "m-7", mod.ID)
	assert.Equal(t, "Prompting", mod.Title)
	require.NotNil(t, mod.OrderIndex)
	assert.Equal(t, 2, *mod.OrderIndex)
	assert.Equal(t, []string{}, mod.Objectives)

	require.Len(t, mod.Lessons, 1)
	assert.Equal(t, "11", mod.Lessons[0].ID)
	assert.JSONEq(t, `{"title":"x","sections":[]}`, mod.Lessons[0].Content)

	require.Len(t, mod.Quiz, 1)
	assert.Equal(t, []string{"a", "b"}, mod.Quiz[0].Options)
	assert.Equal(t, "a", mod.Quiz[0].Answer)
}

func TestClient_GetModuleDefaultsToEmptyLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"m1","title":"Leer","lessons":null,"quiz":"nope"}`))
	})

	mod, err := c.GetModule(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", mod.ID)
	assert.NotNil(t, mod.Lessons)
	assert.Empty(t, mod.Lessons)
	assert.NotNil(t, mod.Quiz)
	assert.Empty(t, mod.Quiz)
}

func TestClient_LessonCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lesson/l1":
			_, _ = w.Write([]byte(`{"id":"l1","title":"Intro","content":"Intro","module":{"id":"m1","title":"Basis"}}`))
		case "/ai/continue-lesson":
			_, _ = w.Write([]byte(`{"id":"l1","title":"Intro","content":"{\"sections\":[]}"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	l, err := c.GetLesson(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Intro", l.Content)
	require.NotNil(t, l.Module)
	assert.Equal(t, "m1", l.Module.ID)
	assert.Nil(t, l.OrderIndex)

	l, err = c.ContinueLesson(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, `{"sections":[]}`, l.Content)

	_, err = c.DevelopLesson(ctx, "l1")
	assert.EqualError(t, err, "HTTP 404")
}

func TestClient_TransportError(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.GetCourse(context.Background(), "c1")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.False(t, c.IsAvailable(context.Background()))
}

func TestClient_GetCourseDropsWrongTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "c1",
			"title": "KI für Juristen",
			"modules": [{"id": "m1", "title": "Grundlagen", "objectives": ["a", 3], "orderIndex": 0}, 7],
			"summary": {"skills_gained": "prompting", "certificate_text": "Bestanden"},
			"best_practices": null
		}`))
	})

	course, err := c.GetCourse(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "KI für Juristen", course.Title)
	require.Len(t, course.Modules, 1)
	assert.Equal(t, []string{"a"}, course.Modules[0].Objectives)
	require.NotNil(t, course.Modules[0].OrderIndex)
	assert.Equal(t, 0, *course.Modules[0].OrderIndex)
	require.NotNil(t, course.Summary)
	assert.Empty(t, course.Summary.SkillsGained)
	assert.Equal(t, "Bestanden", course.Summary.CertificateText)
}
