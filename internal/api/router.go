package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter erstellt den HTTP-Router mit allen Endpoints
func NewRouter(h *Handler, staticDir string) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Anmeldung
	api.HandleFunc("/auth/register", h.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/anonymous", h.StartAnonymous).Methods("POST")
	api.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	api.HandleFunc("/session", h.GetSession).Methods("GET")

	// Profil & Pipeline
	api.HandleFunc("/profile", h.SubmitProfile).Methods("POST")
	api.HandleFunc("/profile/resume", h.ImportResume).Methods("POST")
	api.HandleFunc("/pipeline/run", h.RunPipeline).Methods("POST")
	api.HandleFunc("/dashboard", h.GetDashboard).Methods("GET")

	// Kurse
	api.HandleFunc("/courses/{id}", h.GetCourse).Methods("GET")
	api.HandleFunc("/courses/{id}/outline", h.GetOutline).Methods("GET")
	api.HandleFunc("/courses/{id}/summary", h.GenerateSummary).Methods("POST")

	// Module
	api.HandleFunc("/modules/{id}", h.GetModule).Methods("GET")
	api.HandleFunc("/modules/{id}/lessons/generate", h.GenerateLessons).Methods("POST")
	api.HandleFunc("/modules/{id}/chat", h.ModuleChat).Methods("POST")
	api.HandleFunc("/modules/{id}/chat", h.GetChatHistory).Methods("GET")
	api.HandleFunc("/modules/{id}/chat/ws", h.ModuleChatStream).Methods("GET")

	// Lektionen
	api.HandleFunc("/lessons/{id}", h.GetLesson).Methods("GET")
	api.HandleFunc("/lessons/{id}/continue", h.ContinueLesson).Methods("POST")
	api.HandleFunc("/lessons/{id}/progress", h.GetLessonProgress).Methods("GET")
	api.HandleFunc("/lessons/{id}/markdown", h.GetLessonMarkdown).Methods("GET")

	// Quiz (scope: module|lesson)
	api.HandleFunc("/quiz/{scope}/{id}", h.GetQuiz).Methods("GET")
	api.HandleFunc("/quiz/{scope}/{id}/select", h.SelectAnswer).Methods("POST")
	api.HandleFunc("/quiz/{scope}/{id}/validate", h.ValidateAnswer).Methods("POST")

	// Statische Dateien (Frontend)
	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	// CORS für lokale Entwicklung
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", sessionHeader},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
