// Package app verdrahtet Speicher, Backend-Client und die Kernkomponenten.
// Server und CLI teilen sich diese Verdrahtung.
package app

import (
	"fmt"
	"net/http"

	"parcours/internal/api"
	"parcours/internal/backend"
	"parcours/internal/chat"
	"parcours/internal/config"
	"parcours/internal/lesson"
	"parcours/internal/logging"
	"parcours/internal/pipeline"
	"parcours/internal/quiz"
	"parcours/internal/session"
	"parcours/internal/storage"
)

// App hält alle Komponenten eines Prozesses
type App struct {
	Config       *config.Config
	Log          *logging.Logger
	Store        storage.Storage
	Backend      *backend.Client
	Sessions     *session.Manager
	Lessons      *lesson.Controller
	Quizzes      *quiz.Store
	Chat         *chat.Service
	Orchestrator *pipeline.Orchestrator
}

// New öffnet die Datenbank und baut alle Komponenten auf
func New(cfg *config.Config, log *logging.Logger) (*App, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("datenbank %s: %w", cfg.DatabasePath, err)
	}
	return NewWithStore(cfg, log, store), nil
}

// NewWithStore baut alle Komponenten über einen vorhandenen Speicher auf
func NewWithStore(cfg *config.Config, log *logging.Logger, store storage.Storage) *App {
	client := backend.New(backend.Options{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.RequestTimeout(),
	})
	lessons := lesson.NewController(client, log, cfg.RequestTimeout())
	sessions := session.NewManager(client, store, log)
	orch := pipeline.New(client, sessions, lessons, store, log, pipeline.Options{
		MinLessonLength:    cfg.MinLessonLength,
		OutlineConcurrency: cfg.OutlineConcurrency,
	})

	return &App{
		Config:       cfg,
		Log:          log,
		Store:        store,
		Backend:      client,
		Sessions:     sessions,
		Lessons:      lessons,
		Quizzes:      quiz.NewStore(),
		Chat:         chat.NewService(client, store, log, cfg.ChatHistoryLimit),
		Orchestrator: orch,
	}
}

// Router liefert den HTTP-Handler der lokalen API
func (a *App) Router() http.Handler {
	h := api.NewHandler(api.Deps{
		Store:        a.Store,
		Sessions:     a.Sessions,
		Orchestrator: a.Orchestrator,
		Lessons:      a.Lessons,
		Quizzes:      a.Quizzes,
		Chat:         a.Chat,
		Health:       a.Backend,
		Log:          a.Log,
	})
	return api.NewRouter(h, a.Config.StaticDir)
}

func (a *App) Close() error {
	return a.Store.Close()
}
