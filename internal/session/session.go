// Package session hält den expliziten Sitzungskontext (Nutzer- und Kurs-ID),
// den der Kern bei jeder Operation übergeben bekommt.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcours/internal/logging"
	"parcours/internal/models"
)

var (
	ErrNotFound     = errors.New("Sitzung nicht gefunden")
	ErrMissingCreds = errors.New("E-Mail und Passwort erforderlich")
)

// Session ist der Kontext eines angemeldeten Nutzers
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	CourseID  string    `json:"course_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persistiert Sitzungen
type Store interface {
	SaveSession(s *Session) error
	GetSession(id string) (*Session, error) // ErrNotFound, wenn unbekannt
	DeleteSession(id string) error
}

// Authenticator ist der Teil des Backends für Registrierung und Anmeldung
type Authenticator interface {
	Register(ctx context.Context, email, password string, extras *models.ProfileInput) (*models.UserRef, error)
	Login(ctx context.Context, email, password string) (*models.UserRef, error)
}

// Manager verwaltet den Lebenszyklus: erstellt bei Login/Registrierung,
// gelesen von jeder Kernoperation, gelöscht beim Logout
type Manager struct {
	auth  Authenticator
	store Store
	log   *logging.Logger
	now   func() time.Time
}

func NewManager(auth Authenticator, store Store, log *logging.Logger) *Manager {
	return &Manager{auth: auth, store: store, log: log, now: time.Now}
}

// Register legt ein Konto an und öffnet eine Sitzung
func (m *Manager) Register(ctx context.Context, email, password string, extras *models.ProfileInput) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCreds
	}
	ref, err := m.auth.Register(ctx, email, password, extras)
	if err != nil {
		return nil, err
	}
	return m.open(ref.UserID, email)
}

// Login meldet an und öffnet eine Sitzung
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCreds
	}
	ref, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ref.UserID, email)
}

// Anonymous öffnet eine Sitzung ohne Konto; die Nutzer-ID entsteht erst beim
// Absenden des Profils
func (m *Manager) Anonymous() (*Session, error) {
	return m.open("", "")
}

func (m *Manager) open(userID, email string) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveSession(s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.log.Info("Sitzung geöffnet", "session", s.ID, "has_user", userID != "")
	return s, nil
}

// Get lädt eine Sitzung
func (m *Manager) Get(id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return m.store.GetSession(id)
}

// Update speichert geänderte Nutzer- oder Kurs-IDs
func (m *Manager) Update(s *Session) error {
	s.UpdatedAt = m.now()
	return m.store.SaveSession(s)
}

// Logout löscht die Sitzung
func (m *Manager) Logout(id string) error {
	if err := m.store.DeleteSession(id); err != nil {
		return err
	}
	m.log.Info("Sitzung geschlossen", "session", id)
	return nil
}
