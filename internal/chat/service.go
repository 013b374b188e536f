// Package chat leitet Fragen an den Modul-Chatbot des Backends weiter und
// hält den Verlauf lokal.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcours/internal/logging"
	"parcours/internal/models"
)

var (
	ErrEmptyMessage = errors.New("leere Nachricht")
	ErrChatDisabled = errors.New("der Chatbot hat keinen Kontext für dieses Modul")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	introWithContext    = "Du kannst Fragen zu diesem Modul stellen."
	introWithoutContext = "Der Chatbot hat keinen Kontext für dieses Modul."
)

// Backend ist der Chat-Endpunkt des Backends
type Backend interface {
	ChatModule(ctx context.Context, moduleID, message string) (string, error)
}

// History persistiert Chatnachrichten
type History interface {
	SaveChatMessage(msg *models.ChatMessage) error
	GetChatHistory(sessionID, moduleID string, limit int) ([]models.ChatMessage, error)
}

// Service ist der Modul-Chat
type Service struct {
	backend Backend
	history History
	log     *logging.Logger
	limit   int
	now     func() time.Time
}

func NewService(backend Backend, history History, log *logging.Logger, historyLimit int) *Service {
	return &Service{backend: backend, history: history, log: log, limit: historyLimit, now: time.Now}
}

// Intro ist die erste Assistentennachricht eines Moduls
func Intro(mod *models.Module) string {
	if Enabled(mod) {
		return introWithContext
	}
	return introWithoutContext
}

// Enabled meldet, ob das Modul einen Chatbot-Kontext hat
func Enabled(mod *models.Module) bool {
	return mod != nil && strings.TrimSpace(mod.ChatbotContext) != ""
}

// Send zeichnet die Nutzernachricht auf und fragt das Backend, sofern der
// Chat für das Modul aktiv ist. Ein Backendfehler wird als
// Assistentennachricht aufgezeichnet und zurückgegeben.
func (s *Service) Send(ctx context.Context, sessionID string, mod *models.Module, message string) (*models.ChatMessage, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	s.record(sessionID, mod.ID, RoleUser, text)

	if !Enabled(mod) {
		return nil, ErrChatDisabled
	}

	reply, err := s.backend.ChatModule(ctx, mod.ID, text)
	if err != nil {
		s.log.Warn("Chat fehlgeschlagen", "module", mod.ID, "error", err)
		s.record(sessionID, mod.ID, RoleAssistant, "Fehler: "+err.Error())
		return nil, err
	}
	return s.record(sessionID, mod.ID, RoleAssistant, reply), nil
}

// History liefert Intro und bisherigen Verlauf eines Moduls
func (s *Service) History(sessionID string, mod *models.Module) ([]models.ChatMessage, error) {
	msgs, err := s.history.GetChatHistory(sessionID, mod.ID, s.limit)
	if err != nil {
		return nil, err
	}
	intro := models.ChatMessage{SessionID: sessionID, ModuleID: mod.ID, Role: RoleAssistant, Content: Intro(mod)}
	return append([]models.ChatMessage{intro}, msgs...), nil
}

func (s *Service) record(sessionID, moduleID, role, content string) *models.ChatMessage {
	msg := &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ModuleID:  moduleID,
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	if err := s.history.SaveChatMessage(msg); err != nil {
		s.log.Error("Chatnachricht nicht gespeichert", "module", moduleID, "error", err)
	}
	return msg
}
