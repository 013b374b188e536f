package storage

import (
	"database/sql"
	"errors"
	"time"

	"parcours/internal/models"
	"parcours/internal/session"

	_ "modernc.org/sqlite"
)

// ErrNotFound wird geliefert, wenn ein Datensatz fehlt
var ErrNotFound = errors.New("not found")

// Storage definiert das Interface für lokale Datenpersistenz
type Storage interface {
	// Sitzungen
	SaveSession(s *session.Session) error
	GetSession(id string) (*session.Session, error)
	DeleteSession(id string) error

	// Chat
	SaveChatMessage(msg *models.ChatMessage) error
	GetChatHistory(sessionID, moduleID string, limit int) ([]models.ChatMessage, error)
	DeleteChatHistory(sessionID string) error

	// Lektions-Schnappschüsse
	SaveLessonSnapshot(snap *models.LessonSnapshot) error
	GetLessonSnapshot(lessonID string) (*models.LessonSnapshot, error)

	Close() error
}

// SQLiteStorage implementiert Storage mit SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage erstellt eine neue SQLite-Storage-Instanz
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite verträgt nur einen Schreiber
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		email TEXT,
		course_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lesson_snapshots (
		lesson_id TEXT PRIMARY KEY,
		title TEXT,
		content TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_session_module ON chat_messages(session_id, module_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Sitzungen

func (s *SQLiteStorage) SaveSession(sess *session.Session) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sessions (id, user_id, email, course_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.Email, sess.CourseID, sess.CreatedAt.UTC(), sess.UpdatedAt.UTC())
	return err
}

func (s *SQLiteStorage) GetSession(id string) (*session.Session, error) {
	var sess session.Session
	err := s.db.QueryRow(`
		SELECT id, user_id, email, course_id, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.UserID, &sess.Email, &sess.CourseID, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStorage) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Chat

func (s *SQLiteStorage) SaveChatMessage(msg *models.ChatMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO chat_messages (id, session_id, module_id, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, msg.ModuleID, msg.Role, msg.Content, msg.Timestamp.UTC())
	return err
}

// GetChatHistory liefert die letzten limit Nachrichten in zeitlicher Reihenfolge
func (s *SQLiteStorage) GetChatHistory(sessionID, moduleID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, module_id, role, content, timestamp FROM (
			SELECT id, session_id, module_id, role, content, timestamp, rowid AS seq
			FROM chat_messages WHERE session_id = ? AND module_id = ?
			ORDER BY timestamp DESC, seq DESC LIMIT ?
		) ORDER BY timestamp, seq
	`, sessionID, moduleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.ModuleID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStorage) DeleteChatHistory(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	return err
}

// Lektions-Schnappschüsse

func (s *SQLiteStorage) SaveLessonSnapshot(snap *models.LessonSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO lesson_snapshots (lesson_id, title, content, updated_at)
		VALUES (?, ?, ?, ?)
	`, snap.LessonID, snap.Title, snap.Content, snap.UpdatedAt.UTC())
	return err
}

func (s *SQLiteStorage) GetLessonSnapshot(lessonID string) (*models.LessonSnapshot, error) {
	var snap models.LessonSnapshot
	err := s.db.QueryRow(`
		SELECT lesson_id, title, content, updated_at
		FROM lesson_snapshots WHERE lesson_id = ?
	`, lessonID).Scan(&snap.LessonID, &snap.Title, &snap.Content, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
