package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcours/internal/models"
	"parcours/internal/session"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "parcours.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessions(t *testing.T) {
	s := newTestStorage(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.GetSession("fehlt")
	assert.ErrorIs(t, err, session.ErrNotFound)

	sess := &session.Session{ID: "s1", UserID: "u1", Email: "a@b.c", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.SaveSession(sess))

	sess.CourseID = "c1"
	sess.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.SaveSession(sess))

	got, err := s.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "c1", got.CourseID)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Minute)))

	require.NoError(t, s.DeleteSession("s1"))
	_, err = s.GetSession("s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestChatHistory_LastNInOrder(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, text := range []string{"eins", "zwei", "drei", "vier"} {
		require.NoError(t, s.SaveChatMessage(&models.ChatMessage{
			ID:        text,
			SessionID: "s1",
			ModuleID:  "m1",
			Role:      "user",
			Content:   text,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.SaveChatMessage(&models.ChatMessage{
		ID: "fremd", SessionID: "s1", ModuleID: "m2", Role: "user", Content: "anderes Modul", Timestamp: base,
	}))

	msgs, err := s.GetChatHistory("s1", "m1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "drei", msgs[0].Content)
	assert.Equal(t, "vier", msgs[1].Content)

	all, err := s.GetChatHistory("s1", "m1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, s.DeleteChatHistory("s1"))
	all, err = s.GetChatHistory("s1", "m2", 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLessonSnapshot_Upsert(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetLessonSnapshot("l1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveLessonSnapshot(&models.LessonSnapshot{LessonID: "l1", Title: "Intro", Content: "alt"}))
	require.NoError(t, s.SaveLessonSnapshot(&models.LessonSnapshot{LessonID: "l1", Title: "Intro", Content: "neu"}))

	snap, err := s.GetLessonSnapshot("l1")
	require.NoError(t, err)
	assert.Equal(t, "neu", snap.Content)
	assert.False(t, snap.UpdatedAt.IsZero())
}
