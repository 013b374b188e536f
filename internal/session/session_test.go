package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcours/internal/logging"
	"parcours/internal/models"
)

type fakeAuth struct {
	registered map[string]string
	extras     *models.ProfileInput
}

func (f *fakeAuth) Register(_ context.Context, email, password string, extras *models.ProfileInput) (*models.UserRef, error) {
	if _, ok := f.registered[email]; ok {
		return nil, errors.New("email already registered")
	}
	f.registered[email] = password
	f.extras = extras
	return &models.UserRef{UserID: "u-" + email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*models.UserRef, error) {
	if f.registered[email] != password {
		return nil, errors.New("invalid credentials")
	}
	return &models.UserRef{UserID: "u-" + email}, nil
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func (m *memStore) SaveSession(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetSession(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func newManager() (*Manager, *fakeAuth) {
	auth := &fakeAuth{registered: map[string]string{}}
	store := &memStore{sessions: map[string]Session{}}
	return NewManager(auth, store, logging.Nop()), auth
}

func TestManager_Lifecycle(t *testing.T) {
	m, auth := newManager()
	ctx := context.Background()

	extras := &models.ProfileInput{Job: "Analyst"}
	s, err := m.Register(ctx, " ana@example.com ", "secret", extras)
	require.NoError(t, err)
	assert.Equal(t, "u-ana@example.com", s.UserID)
	assert.Equal(t, "ana@example.com", s.Email)
	assert.NotEmpty(t, s.ID)
	assert.Same(t, extras, auth.extras)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, got.UserID)

	got.CourseID = "c-1"
	require.NoError(t, m.Update(got))
	again, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "c-1", again.CourseID)

	require.NoError(t, m.Logout(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_LoginOpensFreshSession(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	first, err := m.Register(ctx, "bo@example.com", "pw", nil)
	require.NoError(t, err)
	second, err := m.Login(ctx, "bo@example.com", "pw")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.UserID, second.UserID)

	_, err = m.Login(ctx, "bo@example.com", "wrong")
	assert.EqualError(t, err, "invalid credentials")
}

func TestManager_MissingCredentials(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	_, err := m.Register(ctx, "  ", "pw", nil)
	assert.ErrorIs(t, err, ErrMissingCreds)
	_, err = m.Login(ctx, "a@b.c", "")
	assert.ErrorIs(t, err, ErrMissingCreds)
	assert.EqualError(t, err, "E-Mail und Passwort erforderlich")
}

func TestManager_Anonymous(t *testing.T) {
	m, _ := newManager()

	s, err := m.Anonymous()
	require.NoError(t, err)
	assert.Empty(t, s.UserID)

	_, err = m.Get("")
	assert.ErrorIs(t, err, ErrNotFound)
}
