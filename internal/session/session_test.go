package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*RedisStore)(nil)

func newManager(store Store) *Manager {
	return NewManager(store, Options{CookieName: "sid", Secret: "test-secret", TTL: time.Hour})
}

// carry copies the cookies set on rec onto a fresh request
func carry(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestManager_RejectsForeignCookies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Start(ctx, rec, httptest.NewRequest(http.MethodPost, "/login", nil), "user-1"))
	value := rec.Result().Cookies()[0].Value

	tampered := []byte(value)
	i := len(tampered) / 2
	if tampered[i] == 'A' {
		tampered[i] = 'B'
	} else {
		tampered[i] = 'A'
	}

	otherSecret := httptest.NewRecorder()
	require.NoError(t, NewManager(store, Options{CookieName: "sid", Secret: "other", TTL: time.Hour}).
		Start(ctx, otherSecret, httptest.NewRequest(http.MethodPost, "/", nil), "user-2"))

	otherName := httptest.NewRecorder()
	require.NoError(t, NewManager(store, Options{CookieName: "other", Secret: "test-secret", TTL: time.Hour}).
		Start(ctx, otherName, httptest.NewRequest(http.MethodPost, "/", nil), "user-3"))

	tests := []struct {
		name  string
		value string
	}{
		{"tampered", string(tampered)},
		{"other secret", otherSecret.Result().Cookies()[0].Value},
		{"other cookie name", otherName.Result().Cookies()[0].Value},
		{"bare id", "0b6f1c7e-5d0c-4a7e-9f3e-3c1f5e2a9b10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.AddCookie(&http.Cookie{Name: "sid", Value: tt.value})
			_, err := m.UserID(ctx, r)
			assert.ErrorIs(t, err, ErrNoSession)
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: value})
	userID, err := m.UserID(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestManager_StartAndResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Start(ctx, rec, httptest.NewRequest(http.MethodPost, "/login", nil), "user-1"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	userID, err := m.UserID(ctx, carry(rec))
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestManager_NoCookieOrTampered(t *testing.T) {
	ctx := context.Background()
	m := newManager(NewMemoryStore())

	_, err := m.UserID(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "forged.0000"})
	_, err = m.UserID(ctx, r)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_StartReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	first := httptest.NewRecorder()
	require.NoError(t, m.Start(ctx, first, httptest.NewRequest(http.MethodPost, "/", nil), "user-1"))

	second := httptest.NewRecorder()
	require.NoError(t, m.Start(ctx, second, carry(first), "user-2"))

	assert.Equal(t, 1, store.Len())
	_, err := m.UserID(ctx, carry(first))
	assert.ErrorIs(t, err, ErrNoSession)

	userID, err := m.UserID(ctx, carry(second))
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)
}

func TestManager_Destroy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newManager(store)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Start(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), "user-1"))

	out := httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, out, carry(rec)))

	assert.Equal(t, 0, store.Len())
	cookies := out.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Delete(ctx context.Context, id string) error {
	return errors.New("store down")
}

func TestManager_DestroyStoreError(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore()}
	m := newManager(store)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Start(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), "user-1"))

	err := m.Destroy(ctx, httptest.NewRecorder(), carry(rec))
	assert.ErrorContains(t, err, "store down")
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "a", "u1", time.Minute))
	require.NoError(t, store.Save(ctx, "b", "u2", time.Hour))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Equal(t, 1, store.Sweep(now))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, store.Sweep(now))
}

func TestNewSweeper(t *testing.T) {
	log := logrus.New()

	c, err := NewSweeper(NewMemoryStore(), "@every 1m", log)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = NewSweeper(NewMemoryStore(), "whenever", log)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "whenever"))
}
