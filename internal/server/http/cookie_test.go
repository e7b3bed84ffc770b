package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestCookieSigner_RoundTrip(t *testing.T) {
	s, err := NewCookieSigner([]string{"k1"}, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Set(rec, "refreshToken", "abc.def.ghi", time.Hour, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, 3600, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	}

	got, ok := s.Get(requestWith(cookies), "refreshToken")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", got)
}

func TestCookieSigner_RejectsTampering(t *testing.T) {
	s, err := NewCookieSigner([]string{"k1"}, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Set(rec, "accessToken", "original", time.Minute, false)
	cookies := rec.Result().Cookies()

	cookies[0].Value = "forged"
	_, ok := s.Get(requestWith(cookies), "accessToken")
	assert.False(t, ok)

	_, ok = s.Get(requestWith(cookies[:1]), "accessToken")
	assert.False(t, ok, "unsigned cookie must be rejected")
}

func TestCookieSigner_KeyRotation(t *testing.T) {
	old, err := NewCookieSigner([]string{"old"}, false)
	require.NoError(t, err)
	rotated, err := NewCookieSigner([]string{"new", "old"}, false)
	require.NoError(t, err)
	other, err := NewCookieSigner([]string{"unrelated"}, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	old.Set(rec, "accessToken", "v", time.Minute, false)
	cookies := rec.Result().Cookies()

	got, ok := rotated.Get(requestWith(cookies), "accessToken")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = other.Get(requestWith(cookies), "accessToken")
	assert.False(t, ok)
}

func TestCookieSigner_Clear(t *testing.T) {
	s, err := NewCookieSigner([]string{"k"}, true)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Clear(rec, "refreshToken")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "refreshToken", cookies[0].Name)
	assert.Equal(t, "refreshToken.sig", cookies[1].Name)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
		assert.True(t, c.Secure)
	}
}

func TestNewCookieSigner_RequiresKeys(t *testing.T) {
	_, err := NewCookieSigner(nil, false)
	assert.Error(t, err)
	_, err = NewCookieSigner([]string{""}, false)
	assert.Error(t, err)
}
