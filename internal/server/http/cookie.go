package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

// CookieSigner writes a value cookie plus a "<name>.sig" companion holding an
// HMAC-SHA256 of "name=value". The first key signs; every key verifies, so
// keys can be rotated by prepending a new one.
type CookieSigner struct {
	keys   [][]byte
	secure bool
}

func NewCookieSigner(keys []string, secure bool) (*CookieSigner, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one cookie key is required")
	}
	s := &CookieSigner{secure: secure}
	for _, k := range keys {
		if k == "" {
			return nil, errors.New("cookie keys must not be empty")
		}
		s.keys = append(s.keys, []byte(k))
	}
	return s, nil
}

func (s *CookieSigner) sign(key []byte, name, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(name + "=" + value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Set writes the signed cookie pair with Max-Age derived from ttl.
func (s *CookieSigner) Set(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	maxAge := int(ttl / time.Second)
	for _, c := range []*http.Cookie{
		{Name: name, Value: value},
		{Name: name + ".sig", Value: s.sign(s.keys[0], name, value)},
	} {
		c.Path = "/"
		c.MaxAge = maxAge
		c.HttpOnly = httpOnly
		c.Secure = s.secure
		c.SameSite = http.SameSiteStrictMode
		http.SetCookie(w, c)
	}
}

// Get returns the cookie value only when its signature verifies.
func (s *CookieSigner) Get(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	sig, err := r.Cookie(name + ".sig")
	if err != nil {
		return "", false
	}
	for _, k := range s.keys {
		if hmac.Equal([]byte(sig.Value), []byte(s.sign(k, name, c.Value))) {
			return c.Value, true
		}
	}
	return "", false
}

// Clear expires both cookies of the pair.
func (s *CookieSigner) Clear(w http.ResponseWriter, name string) {
	for _, n := range []string{name, name + ".sig"} {
		http.SetCookie(w, &http.Cookie{
			Name:     n,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			Secure:   s.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
