package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookieName = "admin_session"
	adminTokenTTL   = 24 * time.Hour
)

// tokenStore holds issued admin tokens in memory. Admin sessions do not
// need to outlive the process.
type tokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newTokenStore() *tokenStore {
	return &tokenStore{tokens: make(map[string]time.Time)}
}

func (s *tokenStore) Issue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = time.Now().Add(adminTokenTTL)
	return token, nil
}

func (s *tokenStore) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	password := formOrJSON(r, "password")
	if err := bcrypt.CompareHashAndPassword(h.adminHash, []byte(password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
		return
	}

	token, err := h.adminTokens.Issue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// requireAdmin checks for a valid admin token cookie.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil || cookie.Value == "" || !h.adminTokens.Valid(cookie.Value) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
