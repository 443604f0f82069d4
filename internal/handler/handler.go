// Package handler exposes the quiz over a thin JSON boundary. The
// browser client owns rendering, the countdown timer, and focus-loss
// detection; it reports outcomes here.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/santhoshgo28/kt-quiz/internal/i18n"
	"github.com/santhoshgo28/kt-quiz/internal/ledger"
	"github.com/santhoshgo28/kt-quiz/internal/model"
	"github.com/santhoshgo28/kt-quiz/internal/quiz"
	"github.com/santhoshgo28/kt-quiz/internal/roster"
)

const sessionCookieName = "quiz_session"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	ctrl        *quiz.Controller
	ledger      ledger.Ledger
	roster      *roster.Roster
	cfg         model.QuizConfig
	adminHash   []byte // nil disables the admin surface
	adminTokens *tokenStore
}

// New creates a Handler. An empty adminPassword disables admin routes.
func New(ctrl *quiz.Controller, led ledger.Ledger, r *roster.Roster, cfg model.QuizConfig, adminPassword string) (*Handler, error) {
	h := &Handler{
		ctrl:        ctrl,
		ledger:      led,
		roster:      r,
		cfg:         cfg,
		adminTokens: newTokenStore(),
	}
	if adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		h.adminHash = hash
	}
	return h, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/start", h.handleStart)
	r.Get("/question", h.handleQuestion)
	r.Post("/submit", h.handleSubmit)
	r.Post("/skip", h.handleSkip)
	r.Post("/timeout", h.handleTimeout)
	r.Post("/terminate", h.handleTerminate)
	r.Get("/results", h.handleResults)

	if h.adminHash != nil {
		r.Post("/admin/login", h.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/admin/results", h.handleAdminResults)
			r.Get("/admin/participants", h.handleAdminParticipants)
		})
	}
}

type questionPayload struct {
	Index   int       `json:"index"`
	Total   int       `json:"total"`
	Text    string    `json:"text"`
	Options [4]string `json:"options"`
}

type resultPayload struct {
	Done       bool               `json:"done"`
	Terminated bool               `json:"terminated,omitempty"`
	Persisted  bool               `json:"persisted"`
	Result     model.ResultRecord `json:"result"`
	Message    string             `json:"message"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorPayload{Error: code, Message: message})
}

// formOrJSON reads a field from a form post or a JSON object body.
func formOrJSON(r *http.Request, field string) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			return body[field]
		}
		return ""
	}
	return r.FormValue(field)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.SecureCookies,
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(formOrJSON(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name_required", "")
		return
	}

	sess, resumed, err := h.ctrl.Start(name)
	if err != nil {
		if errors.Is(err, quiz.ErrUnauthorizedParticipant) {
			writeError(w, http.StatusForbidden, "unauthorized_participant",
				appI18n.T(r.Context(), "UnauthorizedParticipant"))
			return
		}
		slog.Error("start failed", "participant", name, "error", err)
		writeError(w, http.StatusInternalServerError, "bank_load_failed",
			appI18n.T(r.Context(), "BankLoadError"))
		return
	}
	if resumed {
		slog.Debug("start resumed existing session", "participant", name)
	}

	h.setSessionCookie(w, sess.ID, 0)
	h.respondProgress(w, r, sess)
}

// currentSession resolves the caller's live session or answers with the
// JSON equivalent of a redirect back to the login step.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) *model.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "no_active_session",
			appI18n.T(r.Context(), "NoActiveSession"))
		return nil
	}
	sess, err := h.ctrl.Get(cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no_active_session",
			appI18n.T(r.Context(), "NoActiveSession"))
		return nil
	}
	return sess
}

// respondProgress serves the current question, or, once the last
// question has been advanced past, persists the Completed record and
// returns it in the same response (persist-and-display is one step).
func (h *Handler) respondProgress(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	if q, ok := h.ctrl.Current(sess); ok {
		writeJSON(w, http.StatusOK, questionPayload{
			Index:   sess.Current,
			Total:   len(sess.Questions),
			Text:    q.Text,
			Options: q.Options,
		})
		return
	}

	rec, persisted, err := h.ctrl.Complete(sess)
	if err != nil {
		slog.Error("complete failed", "participant", sess.Participant, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	h.setSessionCookie(w, "", -1)
	msg := appI18n.T(r.Context(), "ResultRecorded")
	if !persisted {
		msg = appI18n.T(r.Context(), "ResultNotRecorded")
	}
	writeJSON(w, http.StatusOK, resultPayload{
		Done:      true,
		Persisted: persisted,
		Result:    rec,
		Message:   msg,
	})
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w, r)
	if sess == nil {
		return
	}
	h.respondProgress(w, r, sess)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w, r)
	if sess == nil {
		return
	}

	opt, ok := model.ParseOption(formOrJSON(r, "option"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_option", "")
		return
	}
	h.advance(w, r, sess, &opt)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w, r)
	if sess == nil {
		return
	}
	h.advance(w, r, sess, nil)
}

// A timer expiry is functionally identical to an explicit skip.
func (h *Handler) handleTimeout(w http.ResponseWriter, r *http.Request) {
	h.handleSkip(w, r)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request, sess *model.Session, chosen *model.Option) {
	if err := h.ctrl.Submit(sess, chosen); err != nil {
		writeError(w, http.StatusConflict, "session_finished", "")
		return
	}
	h.respondProgress(w, r, sess)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(w, r)
	if sess == nil {
		return
	}

	reason := formOrJSON(r, "reason")
	if reason == "" {
		reason = "unspecified"
	}

	rec, persisted, err := h.ctrl.Terminate(sess, reason)
	if err != nil {
		writeError(w, http.StatusConflict, "session_finished", "")
		return
	}
	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, resultPayload{
		Done:       true,
		Terminated: true,
		Persisted:  persisted,
		Result:     rec,
		Message:    appI18n.T(r.Context(), "SessionTerminated"),
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name_required", "")
		return
	}

	records, err := h.ctrl.Results(name)
	if err != nil {
		slog.Error("results query failed", "participant", name, "error", err)
		writeError(w, http.StatusInternalServerError, "ledger_read_failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleAdminResults(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.All()
	if err != nil {
		slog.Error("admin results query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ledger_read_failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleAdminParticipants(w http.ResponseWriter, r *http.Request) {
	names := h.roster.Names()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"participants": names})
}
