// Package handlers wires HTTP requests to the domain: the session guard,
// the server-rendered pages and the JSON API.
package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"fintrack/internal/access"
	"fintrack/internal/auth"
	"fintrack/internal/models"
	"fintrack/internal/storage"

	"github.com/charmbracelet/log"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// StateCookieName carries the OAuth anti-forgery state across the redirect.
	StateCookieName = "oauth_state"
	// SessionDuration is how long sessions last (7 days).
	SessionDuration = 7 * 24 * time.Hour
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	resolver     *auth.Resolver
	github       *auth.GitHub
	templateDir  string
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, github *auth.GitHub, templateDir string, secureCookie bool) *Handlers {
	return &Handlers{
		db:           db,
		resolver:     auth.NewResolver(db),
		github:       github,
		templateDir:  templateDir,
		secureCookie: secureCookie,
	}
}

// AuthedHandler is a handler that only runs with a resolved user. The user
// arrives as an explicit parameter; nothing reads ambient auth state.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// GuardOptions configures the request guard.
type GuardOptions struct {
	// Role is the minimum role the resolved user must hold. Empty means any
	// authenticated user passes.
	Role models.Role
	// API switches denial responses from page redirects to JSON statuses.
	API bool
}

// Guard presets used by the router.
var (
	API       = GuardOptions{API: true}
	AdminAPI  = GuardOptions{Role: models.RoleAdmin, API: true}
	AdminPage = GuardOptions{Role: models.RoleAdmin}
)

// Protect wraps a handler so it only executes with a resolved,
// suitably-privileged user. Authentication is checked before role: a
// request with no session gets the not-authenticated outcome even on
// admin-only routes. Panics while resolving or handling are downgraded
// to a generic internal error at this boundary.
func (h *Handlers) Protect(next AuthedHandler, opts GuardOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in request handler", "path", r.URL.Path, "panic", rec)
				if opts.API {
					jsonError(w, http.StatusInternalServerError, "internal server error")
				} else {
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}
		}()

		user := h.currentUser(r)
		if user == nil {
			if opts.API {
				jsonError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/auth/signin", http.StatusFound)
			return
		}

		if opts.Role != "" && !access.HasRole(user, opts.Role) {
			if opts.API {
				jsonError(w, http.StatusForbidden, "access denied")
				return
			}
			http.Redirect(w, r, "/unauthorized", http.StatusFound)
			return
		}

		next(w, r, user)
	}
}

// currentUser resolves the session cookie to a user, or nil. Used directly
// by public pages that render differently for logged-in visitors.
func (h *Handlers) currentUser(r *http.Request) *models.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, _ := h.resolver.Resolve(cookie.Value)
	return user
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.Error("template error", "view", viewName, "err", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	if err := tmpl.ExecuteTemplate(w, target, data); err != nil {
		log.Error("template execution error", "view", viewName, "err", err)
	}
}
