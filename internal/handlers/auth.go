package handlers

import (
	"net/http"
	"time"

	"fintrack/internal/auth"

	"github.com/charmbracelet/log"
)

// GitHubLogin starts the OAuth flow: it stores a random state value in a
// short-lived cookie and redirects to the provider's authorize endpoint.
func (h *Handlers) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewSessionToken()
	if err != nil {
		log.Error("failed to generate oauth state", "err", err)
		http.Redirect(w, r, "/auth/signin?error=oauth", http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.LoginURL(state), http.StatusFound)
}

// GitHubCallback finishes the OAuth flow: it verifies the state value,
// exchanges the code, fetches the remote profile, upserts the local user,
// creates a session and redirects to the dashboard.
func (h *Handlers) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		log.Warn("oauth state mismatch")
		http.Redirect(w, r, "/auth/signin?error=state", http.StatusFound)
		return
	}
	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: StateCookieName, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/auth/signin?error=denied", http.StatusFound)
		return
	}

	profile, err := h.github.FetchProfile(r.Context(), code)
	if err != nil {
		log.Error("github profile fetch failed", "err", err)
		http.Redirect(w, r, "/auth/signin?error=oauth", http.StatusFound)
		return
	}

	user, err := h.db.UpsertUser(profile.Email, profile.Name, profile.AvatarURL)
	if err != nil {
		log.Error("user upsert failed", "err", err)
		http.Redirect(w, r, "/auth/signin?error=internal", http.StatusFound)
		return
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		log.Error("failed to generate session token", "err", err)
		http.Redirect(w, r, "/auth/signin?error=internal", http.StatusFound)
		return
	}
	if _, err := h.db.CreateSession(token, user.ID, time.Now().Add(SessionDuration)); err != nil {
		log.Error("failed to create session", "err", err)
		http.Redirect(w, r, "/auth/signin?error=internal", http.StatusFound)
		return
	}

	h.setSessionCookie(w, token)
	log.Info("user signed in", "user", user.ID, "email", user.Email)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// SignOut deletes the current session and clears the cookie.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			log.Error("failed to delete session", "err", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}
