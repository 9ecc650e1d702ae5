package web

import (
	"context"
	"errors"
	"net/http"

	"turntable/internal/domain"
	"turntable/internal/session"
)

// handleLogin issues a CSRF state and redirects the browser to the consent
// dialog.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := s.states.Issue()
	url := s.session.AuthURL(state)
	s.logger.InfoContext(r.Context(), "redirecting to consent dialog")
	http.Redirect(w, r, url, http.StatusFound)
}

// handleCallback finishes the authorization flow when the provider redirects
// back. The state parameter is validated first and consumed either way, so a
// replayed callback never reaches the exchange.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		s.logger.WarnContext(ctx, "callback carries provider error", "provider_error", errParam)
		detail := q.Get("error_description")
		if detail == "" {
			detail = errParam
		}
		renderPage(w, http.StatusBadRequest, "Authorization declined", detail)
		return
	}

	if state := q.Get("state"); state == "" || !s.states.Redeem(state) {
		s.logger.WarnContext(ctx, "callback with invalid or reused state")
		renderPage(w, http.StatusForbidden, "Login session invalid",
			"This login link expired or was already used. Start over at /login.")
		return
	}

	code := q.Get("code")
	if code == "" {
		renderPage(w, http.StatusBadRequest, "Callback incomplete",
			"The provider sent no authorization code.")
		return
	}

	if err := s.session.HandleCallback(ctx, code); err != nil {
		status := http.StatusInternalServerError
		var exErr *session.ExchangeError
		if errors.As(err, &exErr) {
			status = http.StatusBadGateway
		}
		renderPage(w, status, "Sign-in failed",
			"Completing the sign-in did not work. Check the logs and try again.")
		return
	}

	s.signalAuthenticated()
	s.cacheProfile(ctx)
	renderPage(w, http.StatusOK, "Connected to Spotify",
		"You can close this window.")
}

// cacheProfile fetches the signed-in user's profile and caches it for the
// status endpoints. Best effort: failures are logged and the flow goes on.
func (s *Server) cacheProfile(ctx context.Context) {
	client, err := s.session.Client(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping profile fetch", "error", err)
		return
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "fetching user profile failed", "error", err)
		return
	}
	p := domain.Profile{ID: user.ID, DisplayName: user.DisplayName}
	if err := s.cache.Put(ctx, domain.ProfileCacheKey, p); err != nil {
		s.logger.WarnContext(ctx, "caching user profile failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "cached user profile", "user_id", user.ID)
}

// handleStatus reports the session state. Asking counts as using the
// session: a stale record is refreshed before answering.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := StatusResponse{Authenticated: s.session.IsAuthenticated(ctx)}
	if st := s.session.Status(); resp.Authenticated && st.Token != nil {
		resp.ExpiresAt = st.Token.ExpiresAt
		resp.Scope = st.Token.Scope

		var p domain.Profile
		if ok, err := s.cache.Get(ctx, domain.ProfileCacheKey, &p); err == nil && ok {
			resp.DisplayName = p.DisplayName
		}
	}

	writeJSON(ctx, w, resp, http.StatusOK)
}

// handleLogout tears the session down.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.session.Disconnect(ctx); err != nil {
		writeJSONError(ctx, w, "disconnect finished with failures", http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, ResultResponse{OK: true}, http.StatusOK)
}

// handleClearCache wipes cached API data without touching the session.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.session.ClearCache(ctx); err != nil {
		writeJSONError(ctx, w, "clearing cache failed", http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, ResultResponse{OK: true}, http.StatusOK)
}
