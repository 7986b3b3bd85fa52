package server

import (
	"net/http"
	"net/url"

	"github.com/brokenrx/rx-auth/auth"
	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AuthorizeHandler starts the authorization-code flow (GET /authorize).
// An unauthenticated browser is sent to the login page with the full query
// stashed in its session, to be replayed after login.
func (s *Server) AuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if rt := query.Get("response_type"); rt != "" && rt != "code" {
			writeOAuthError(w, http.StatusBadRequest, "unsupported_response_type", "only the code response type is supported")
			return
		}

		session, ok := s.currentSession(r)
		if !ok || !session.Authenticated() {
			if _, err := s.newSession(w, loginsession.Session{
				PendingQuery: r.URL.RawQuery,
			}); err != nil {
				log.Err(err).Msg("failed to stash authorize request")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}

		grant, err := s.auth.Authorize(r.Context(), auth.AuthorizeRequest{
			UserID:              session.UserID,
			ClientID:            query.Get("client_id"),
			RedirectURI:         query.Get("redirect_uri"),
			CodeChallenge:       query.Get("code_challenge"),
			CodeChallengeMethod: query.Get("code_challenge_method"),
		})
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidClient):
				writeOAuthError(w, http.StatusBadRequest, "invalid_request", "unknown client or redirect URI mismatch")
			case errors.Is(err, auth.ErrPKCERequired):
				writeOAuthError(w, http.StatusBadRequest, "invalid_request", "an S256 code challenge is required")
			default:
				log.Err(err).Msg("authorize failed")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		// The session's pending query is spent once a code is issued.
		if session.PendingQuery != "" {
			session.PendingQuery = ""
			if err := s.updateSession(session); err != nil {
				log.Err(err).Msg("failed to clear pending authorize query")
			}
		}

		redirect, err := url.Parse(grant.RedirectURI)
		if err != nil {
			log.Err(err).Msg("registered redirect URI does not parse")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		params := redirect.Query()
		params.Set("code", grant.Code)
		if state := query.Get("state"); state != "" {
			params.Set("state", state)
		}
		redirect.RawQuery = params.Encode()

		http.Redirect(w, r, redirect.String(), http.StatusFound)
	}
}

// TokenHandler exchanges an authorization code for an access token
// (POST /token).
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
			return
		}

		if grantType := r.FormValue("grant_type"); grantType != "authorization_code" {
			writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
			return
		}

		code := r.FormValue("code")
		verifier := r.FormValue("code_verifier")
		clientID := r.FormValue("client_id")
		if code == "" || verifier == "" || clientID == "" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "code, code_verifier and client_id are required")
			return
		}

		response, err := s.auth.Exchange(r.Context(), code, verifier, clientID)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCode):
				writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code is invalid, expired or already used")
			case errors.Is(err, auth.ErrPKCEFailed):
				writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			default:
				log.Err(err).Msg("token exchange failed")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, response)
	}
}

// JWKSHandler publishes the token verification keys
// (GET /.well-known/jwks.json).
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, s.jwks)
	}
}
