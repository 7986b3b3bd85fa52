package server

import (
	"net/http"
	"time"

	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/google/uuid"
)

const (
	// sessionCookieName carries the opaque login-session ID
	sessionCookieName = "session_id"
	// accessTokenCookieName lets the browser reach the API after login
	accessTokenCookieName = "access_token"
)

// currentSession resolves the request's session cookie to a live session.
func (s *Server) currentSession(r *http.Request) (loginsession.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return loginsession.Session{}, false
	}
	session, err := s.repos.Sessions.Get(cookie.Value)
	if err != nil {
		return loginsession.Session{}, false
	}
	return session, true
}

// newSession stores a session and sets its cookie. A zero userID creates an
// anonymous session, used to stash a pending authorize query before login.
func (s *Server) newSession(w http.ResponseWriter, session loginsession.Session) (loginsession.Session, error) {
	now := time.Now()
	session.ID = uuid.NewString()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.config.GetSessionTimeout())

	if err := s.repos.Sessions.Upsert(session.ID, session); err != nil {
		return loginsession.Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})
	return session, nil
}

// updateSession persists changes to an existing session.
func (s *Server) updateSession(session loginsession.Session) error {
	return s.repos.Sessions.Upsert(session.ID, session)
}

// clearSession drops the server-side session and expires both cookies.
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		_ = s.repos.Sessions.Delete(cookie.Value)
	}
	for _, name := range []string{sessionCookieName, accessTokenCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}
