package server

import (
	"html/template"
	"net/http"

	"github.com/brokenrx/rx-auth/auth"
	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/brokenrx/rx-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const indexPageHTML = `<!DOCTYPE html>
<html>
<head><title>{{.AppName}}</title></head>
<body>
<h1>{{.AppName}}</h1>
{{if .LoggedIn}}<p>Signed in.</p><p><a href="/logout">Log out</a></p>
{{else}}<p><a href="/login">Log in</a> or <a href="/register">register</a>.</p>{{end}}
</body>
</html>`

const loginPageHTML = `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="POST" action="/login">
<label>Username <input type="text" name="username" value="{{.Username}}" required></label><br>
<label>Password <input type="password" name="password" required></label><br>
<button type="submit">Sign in</button>
</form>
<p><a href="/register">Create an account</a></p>
</body>
</html>`

const registerPageHTML = `<!DOCTYPE html>
<html>
<head><title>Register</title></head>
<body>
<h1>Register</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="POST" action="/register">
<label>Username <input type="text" name="username" value="{{.Username}}" required></label><br>
<label>Password <input type="password" name="password" required></label><br>
<button type="submit">Register</button>
</form>
<p><a href="/login">Back to sign in</a></p>
</body>
</html>`

var (
	indexTmpl    = template.Must(template.New("index").Parse(indexPageHTML))
	loginTmpl    = template.Must(template.New("login").Parse(loginPageHTML))
	registerTmpl = template.Must(template.New("register").Parse(registerPageHTML))
)

type loginPageData struct {
	Error    string
	Username string
}

func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.currentSession(r)
		data := struct {
			AppName  string
			LoggedIn bool
		}{
			AppName:  s.config.GetAppName(),
			LoggedIn: ok && session.Authenticated(),
		}
		renderPage(w, indexTmpl, http.StatusOK, data)
	}
}

// LoginPageHandler displays the login form (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, loginTmpl, http.StatusOK, loginPageData{})
	}
}

// LoginSubmissionHandler checks the credentials and, when an authorize
// request was stashed before login, replays it (POST /login).
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		username := r.FormValue("username")
		password := r.FormValue("password")

		user, err := s.auth.Login(r.Context(), username, password)
		if err != nil {
			if errors.Is(err, auth.ErrAuthenticationFailed) {
				renderPage(w, loginTmpl, http.StatusUnauthorized, loginPageData{Error: "Invalid username or password", Username: username})
				return
			}
			log.Err(err).Msg("login failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		// Carry a pending authorize query from the anonymous session, if any.
		var pendingQuery string
		if previous, ok := s.currentSession(r); ok {
			pendingQuery = previous.PendingQuery
			_ = s.repos.Sessions.Delete(previous.ID)
		}

		if _, err := s.newSession(w, loginsession.Session{
			UserID: user.ID,
			Role:   user.Role,
		}); err != nil {
			log.Err(err).Msg("failed to create login session")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if pendingQuery != "" {
			http.Redirect(w, r, RouteAuthorize+"?"+pendingQuery, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}

// RegisterPageHandler displays the registration form (GET /register)
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, registerTmpl, http.StatusOK, loginPageData{})
	}
}

// RegisterSubmissionHandler creates a new user account (POST /register).
// New accounts always get the user role.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		username := r.FormValue("username")
		password := r.FormValue("password")

		if username == "" {
			renderPage(w, registerTmpl, http.StatusBadRequest, loginPageData{Error: "Username is required"})
			return
		}
		if err := users.ValidatePasswordStrength(password); err != nil {
			renderPage(w, registerTmpl, http.StatusBadRequest, loginPageData{Error: err.Error(), Username: username})
			return
		}

		passwordHash, err := users.HashPassword(password)
		if err != nil {
			log.Err(err).Msg("failed to hash password")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		user := &users.User{
			Username:     username,
			PasswordHash: passwordHash,
			Role:         users.RoleUser,
		}
		if err := s.repos.Users.Create(r.Context(), user); err != nil {
			if errors.Is(err, users.ErrUsernameTaken) {
				// Same message as other failures so usernames cannot be probed.
				renderPage(w, registerTmpl, http.StatusBadRequest, loginPageData{Error: "Registration failed"})
				return
			}
			log.Err(err).Msg("failed to create user")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

// LogoutHandler clears the session and its cookies (GET /logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearSession(w, r)
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

func renderPage(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Msg("failed to render page")
	}
}
