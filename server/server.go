// Package server exposes the authorization endpoints, the login and
// registration pages and the token-gated prescription API over one mux.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/brokenrx/rx-auth/auth"
	"github.com/brokenrx/rx-auth/clients"
	"github.com/brokenrx/rx-auth/internal/config"
	"github.com/brokenrx/rx-auth/rx"
	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/brokenrx/rx-auth/token"
	"github.com/brokenrx/rx-auth/token/keys"
	"github.com/brokenrx/rx-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repos holds the persistence dependencies the handlers need directly.
// Everything touching the authorization-code flow itself goes through the
// auth service instead.
type Repos struct {
	Users         users.Repo
	Clients       clients.Repo
	Prescriptions rx.Repo
	Sessions      loginsession.Repo
}

type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	validator *token.Validator
	jwks      *keys.JWKS
	repos     Repos
}

func New(cfg config.Config, authService *auth.Service, validator *token.Validator, jwks *keys.JWKS, repos Repos) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[server.New] auth service is required")
	}
	if validator == nil {
		return nil, errors.New("[server.New] token validator is required")
	}
	if jwks == nil {
		return nil, errors.New("[server.New] JWKS is required")
	}
	if repos.Users == nil || repos.Clients == nil || repos.Prescriptions == nil || repos.Sessions == nil {
		return nil, errors.New("[server.New] all repos are required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      authService,
		validator: validator,
		jwks:      jwks,
		repos:     repos,
	}

	if _, err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, errors.Wrap(err, "[server.New] system initialisation")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

// writeOAuthError writes an RFC 6749 style error body.
func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
