package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/brokenrx/rx-auth/clients"
	"github.com/brokenrx/rx-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultAdminUsername is the account created on first startup.
const DefaultAdminUsername = "admin"

// InitialiseSystem seeds the registered OAuth client and, when no admin
// account exists yet, creates one with a generated password. The password is
// logged exactly once and never stored in the clear.
func (s *Server) InitialiseSystem(ctx context.Context) (generatedPassword string, err error) {
	if err := s.initialiseClient(ctx); err != nil {
		return "", errors.Wrap(err, "[Server.InitialiseSystem] client")
	}

	generatedPassword, err = s.initialiseAdmin(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Server.InitialiseSystem] admin")
	}

	if generatedPassword != "" {
		log.Warn().
			Str("username", DefaultAdminUsername).
			Str("password", generatedPassword).
			Msg("created first admin account; save this password, it will not be displayed again")
	}
	return generatedPassword, nil
}

// initialiseClient upserts the single registered public client. The stored
// redirect URI is what every authorize request is checked against.
func (s *Server) initialiseClient(ctx context.Context) error {
	client := &clients.Client{
		ClientID:    s.config.GetClientID(),
		Name:        s.config.GetClientName(),
		RedirectURI: s.config.GetClientRedirectURI(),
	}
	if err := s.repos.Clients.Upsert(ctx, client); err != nil {
		return err
	}
	log.Info().
		Str("client_id", client.ClientID).
		Str("redirect_uri", client.RedirectURI).
		Msg("registered OAuth client")
	return nil
}

func (s *Server) initialiseAdmin(ctx context.Context) (string, error) {
	count, err := s.repos.Users.CountByRole(ctx, users.RoleAdmin)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	passwordBytes := make([]byte, 16)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", err
	}
	password := base64.RawURLEncoding.EncodeToString(passwordBytes)

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return "", err
	}

	admin := &users.User{
		Username:     DefaultAdminUsername,
		PasswordHash: passwordHash,
		Role:         users.RoleAdmin,
	}
	if err := s.repos.Users.Create(ctx, admin); err != nil {
		return "", err
	}
	return password, nil
}
