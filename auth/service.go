// Package auth is the protocol state machine tying login, authorization and
// token exchange together. It is the only consumer that touches the
// credential store, the client registry, the code store, the PKCE engine and
// the token issuer at once.
package auth

import (
	"context"
	"time"

	"github.com/brokenrx/rx-auth/authcode"
	"github.com/brokenrx/rx-auth/clients"
	"github.com/brokenrx/rx-auth/pkce"
	"github.com/brokenrx/rx-auth/token"
	"github.com/brokenrx/rx-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultAuthCodeTTL = 10 * time.Minute

	// CodeChallengeMethodS256 is the only challenge method accepted.
	CodeChallengeMethodS256 = "S256"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users   users.Repo    // Credential store
	Clients clients.Repo  // Client registry
	Codes   authcode.Store // One-time authorization codes
}

// Service orchestrates the authorization-code flow.
type Service struct {
	repos   Repos
	issuer  *token.Issuer
	codeTTL time.Duration
}

type ServiceOption func(*Service)

// WithCodeTTL overrides the authorization-code lifetime.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.codeTTL = ttl
	}
}

func NewService(repos Repos, issuer *token.Issuer, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewService] Clients repo is required")
	}
	if repos.Codes == nil {
		return nil, errors.New("[NewService] Codes store is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewService] token issuer is required")
	}

	service := &Service{
		repos:   repos,
		issuer:  issuer,
		codeTTL: defaultAuthCodeTTL,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// Login checks the credentials against the credential store. Every failure
// collapses to ErrAuthenticationFailed so a caller cannot distinguish an
// unknown username from a wrong password.
func (s *Service) Login(ctx context.Context, username, password string) (*users.User, error) {
	user, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return nil, errors.Wrap(err, "[Service.Login] GetByUsername")
		}
		return nil, ErrAuthenticationFailed
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrAuthenticationFailed
	}
	return user, nil
}

// AuthorizeRequest carries the parameters of a GET /authorize call from an
// already-authenticated resource owner.
type AuthorizeRequest struct {
	UserID              int64
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Grant is a freshly issued authorization code bound to the client's
// registered redirect URI.
type Grant struct {
	Code        string
	RedirectURI string
}

// Authorize validates the request against the client registry and issues a
// one-time code. The registered redirect URI is authoritative: a mismatching
// caller-supplied URI is rejected outright, never silently substituted, and
// the issued code is bound to the registered value.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*Grant, error) {
	client, err := s.repos.Clients.Get(ctx, req.ClientID)
	if err != nil {
		if !errors.Is(err, clients.ErrNotFound) {
			return nil, errors.Wrap(err, "[Service.Authorize] Clients.Get")
		}
		return nil, ErrInvalidClient
	}

	if req.RedirectURI != client.RedirectURI {
		log.Warn().
			Str("client_id", client.ClientID).
			Str("redirect_uri", req.RedirectURI).
			Msg("authorization rejected: redirect URI does not match registered value")
		return nil, ErrInvalidClient
	}

	if req.CodeChallenge == "" {
		return nil, ErrPKCERequired
	}
	if req.CodeChallengeMethod != "" && req.CodeChallengeMethod != CodeChallengeMethodS256 {
		return nil, ErrPKCERequired
	}

	code, err := s.repos.Codes.Issue(ctx, req.UserID, client.ClientID, client.RedirectURI, req.CodeChallenge, s.codeTTL)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Authorize] Codes.Issue")
	}

	return &Grant{Code: code, RedirectURI: client.RedirectURI}, nil
}

// Exchange redeems a code for a signed access token. Redemption happens
// before the PKCE check, so a failed exchange still consumes the code and a
// live code cannot be used to brute-force the verifier.
func (s *Service) Exchange(ctx context.Context, code, codeVerifier, clientID string) (*token.Response, error) {
	grant, err := s.repos.Codes.Redeem(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, authcode.ErrCodeExpired):
			log.Info().Str("client_id", clientID).Str("code_prefix", codePrefix(code)).Msg("token exchange rejected: code expired")
		case errors.Is(err, authcode.ErrCodeNotFound):
			log.Info().Str("client_id", clientID).Str("code_prefix", codePrefix(code)).Msg("token exchange rejected: code unknown or already redeemed")
		default:
			return nil, errors.Wrap(err, "[Service.Exchange] Codes.Redeem")
		}
		return nil, ErrInvalidCode
	}

	// From here on the code is consumed; no failure path may re-issue it.
	if grant.ClientID != clientID {
		log.Warn().Str("client_id", clientID).Str("code_prefix", codePrefix(code)).Msg("token exchange rejected: code issued to a different client")
		return nil, ErrInvalidCode
	}

	if !pkce.Verify(codeVerifier, grant.CodeChallenge) {
		log.Info().Str("client_id", clientID).Str("code_prefix", codePrefix(code)).Msg("token exchange rejected: PKCE verification failed")
		return nil, ErrPKCEFailed
	}

	user, err := s.repos.Users.GetByID(ctx, grant.UserID)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return nil, errors.Wrap(err, "[Service.Exchange] Users.GetByID")
		}
		log.Warn().Int64("user_id", grant.UserID).Msg("token exchange rejected: code references a missing user")
		return nil, ErrInvalidCode
	}

	accessToken, err := s.issuer.Issue(user.ID, user.Role, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Exchange] issuer.Issue")
	}

	return &token.Response{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(s.issuer.Expiry().Seconds()),
	}, nil
}

// CodeTTL returns the configured authorization-code lifetime.
func (s *Service) CodeTTL() time.Duration {
	return s.codeTTL
}

// codePrefix returns a short, loggable prefix of an authorization code.
func codePrefix(code string) string {
	if len(code) <= 8 {
		return code
	}
	return code[:8]
}
