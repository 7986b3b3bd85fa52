// Package rxclient is the relying-party half of the authorization-code flow.
// The dashboard process uses it to send a browser to the authorization server
// and to swap the returned code for an access token.
package rxclient

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Client drives the authorization-code flow with PKCE against one
// authorization server. Public clients carry no secret; possession of the
// verifier is the proof.
type Client struct {
	config oauth2.Config
}

func New(authBaseURL, clientID, redirectURL string) *Client {
	base := strings.TrimRight(authBaseURL, "/")
	return &Client{
		config: oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// NewVerifier returns a fresh PKCE code verifier. Keep it server-side until
// the exchange; it never travels through the browser.
func (c *Client) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the /authorize URL carrying the S256 challenge derived
// from verifier.
func (c *Client) AuthCodeURL(state, verifier string) string {
	return c.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange redeems the authorization code, presenting the verifier that
// matches the challenge sent with AuthCodeURL.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := c.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Exchange] token endpoint")
	}
	return tok, nil
}
