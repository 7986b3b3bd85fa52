package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/brokenrx/rx-auth/auth"
	"github.com/brokenrx/rx-auth/authcode"
	"github.com/brokenrx/rx-auth/clients"
	clientsgorm "github.com/brokenrx/rx-auth/clients/gormrepo"
	"github.com/brokenrx/rx-auth/internal/config"
	"github.com/brokenrx/rx-auth/rx"
	rxgorm "github.com/brokenrx/rx-auth/rx/gormrepo"
	"github.com/brokenrx/rx-auth/rxclient"
	"github.com/brokenrx/rx-auth/server"
	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/brokenrx/rx-auth/token"
	"github.com/brokenrx/rx-auth/token/keys"
	"github.com/brokenrx/rx-auth/users"
	usersgorm "github.com/brokenrx/rx-auth/users/gormrepo"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testClientID     = "BrokenRx_client"
	testRedirectURI  = "http://localhost:5000/callback"
	testUserPassword = "Password123"
)

type e2eFixture struct {
	ts        *httptest.Server
	rp        *rxclient.Client
	userRepo  *usersgorm.Repo
	validator *token.Validator
}

func setupServer(t *testing.T, authOptions ...auth.ServiceOption) *e2eFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}, &clients.Client{}, &authcode.AuthorizationCode{}, &rx.Prescription{}))

	cfg := config.New()

	keyPair, err := keys.GenerateKeyPair("test-key", 2048)
	require.NoError(t, err)

	issuer, err := token.NewIssuer(keys.NewKeyPairSigner(keyPair), cfg.GetIssuer(), cfg.GetAudience(), cfg.GetAccessTokenExpiry())
	require.NoError(t, err)
	validator, err := token.NewValidator(keys.NewPublicKeyVerifier(keyPair.PublicKey), cfg.GetIssuer(), cfg.GetAudience())
	require.NoError(t, err)

	userRepo := usersgorm.New(db)
	clientRepo := clientsgorm.New(db)

	authService, err := auth.NewService(auth.Repos{
		Users:   userRepo,
		Clients: clientRepo,
		Codes:   authcode.NewGormStore(db),
	}, issuer, authOptions...)
	require.NoError(t, err)

	srv, err := server.New(cfg, authService, validator, keyPair.JWKS(), server.Repos{
		Users:         userRepo,
		Clients:       clientRepo,
		Prescriptions: rxgorm.New(db),
		Sessions:      loginsession.NewInMemoryRepo(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &e2eFixture{
		ts:        ts,
		rp:        rxclient.New(ts.URL, testClientID, testRedirectURI),
		userRepo:  userRepo,
		validator: validator,
	}
}

// newBrowser returns a cookie-holding client that follows redirects within
// the test server but stops at the first hop to any other host, so the
// callback redirect can be inspected instead of followed.
func (f *e2eFixture) newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	serverURL, err := url.Parse(f.ts.URL)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Host != serverURL.Host {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

func (f *e2eFixture) createUser(t *testing.T, username string, role users.Role) {
	t.Helper()

	passwordHash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)
	require.NoError(t, f.userRepo.Create(context.Background(), &users.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}))
}

// authorizeForCode walks an unauthenticated browser through /authorize and
// the login form, returning the callback redirect carrying the code.
func (f *e2eFixture) authorizeForCode(t *testing.T, authURL, username string) *url.URL {
	t.Helper()

	browser := f.newBrowser(t)

	resp, err := browser.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, server.RouteLogin, resp.Request.URL.Path, "unauthenticated authorize should land on the login page")

	resp, err = browser.PostForm(f.ts.URL+server.RouteLogin, url.Values{
		"username": {username},
		"password": {testUserPassword},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode, "login should replay the stashed authorize request")

	callback, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "localhost:5000", callback.Host, "code must go to the registered redirect URI")
	return callback
}

func (f *e2eFixture) obtainToken(t *testing.T, username string) string {
	t.Helper()

	verifier := f.rp.NewVerifier()
	callback := f.authorizeForCode(t, f.rp.AuthCodeURL("", verifier), username)

	code := callback.Query().Get("code")
	require.NotEmpty(t, code)

	tok, err := f.rp.Exchange(context.Background(), code, verifier)
	require.NoError(t, err)
	return tok.AccessToken
}

func (f *e2eFixture) apiRequest(t *testing.T, method, path, accessToken string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAuthorizationCodeFlow(t *testing.T) {
	f := setupServer(t)

	// Register through the public form rather than seeding directly.
	browser := f.newBrowser(t)
	resp, err := browser.PostForm(f.ts.URL+server.RouteRegister, url.Values{
		"username": {"alice"},
		"password": {testUserPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, server.RouteLogin, resp.Request.URL.Path)

	verifier := f.rp.NewVerifier()
	callback := f.authorizeForCode(t, f.rp.AuthCodeURL("xyz-state", verifier), "alice")
	require.Equal(t, "xyz-state", callback.Query().Get("state"), "state must round-trip unchanged")

	tok, err := f.rp.Exchange(context.Background(), callback.Query().Get("code"), verifier)
	require.NoError(t, err)
	require.True(t, strings.EqualFold("bearer", tok.TokenType))

	claims, err := f.validator.Validate(tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, users.RoleUser, claims.Role)
	require.Equal(t, testClientID, claims.ClientID)

	me := decodeBody[map[string]any](t, f.apiRequest(t, http.MethodGet, server.RouteAPIMe, tok.AccessToken, nil))
	require.Equal(t, "user", me["role"])
}

func TestWrongVerifierBurnsCode(t *testing.T) {
	f := setupServer(t)
	f.createUser(t, "alice", users.RoleUser)

	verifier := f.rp.NewVerifier()
	callback := f.authorizeForCode(t, f.rp.AuthCodeURL("", verifier), "alice")
	code := callback.Query().Get("code")

	wrongVerifier := f.rp.NewVerifier()
	_, err := f.rp.Exchange(context.Background(), code, wrongVerifier)
	require.Error(t, err)

	// The failed attempt consumed the code: the right verifier is too late.
	_, err = f.rp.Exchange(context.Background(), code, verifier)
	require.Error(t, err)
}

func TestAuthorizeRejectsTamperedRedirectURI(t *testing.T) {
	f := setupServer(t)
	f.createUser(t, "alice", users.RoleUser)

	verifier := f.rp.NewVerifier()
	authURL, err := url.Parse(f.rp.AuthCodeURL("", verifier))
	require.NoError(t, err)
	query := authURL.Query()
	query.Set("redirect_uri", "https://evil.example/callback")
	authURL.RawQuery = query.Encode()

	browser := f.newBrowser(t)

	// Log in first so the authorize request is evaluated immediately.
	resp, err := browser.PostForm(f.ts.URL+server.RouteLogin, url.Values{
		"username": {"alice"},
		"password": {testUserPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = browser.Get(authURL.String())
	require.NoError(t, err)
	body := decodeBody[map[string]string](t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", body["error"])
}

func TestExpiredCodeIsRejected(t *testing.T) {
	f := setupServer(t, auth.WithCodeTTL(time.Nanosecond))
	f.createUser(t, "alice", users.RoleUser)

	verifier := f.rp.NewVerifier()
	callback := f.authorizeForCode(t, f.rp.AuthCodeURL("", verifier), "alice")

	time.Sleep(time.Millisecond)

	_, err := f.rp.Exchange(context.Background(), callback.Query().Get("code"), verifier)
	require.Error(t, err)
}

func TestPrescriptionAPI(t *testing.T) {
	f := setupServer(t)
	f.createUser(t, "alice", users.RoleUser)
	f.createUser(t, "root", users.RoleAdmin)

	userToken := f.obtainToken(t, "alice")
	adminToken := f.obtainToken(t, "root")

	t.Run("requires a token", func(t *testing.T) {
		resp := f.apiRequest(t, http.MethodGet, server.RouteAPIPrescriptions, "", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects a tampered token", func(t *testing.T) {
		resp := f.apiRequest(t, http.MethodGet, server.RouteAPIPrescriptions, userToken+"x", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	var prescriptionID string
	t.Run("user submits and lists own prescriptions", func(t *testing.T) {
		resp := f.apiRequest(t, http.MethodPost, server.RouteAPIPrescriptions, userToken, map[string]string{"file_name": "scan.pdf"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decodeBody[rx.Prescription](t, resp)
		require.Equal(t, rx.StatusUnchecked, created.Status)
		prescriptionID = created.ID

		list := decodeBody[[]rx.Prescription](t, f.apiRequest(t, http.MethodGet, server.RouteAPIPrescriptions, userToken, nil))
		require.Len(t, list, 1)
		require.Equal(t, "scan.pdf", list[0].FileName)
	})

	t.Run("admins cannot submit prescriptions", func(t *testing.T) {
		resp := f.apiRequest(t, http.MethodPost, server.RouteAPIPrescriptions, adminToken, map[string]string{"file_name": "nope.pdf"})
		resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin endpoints reject user tokens", func(t *testing.T) {
		resp := f.apiRequest(t, http.MethodGet, server.RouteAPIAdminPrescriptions, userToken, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin dashboard lists all with counts", func(t *testing.T) {
		resp := f.apiRequest(t, http.MethodGet, server.RouteAPIAdminPrescriptions, adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		dashboard := decodeBody[struct {
			Prescriptions []rx.Prescription `json:"prescriptions"`
			UserCounts    []rx.UserCount    `json:"user_counts"`
		}](t, resp)
		require.Len(t, dashboard.Prescriptions, 1)
		require.Len(t, dashboard.UserCounts, 1)
		require.Equal(t, "alice", dashboard.UserCounts[0].Username)
	})

	t.Run("status lifecycle and terminal states", func(t *testing.T) {
		path := fmt.Sprintf("/api/admin/prescriptions/%s/status", prescriptionID)

		resp := f.apiRequest(t, http.MethodPatch, path, adminToken, map[string]string{"status": "approved"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		updated := decodeBody[rx.Prescription](t, resp)
		require.Equal(t, rx.StatusApproved, updated.Status)

		resp = f.apiRequest(t, http.MethodPatch, path, adminToken, map[string]string{"status": "shipped"})
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = f.apiRequest(t, http.MethodPatch, path, adminToken, map[string]string{"status": "delivered"})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.apiRequest(t, http.MethodPatch, path, adminToken, map[string]string{"status": "approved"})
		resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestJWKSEndpoint(t *testing.T) {
	f := setupServer(t)

	resp, err := http.Get(f.ts.URL + server.RouteWellKnownJWKS)
	require.NoError(t, err)
	jwks := decodeBody[keys.JWKS](t, resp)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.Equal(t, keys.RS256, jwks.Keys[0].Alg)
}

func TestLogoutClearsSession(t *testing.T) {
	f := setupServer(t)
	f.createUser(t, "alice", users.RoleUser)

	browser := f.newBrowser(t)
	resp, err := browser.PostForm(f.ts.URL+server.RouteLogin, url.Values{
		"username": {"alice"},
		"password": {testUserPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = browser.Get(f.ts.URL + server.RouteLogout)
	require.NoError(t, err)
	resp.Body.Close()

	// A fresh authorize request must go back through login.
	verifier := f.rp.NewVerifier()
	resp, err = browser.Get(f.rp.AuthCodeURL("", verifier))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, server.RouteLogin, resp.Request.URL.Path)
}
