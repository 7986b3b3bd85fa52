package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brokenrx/rx-auth/auth"
	"github.com/brokenrx/rx-auth/authcode"
	clientsgorm "github.com/brokenrx/rx-auth/clients/gormrepo"
	"github.com/brokenrx/rx-auth/internal/config"
	"github.com/brokenrx/rx-auth/internal/database"
	rxgorm "github.com/brokenrx/rx-auth/rx/gormrepo"
	"github.com/brokenrx/rx-auth/server"
	"github.com/brokenrx/rx-auth/server/loginsession"
	"github.com/brokenrx/rx-auth/token"
	"github.com/brokenrx/rx-auth/token/keys"
	usersgorm "github.com/brokenrx/rx-auth/users/gormrepo"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	_ = godotenv.Load(".env.auth")

	cfg := config.New()
	initLogging(cfg)
	displayAppname(cfg.GetAppName())

	db, err := database.Open(cfg)
	if err != nil {
		return errors.Wrap(err, "open database")
	}

	keyPair, err := loadOrGenerateKeyPair(cfg)
	if err != nil {
		return errors.Wrap(err, "signing keys")
	}

	issuer, err := token.NewIssuer(keys.NewKeyPairSigner(keyPair), cfg.GetIssuer(), cfg.GetAudience(), cfg.GetAccessTokenExpiry())
	if err != nil {
		return errors.Wrap(err, "token issuer")
	}
	validator, err := token.NewValidator(keys.NewPublicKeyVerifier(keyPair.PublicKey), cfg.GetIssuer(), cfg.GetAudience())
	if err != nil {
		return errors.Wrap(err, "token validator")
	}

	userRepo := usersgorm.New(db)
	clientRepo := clientsgorm.New(db)
	codeStore := authcode.NewGormStore(db)

	authService, err := auth.NewService(auth.Repos{
		Users:   userRepo,
		Clients: clientRepo,
		Codes:   codeStore,
	}, issuer, auth.WithCodeTTL(cfg.GetAuthCodeTimeout()))
	if err != nil {
		return errors.Wrap(err, "auth service")
	}

	srv, err := server.New(cfg, authService, validator, keyPair.JWKS(), server.Repos{
		Users:         userRepo,
		Clients:       clientRepo,
		Prescriptions: rxgorm.New(db),
		Sessions:      loginsession.NewInMemoryRepo(),
	})
	if err != nil {
		return errors.Wrap(err, "server")
	}

	httpServer := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	waitForStopSignal()
	if err := shutdown(httpServer); err != nil {
		return err
	}
	return <-errCh
}

func initLogging(cfg config.Config) {
	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// loadOrGenerateKeyPair loads the signing key from disk when a path is
// configured; otherwise it generates an ephemeral pair, which means every
// restart invalidates all outstanding tokens.
func loadOrGenerateKeyPair(cfg config.OAuthConfig) (*keys.KeyPair, error) {
	if path := cfg.GetPrivateKeyPath(); path != "" {
		return keys.LoadKeyPairFromFiles(cfg.GetSigningKeyID(), path)
	}

	log.Warn().Msg("PRIVATE_KEY_PATH not set, generating an ephemeral signing key")
	return keys.GenerateKeyPair(cfg.GetSigningKeyID(), 2048)
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
