package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/provenid/go-token-server/auth"
	"github.com/provenid/go-token-server/clients"
	fakeclientrepo "github.com/provenid/go-token-server/clients/fakerepo"
	"github.com/provenid/go-token-server/internal/config"
	"github.com/provenid/go-token-server/internal/metrics"
	"github.com/provenid/go-token-server/provider"
	"github.com/provenid/go-token-server/server"
	"github.com/provenid/go-token-server/ticket"
	"github.com/provenid/go-token-server/token"
	"github.com/provenid/go-token-server/users"
	fakeuserrepo "github.com/provenid/go-token-server/users/repofake"
)

const (
	demoClientID = "demo-client"
	demoUsername = "demo"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	handler, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(srv)
	waitForStopSignal()
	returnError = shutdown(srv)
	return returnError
}

func buildServer(c config.Config) (*server.Server, error) {
	sealingKey, err := resolveSealingKey(c)
	if err != nil {
		return nil, err
	}

	keyPair, err := token.GenerateRSAKeyPair(c.GetSignerKeyID(), 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	signer := token.NewKeyPairSigner(keyPair)

	issuer := c.GetBaseURL()
	accessCodec, err := token.NewJWTCodec(ticket.UsageAccessToken, issuer, signer,
		token.WithJWTLifetime(c.GetDefaultAccessTokenExpiry()), token.WithJWTIssuedAt())
	if err != nil {
		return nil, err
	}
	identityCodec, err := token.NewJWTCodec(ticket.UsageIDToken, issuer, signer,
		token.WithJWTLifetime(c.GetDefaultIDTokenExpiry()), token.WithJWTIssuedAt())
	if err != nil {
		return nil, err
	}
	codeCodec, err := token.NewOpaqueCodec(ticket.UsageAuthorizationCode, sealingKey,
		token.WithOpaqueLifetime(c.GetAuthCodeTimeout()))
	if err != nil {
		return nil, err
	}
	refreshCodec, err := token.NewOpaqueCodec(ticket.UsageRefreshToken, sealingKey,
		token.WithOpaqueLifetime(c.GetDefaultRefreshTokenExpiry()))
	if err != nil {
		return nil, err
	}

	clientRepo := fakeclientrepo.NewFakeClientRepo()
	userRepo := fakeuserrepo.NewFakeUserRepo()
	if err := seedDemoData(clientRepo, userRepo); err != nil {
		return nil, fmt.Errorf("failed to seed demo data: %w", err)
	}

	p, err := provider.New(clientRepo, userRepo)
	if err != nil {
		return nil, err
	}

	endpoint, err := auth.NewTokenEndpoint(auth.Options{
		Issuer:                      issuer,
		AccessTokenLifetime:         c.GetDefaultAccessTokenExpiry(),
		IdentityTokenLifetime:       c.GetDefaultIDTokenExpiry(),
		RefreshTokenLifetime:        c.GetDefaultRefreshTokenExpiry(),
		UseSlidingExpiration:        c.GetUseSlidingExpiration(),
		EnableResponseTypeSelection: c.GetEnableResponseTypeSelection(),
		AccessTokenCodec:            accessCodec,
		IdentityTokenCodec:          identityCodec,
		RefreshTokenCodec:           refreshCodec,
		AuthorizationCodeCodec:      codeCodec,
		Provider:                    p,
	})
	if err != nil {
		return nil, err
	}

	return server.New(c, endpoint, signer, metrics.New())
}

// resolveSealingKey decodes the configured opaque-token sealing key, or
// generates an ephemeral one (outstanding codes and refresh tokens won't
// survive a restart without a configured key).
func resolveSealingKey(c config.Config) ([]byte, error) {
	if encoded := c.GetSealingKey(); encoded != "" {
		key, err := hex.DecodeString(encoded)
		if err != nil || len(key) != 32 {
			return nil, errors.New("SEALING_KEY must be 32 hex-encoded bytes")
		}
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	log.Printf("No SEALING_KEY configured; generated an ephemeral key\n")
	return key, nil
}

// seedDemoData creates a demo confidential client and a demo user with
// generated credentials so the server is exercisable out of the box.
func seedDemoData(clientRepo clients.Repo, userRepo users.UserRepo) error {
	clientSecret, err := generateSecret()
	if err != nil {
		return err
	}
	clientSecretHash, err := clients.HashSecret(clientSecret)
	if err != nil {
		return err
	}
	if err := clientRepo.Upsert(&clients.Client{
		ID:          demoClientID,
		Type:        clients.ClientTypeConfidential,
		Description: "Demo confidential client",
		SecretHash:  clientSecretHash,
		Scopes:      []string{"openid", "profile", "email", "offline_access"},
	}); err != nil {
		return err
	}

	password, err := generateSecret()
	if err != nil {
		return err
	}
	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return err
	}
	if err := userRepo.Upsert(&users.User{
		Username:     demoUsername,
		Email:        "demo@example.com",
		FirstName:    "Demo",
		LastName:     "User",
		PasswordHash: passwordHash,
		Verified:     true,
	}); err != nil {
		return err
	}

	log.Printf("Demo client:   %s / %s\n", demoClientID, clientSecret)
	log.Printf("Demo user:     %s / %s\n", demoUsername, password)
	log.Printf("⚠️  Credentials are regenerated on every start\n")
	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
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
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
