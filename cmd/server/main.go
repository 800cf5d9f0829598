package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/contacts-auth/auth"
	"github.com/jrsteele09/contacts-auth/internal/config"
	"github.com/jrsteele09/contacts-auth/server"
	"github.com/jrsteele09/contacts-auth/sessions"
	"github.com/jrsteele09/contacts-auth/token"
	"github.com/jrsteele09/contacts-auth/users"
	"github.com/jrsteele09/contacts-auth/users/sqlite"
)

const maxRestarts = 3

func main() {
	for attempt := 1; ; attempt++ {
		err := run()
		if err == nil {
			break
		}
		if attempt >= maxRestarts {
			log.Fatal().Err(err).Msg("Error running server")
		}
		log.Error().Err(err).Int("attempt", attempt).Msg("Error running server, restarting")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx := context.Background()

	store, err := openUserStore(ctx, c.GetDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	cache, err := newSessionCache(ctx, c)
	if err != nil {
		return err
	}
	defer cache.Close()

	signer, err := token.NewSigner(c.GetSigningAlgorithm(), c.GetSigningKey())
	if err != nil {
		return fmt.Errorf("token signer: %w", err)
	}
	codec, err := token.NewCodec(signer)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	authService, err := auth.NewService(auth.Deps{
		Users:  store,
		Hasher: users.NewBcryptHasher(c.GetBcryptCost()),
		Codec:  codec,
		Cache:  cache,
	},
		auth.WithTokenLifetimes(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry(), c.GetEmailTokenExpiry()),
		auth.WithCacheTTL(c.GetSessionCacheTTL()),
		auth.WithMinPasswordLength(c.GetMinPasswordLength()),
	)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	handler, err := server.New(c, authService)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var out io.Writer = os.Stderr
	if env == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func openUserStore(ctx context.Context, path string) (*sqlite.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("user store: %w", err)
	}
	log.Info().Str("path", path).Msg("User store opened")
	return store, nil
}

type closingCache interface {
	sessions.Cache
	io.Closer
}

// newSessionCache uses redis when REDIS_URL is set and a process-local cache otherwise.
func newSessionCache(ctx context.Context, c config.Config) (closingCache, error) {
	if c.GetRedisURL() == "" {
		log.Warn().Msg("REDIS_URL not set, using in-memory session cache")
		return sessions.NewMemoryCache(c.GetSessionCacheTTL()), nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cache, err := sessions.NewRedisCacheFromURL(pingCtx, c.GetRedisURL(), c.GetRedisKeyPrefix())
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	log.Info().Msg("Redis session cache connected")
	return cache, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
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
