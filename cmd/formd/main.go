// cmd/formd/main.go
//
// formd – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load env vars (host-wide file → .env fallback).
//
//  2. Connect to Vault when VAULT_ADDR is set, so `vault:` references in
//     the configuration can be resolved.
//
//  3. Load configuration (conf/formd.yaml + FORMD_ overrides).
//
//  4. Start the daily rotating logger (tees to console in a TTY).
//
//  5. Open the submissions database when one is configured.
//
//  6. Load every form definition so broken files fail the deploy.
//
//  7. Start the session evictor and serve the HTTP binding until SIGINT or
//     SIGTERM.  SIGHUP re-reads the configuration file.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AdeptTravel/formstate/internal/action"
	"github.com/AdeptTravel/formstate/internal/config"
	"github.com/AdeptTravel/formstate/internal/database"
	"github.com/AdeptTravel/formstate/internal/definition"
	"github.com/AdeptTravel/formstate/internal/logger"
	"github.com/AdeptTravel/formstate/internal/server"
	"github.com/AdeptTravel/formstate/internal/session"
	"github.com/AdeptTravel/formstate/internal/vault"
)

const serverEnvPath = "/usr/local/etc/formd/formd.env"

// loadEnv prefers the host-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("formd: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Secrets and configuration ──────────────────────────────────
	//
	var sec config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, zap.S())
		if err != nil {
			return err
		}
		sec = vc
	}

	cfg, err := config.Load(ctx, sec)
	if err != nil {
		return err
	}

	logOut, err := logger.New(logger.Options{
		Dir:   cfg.Log.Dir,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee && runningInTTY(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Optional submissions database ──────────────────────────────
	//
	var db *sqlx.DB
	if cfg.Database.DSN != "" {
		dsn, err := database.DSN(cfg.Database.DSN, cfg.Database.Password)
		if err != nil {
			return err
		}
		logOut.Infow("connecting to database")
		if db, err = database.Open(ctx, dsn); err != nil {
			return err
		}
		defer db.Close()
		logOut.Infow("database online")
	}

	//
	// ── 3.  Definitions, sessions, actions ─────────────────────────────
	//
	defs := definition.NewRegistry(cfg.Forms.DefinitionsDir, cfg.Forms.CacheSize, logOut)
	if _, err := defs.LoadAll(); err != nil {
		return err
	}

	signer, err := session.NewSigner(cfg.HTTP.TokenSecret)
	if err != nil {
		return err
	}
	sessions := session.NewManager(signer, cfg.Forms.SessionIdleTTL, cfg.Forms.MaxSessions, logOut)
	go sessions.Run(ctx, session.EvictInterval)

	api := server.NewAPI(defs, sessions, action.NewRunner(db, nil), server.Options{
		ValidateOnChange: cfg.Forms.ValidateOnChange,
		ValidateOnInput:  cfg.Forms.ValidateOnInput,
		ValidateOnBlur:   cfg.Forms.ValidateOnBlur,
		SubmitTimeout:    cfg.Forms.SubmitTimeout,
		ForceHTTPS:       cfg.HTTP.ForceHTTPS,
	}, logOut)

	go reloadOnHUP(ctx, logOut)

	//
	// ── 4.  Serve until signalled ──────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, api.Routes(), cfg.Forms.SubmitTimeout)
	errCh := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logOut.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Forms.SubmitTimeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// reloadOnHUP re-reads the configuration on SIGHUP.  Values read at start-up
// (listener, sessions, definitions directory) still need a restart; the
// reload validates the new file early and refreshes config.Get().
func reloadOnHUP(ctx context.Context, log *zap.SugaredLogger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := config.Reload(ctx); err != nil {
				log.Errorw("config reload failed", "err", err)
				continue
			}
			log.Infow("config reloaded")
		}
	}
}
