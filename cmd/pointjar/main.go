package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/pointjar/internal/backup"
	"github.com/dukerupert/pointjar/internal/bootstrap"
	"github.com/dukerupert/pointjar/internal/config"
	"github.com/dukerupert/pointjar/internal/database"
	"github.com/dukerupert/pointjar/internal/logging"
	"github.com/dukerupert/pointjar/internal/push"
	"github.com/dukerupert/pointjar/internal/server"
)

const usage = `usage: pointjar [command]

commands:
  serve (default)                 run the API server
  vapid-keys                      print a new VAPID key pair for Web Push
  decrypt-backup <in> <out>       decrypt a backup using POINTJAR_BACKUP_PASSPHRASE
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "vapid-keys":
		err = vapidKeys()
	case "decrypt-backup":
		err = decryptBackup(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pointjar: %v\n", err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Seed {
		if err := bootstrap.Seed(ctx, db, srv.Ledger(), logger.With("component", "bootstrap")); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	if w := srv.PushWorker(); w != nil {
		w.Start(ctx)
		defer w.Stop()
	} else {
		logger.Info("web push disabled", "reason", "VAPID keys not set")
	}

	if m := srv.BackupManager(); m.Enabled() {
		m.Start(ctx)
		defer m.Stop()
	} else {
		logger.Info("backups disabled", "reason", "S3 or passphrase not set")
	}

	go cleanupLoop(ctx, srv, logger)

	// WebSocket connections are long-lived, so no read or write timeout.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("pointjar starting", "addr", httpServer.Addr, "frontend", cfg.FrontendURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cleanupLoop purges expired sessions and idle rate limit buckets hourly.
func cleanupLoop(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := srv.SessionStore().DeleteExpired(ctx); err != nil {
				logger.Error("cleanup expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("cleaned up expired sessions", "count", n)
			}
			if n := srv.RateLimiter().Cleanup(); n > 0 {
				logger.Debug("cleaned up rate limit entries", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func vapidKeys() error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Printf("POINTJAR_VAPID_PUBLIC_KEY=%s\nPOINTJAR_VAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}

func decryptBackup(args []string) error {
	if len(args) != 2 {
		return errors.New("decrypt-backup needs <in> and <out> paths")
	}
	if _, err := config.Load(".env"); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	passphrase := os.Getenv("POINTJAR_BACKUP_PASSPHRASE")
	if passphrase == "" {
		return errors.New("POINTJAR_BACKUP_PASSPHRASE is not set")
	}
	if err := backup.DecryptFile(args[0], args[1], passphrase); err != nil {
		return err
	}
	fmt.Printf("decrypted %s to %s\n", args[0], args[1])
	return nil
}
