package serve

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

	"github.com/dtnitsch/lilypads/internal/common"
	"github.com/dtnitsch/lilypads/pkg/auth"
	"github.com/dtnitsch/lilypads/pkg/dataset"
	"github.com/dtnitsch/lilypads/pkg/db"
	"github.com/dtnitsch/lilypads/pkg/server"
	"github.com/urfave/cli/v2"
)

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 30 * time.Second

// purgeInterval is how often expired sessions are removed.
const purgeInterval = time.Hour

// Flags are the options of lilypads serve.
var Flags = []cli.Flag{
	&cli.StringFlag{Name: "addr", Usage: "listen address", EnvVars: []string{"LILYPADS_ADDR"}},
	&cli.StringFlag{Name: "data-dir", Usage: "directory of dataset artifacts", EnvVars: []string{"LILYPADS_DATA_DIR"}},
	&cli.StringFlag{Name: "content-dir", Usage: "directory served under /app", EnvVars: []string{"LILYPADS_CONTENT_DIR"}},
	&cli.StringFlag{Name: "dist-dir", Usage: "directory served under /dist", EnvVars: []string{"LILYPADS_DIST_DIR"}},
	&cli.StringFlag{Name: "database", Usage: "SQLite user database", EnvVars: []string{"LILYPADS_DATABASE"}},
	&cli.BoolFlag{Name: "behind-proxy", Usage: "trust X-Forwarded-* headers", EnvVars: []string{"LILYPADS_BEHIND_PROXY"}},
	&cli.BoolFlag{Name: "secure-cookies", Usage: "only send cookies over HTTPS", EnvVars: []string{"LILYPADS_SECURE_COOKIES"}},
}

// purgeSessions removes expired sessions until ctx is done.
func purgeSessions(ctx context.Context, database *db.DB, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		n, err := database.PurgeExpiredSessions(time.Now())
		if err != nil {
			logger.Error("failed to purge sessions", "error", err)
		} else if n > 0 {
			logger.Info("purged expired sessions", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ServeAction runs the web server until SIGINT or SIGTERM.
func ServeAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	sc := cfg.Server
	if c.IsSet("addr") {
		sc.Addr = c.String("addr")
	}
	if c.IsSet("data-dir") {
		sc.DataDir = c.String("data-dir")
	}
	if c.IsSet("content-dir") {
		sc.ContentDir = c.String("content-dir")
	}
	if c.IsSet("dist-dir") {
		sc.DistDir = c.String("dist-dir")
	}
	if c.IsSet("database") {
		cfg.Database = c.String("database")
	}
	if c.IsSet("behind-proxy") {
		sc.BehindProxy = c.Bool("behind-proxy")
	}
	if c.IsSet("secure-cookies") {
		sc.SecureCookies = c.Bool("secure-cookies")
	}

	logOut, closeLog := common.LogWriter(sc.LogFile, sc)
	defer closeLog()
	logger := common.NewLogger(c, logOut)

	accessOut, closeAccess := common.LogWriter(sc.AccessLog, sc)
	defer closeAccess()

	database, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	logger.Info("opened user database", "path", database.Path())

	catalog, err := dataset.LoadDir(sc.DataDir)
	if err != nil {
		return err
	}
	logger.Info("loaded datasets", "dir", sc.DataDir, "count", catalog.Len())

	srv, err := server.New(catalog, auth.NewService(database), database, server.Options{
		Addr:          sc.Addr,
		ContentDir:    sc.ContentDir,
		DistDir:       sc.DistDir,
		BehindProxy:   sc.BehindProxy,
		SecureCookies: sc.SecureCookies,
		SessionTTL:    sc.SessionTTL,
		RememberTTL:   sc.RememberTTL,
		Version:       c.App.Version,
	}, logger, accessOut)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go purgeSessions(ctx, database, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.Info("received signal, shutting down gracefully", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
