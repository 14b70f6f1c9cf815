package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvalchek/pictor/internal/remote/blobstore"
	"github.com/kvalchek/pictor/internal/remote/metastore"
	"github.com/kvalchek/pictor/internal/remote/server"
)

var (
	serveListen    string
	serveDataDir   string
	serveToken     string
	serveLogLevel  string
	serveLogFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pictor server",
	Long: `Start the pictor session server. Session metadata is stored in SQLite and
image blobs on the local filesystem. Bearer token authentication is
required for all API endpoints; a random token is generated and printed
when none is configured.

Examples:
  pictor serve
  pictor serve --listen 0.0.0.0:8730 --data-dir /var/lib/pictor`,
	Run: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", envOrDefault("PICTOR_LISTEN", "127.0.0.1:8730"), "Listen address (host:port)")
	f.StringVar(&serveDataDir, "data-dir", envOrDefault("PICTOR_DATA_DIR", defaultDataDir()), "Directory for session data")
	f.StringVar(&serveToken, "token", os.Getenv("PICTOR_TOKEN"), "Bearer token clients must present")
	f.StringVar(&serveLogLevel, "log-level", envOrDefault("PICTOR_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	f.StringVar(&serveLogFormat, "log-format", envOrDefault("PICTOR_LOG_FORMAT", "text"), "Log format (json|text)")
}

func runServe(_ *cobra.Command, _ []string) {
	logger := newServerLogger(serveLogLevel, serveLogFormat)

	token := serveToken
	if token == "" {
		token = generateToken()
		logger.Info("generated server token", "token", token)
	}

	srv, cleanup, err := buildServer(serveListen, serveDataDir, token, logger)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting pictor server", "listen", serveListen, "data_dir", serveDataDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// buildServer wires the stores, processor, and handler into an http.Server.
func buildServer(listen, dataDir, token string, logger *slog.Logger) (*http.Server, func(), error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, err
	}

	sessions, err := metastore.NewSQLiteStore(filepath.Join(dataDir, "sessions.db"))
	if err != nil {
		return nil, nil, err
	}

	blobs, err := blobstore.NewFSStore(filepath.Join(dataDir, "blobs"))
	if err != nil {
		sessions.Close()
		return nil, nil, err
	}

	cfg := server.DefaultConfig()
	cfg.Token = token

	h := server.NewHandler(sessions, blobs, server.NewStubProcessor(blobs), logger, cfg)

	srv := &http.Server{
		Addr:              listen,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	cleanup := func() {
		if err := sessions.Close(); err != nil {
			logger.Error("failed to close session store", "error", err)
		}
	}
	return srv, cleanup, nil
}

// newServerLogger builds a slog logger from level and format names.
func newServerLogger(levelName, format string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// generateToken returns a random 32-hex-char bearer token.
func generateToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// defaultDataDir returns the default server data directory (~/.pictor-server).
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/var/lib/pictor-server"
	}
	return filepath.Join(home, ".pictor-server")
}
