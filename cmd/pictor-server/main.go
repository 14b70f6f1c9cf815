// Command pictor-server runs the pictor session server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kvalchek/pictor/internal/remote/blobstore"
	"github.com/kvalchek/pictor/internal/remote/metastore"
	"github.com/kvalchek/pictor/internal/remote/server"
)

func main() {
	listen := flag.String("listen", envOrDefault("PICTOR_LISTEN", "0.0.0.0:8730"), "Listen address")
	dataDir := flag.String("data-dir", envOrDefault("PICTOR_DATA_DIR", "/var/lib/pictor-server"), "Data directory")
	token := flag.String("token", os.Getenv("PICTOR_TOKEN"), "Bearer token clients must present")
	logLevel := flag.String("log-level", envOrDefault("PICTOR_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("PICTOR_LOG_FORMAT", "json"), "Log format (json, text)")
	flag.Parse()

	// Setup logger
	var level slog.Level
	switch *logLevel {
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
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", *dataDir)
		os.Exit(1)
	}

	sessions, err := metastore.NewSQLiteStore(filepath.Join(*dataDir, "sessions.db"))
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	blobs, err := blobstore.NewFSStore(filepath.Join(*dataDir, "blobs"))
	if err != nil {
		logger.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}

	serverToken := *token
	if serverToken == "" {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			logger.Error("failed to generate token", "error", err)
			os.Exit(1)
		}
		serverToken = hex.EncodeToString(buf)
		logger.Info("generated server token", "token", serverToken)
	}

	cfg := server.DefaultConfig()
	cfg.Token = serverToken

	h := server.NewHandler(sessions, blobs, server.NewStubProcessor(blobs), logger, cfg)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting pictor server", "listen", *listen, "data_dir", *dataDir)
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

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
