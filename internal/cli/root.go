// Package cli implements the command-line interface for pictor.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvalchek/pictor/internal/config"
	"github.com/kvalchek/pictor/internal/gallery"
	"github.com/kvalchek/pictor/internal/remote"
	"github.com/kvalchek/pictor/internal/session"
	"github.com/kvalchek/pictor/internal/store"
)

// currentSessionKey is the store key holding the session id commands
// default to when --session is not given.
const currentSessionKey = "current_session"

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Store   *store.Store
	Client  remote.SessionClient
	Gallery *gallery.Projector
	Logger  *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext initializes config and store (no client)
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("PICTOR_DEBUG") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return &cmdContext{
		Config:  cfg,
		Store:   st,
		Gallery: gallery.NewProjector(st, logger),
		Logger:  logger,
	}
}

// initFullContext initializes config, store, and the remote session client
func initFullContext() *cmdContext {
	c := initContext()
	c.Client = remote.NewRetryClient(remote.NewHTTPClient(c.Config.ServerURL, c.Config.Token), nil)
	return c
}

// openSession builds a reconciler for the given session and loads it.
// Fire-and-forget persistence runs synchronously so writes land before
// the process exits. A load-time transport failure is reported as a
// warning; the session still opens from local data.
func (c *cmdContext) openSession(ctx context.Context, sessionID, sourceURL string) *session.Reconciler {
	r := session.New(sessionID, c.Client, session.Options{
		Gallery: c.Gallery,
		Cache:   c.Store,
		Logger:  c.Logger,
		Async:   func(fn func()) { fn() },
	})
	r.Open(ctx, sourceURL)
	if msg := r.Err(); msg != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
		r.DismissError()
	}
	return r
}

// resolveSession returns the explicit session id or falls back to the
// current session recorded by `pictor open`.
func (c *cmdContext) resolveSession(explicit string) string {
	if explicit != "" {
		return explicit
	}
	data, found, err := c.Store.Get(currentSessionKey)
	if err != nil || !found || len(data) == 0 {
		exitError("no session selected (run \"pictor open <image>\" or pass --session)")
	}
	return string(data)
}

var rootCmd = &cobra.Command{
	Use:   "pictor",
	Short: "Mask-based image editing sessions",
	Long: `Pictor is a CLI for mask-based image editing sessions. Upload an image,
paint masks with replayable stroke scripts, submit edit instructions to a
processing server, and pick between result versions while keeping a full
session history.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(maskCmd)
	rootCmd.AddCommand(serveCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// envOrDefault returns the environment value or a fallback
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
