package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/naka-gawa/prcounter/internal/config"
	"github.com/naka-gawa/prcounter/internal/gateway"
	"github.com/naka-gawa/prcounter/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds the resources shared by the commands for the length of one run.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	closeLog func() error
	store    *store.SQLiteStore
}

// newApp loads the configuration and sets up logging. remote is true when the
// command talks to GitHub.
func newApp(cmd *cobra.Command, remote bool) (*app, error) {
	configPath, _ := cmd.InheritedFlags().GetString("config")
	verbose, _ := cmd.InheritedFlags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(remote); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	logger, closeLog, err := newLogger(verbose, cfg.Application.LogPath)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

// newLogger discards logs by default. A log path gets every debug line, and
// --verbose mirrors them to standard error.
func newLogger(verbose bool, logPath string) (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)

	var writers []io.Writer
	closeLog := func() error { return nil }
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closeLog = f.Close
	}
	if verbose {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
	return logger, closeLog, nil
}

func (a *app) openStore(ctx context.Context) (*store.SQLiteStore, error) {
	stmts, err := store.LoadStatements(a.cfg.Database.SQLPath)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(a.cfg.Database.Path, stmts, a.logger)
	if err != nil {
		return nil, err
	}
	if err := s.CreateTables(ctx); err != nil {
		s.Close()
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *app) newGateway() (*gateway.GitHubGateway, error) {
	g, err := gateway.NewGitHubGateway(a.cfg.GitHub.Token, a.cfg.GitHub.BaseURL, a.cfg.GitHub.MaxRateLimitSleep, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	return g, nil
}

// Close releases the store and flushes the log file.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close database")
		}
	}
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
	}
}

// exitOnError prints err and exits, as every command does on failure.
func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
