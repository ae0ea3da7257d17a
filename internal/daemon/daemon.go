// Package daemon wires the pieces into the long-running process: it
// resolves paths, opens the database, starts the unified logger and its
// retention sweep, and serves RPC until the context is canceled.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dxta-dev/clankers/internal/logging"
	"github.com/dxta-dev/clankers/internal/paths"
	"github.com/dxta-dev/clankers/internal/rpc"
	"github.com/dxta-dev/clankers/internal/store"
)

// EnvLogLevel sets the daemon's minimum log level when the flag is unset.
const EnvLogLevel = "CLANKERS_LOG_LEVEL"

// retentionInterval is how often the log retention sweep runs.
const retentionInterval = 24 * time.Hour

// Options configures a daemon run. Zero values fall back to the
// environment and then the per-OS defaults. DataRoot relocates everything
// (database, log files, and on POSIX the socket) under <DataRoot>/clankers.
type Options struct {
	SocketPath string
	DataRoot   string
	DBPath     string
	LogDir     string
	LogLevel   string
}

func (o Options) dataDir() string {
	if o.DataRoot != "" {
		return filepath.Join(o.DataRoot, "clankers")
	}
	return paths.DataDir()
}

func (o Options) socketPath() string {
	if o.SocketPath != "" {
		return o.SocketPath
	}
	// Named pipes are not filesystem paths, so DataRoot cannot move them.
	if o.DataRoot != "" && runtime.GOOS != "windows" {
		return filepath.Join(o.dataDir(), "dxta-clankers.sock")
	}
	return paths.SocketPath()
}

func (o Options) dbPath() string {
	if o.DBPath != "" {
		return o.DBPath
	}
	if o.DataRoot != "" {
		return filepath.Join(o.dataDir(), "clankers.db")
	}
	return paths.DBPath()
}

func (o Options) logDir() string {
	if o.LogDir != "" {
		return o.LogDir
	}
	if o.DataRoot != "" {
		return o.dataDir()
	}
	return paths.LogDir()
}

func (o Options) logLevel() logging.Level {
	if o.LogLevel != "" {
		return logging.ParseLevel(o.LogLevel)
	}
	return logging.ParseLevel(os.Getenv(EnvLogLevel))
}

// Run starts the daemon and blocks until ctx is canceled or startup
// fails. On cancellation it drains connections, checkpoints the database,
// and removes the endpoint.
func Run(ctx context.Context, opts Options) error {
	// Until the rotating logger is up, failures go to stderr.
	boot := slog.New(slog.NewTextHandler(os.Stderr, nil))

	logger, err := logging.New(opts.logDir(), opts.logLevel())
	if err != nil {
		boot.Error("failed to start logger", "dir", opts.logDir(), "error", err)
		return fmt.Errorf("starting logger: %w", err)
	}
	defer logger.Close()
	diag := slog.New(logging.NewSlogHandler(logger, "daemon"))

	dbPath := opts.dbPath()
	created, err := store.EnsureDB(dbPath)
	if err != nil {
		return fmt.Errorf("ensuring database: %w", err)
	}
	if created {
		diag.Info("created database", "path", dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	server := rpc.NewServer(st, logger, opts.socketPath(), diag)
	server.SetDBCreated(created)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	diag.Info("daemon started", "db", dbPath, "logLevel", logger.MinLevel().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return logger.RunRetention(gctx, retentionInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		diag.Info("shutting down")
		return server.Stop()
	})

	err = g.Wait()
	if ctx.Err() != nil {
		// Normal shutdown via signal or caller cancellation.
		return nil
	}
	return err
}
