// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/kestrelfx/stax/internal/lockfile"
	xlog "github.com/kestrelfx/stax/internal/log"
	"github.com/kestrelfx/stax/internal/metrics"
	"github.com/kestrelfx/stax/internal/platform/paths"
)

// Factory hands out ready connections: path resolved, directory ensured,
// advisory lock held, engine tuned, schema migrated. It is the only way the
// rest of the program reaches the database, which is what enforces the
// "no write without the lock" invariant by construction.
type Factory struct {
	cfg Config
	log zerolog.Logger
}

// NewFactory returns a Factory with zero-value fields of cfg filled from
// DefaultConfig.
func NewFactory(cfg Config) *Factory {
	cfg.fill()
	return &Factory{cfg: cfg, log: xlog.WithComponent("sqlite")}
}

// Conn is a ready database session. It is owned exclusively by the caller
// between Connect and Close and must not be shared across goroutines
// without external synchronization.
type Conn struct {
	db   *sql.DB
	lock *lockfile.Handle
	path string
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// DB exposes the underlying handle for queries.
func (c *Conn) DB() *sql.DB { return c.db }

// Path returns the resolved absolute database path.
func (c *Conn) Path() string { return c.path }

// Close shuts the engine connection down and only then releases the
// advisory lock, so no other host can observe a half-closed WAL. Idempotent.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.logTransition(stateReady, stateClosing)
	dbErr := c.db.Close()
	var lockErr error
	if c.lock != nil {
		lockErr = c.lock.Release()
	}
	c.logTransition(stateClosing, stateClosed)
	return errors.Join(dbErr, lockErr)
}

func (c *Conn) logTransition(from, to connState) {
	c.log.Debug().
		Str(xlog.FieldDBPath, c.path).
		Str(xlog.FieldOldState, from.String()).
		Str(xlog.FieldNewState, to.String()).
		Msg("connection state change")
}

// Connect resolves path, ensures its directory, takes the advisory lock,
// opens the tuned engine connection with a bounded busy-retry, migrates the
// schema and returns the ready session. On any failure every partially
// acquired resource is released before the error propagates.
func (f *Factory) Connect(ctx context.Context, path string) (conn *Conn, err error) {
	state := stateClosed
	transition := func(to connState) {
		f.log.Debug().
			Str(xlog.FieldDBPath, path).
			Str(xlog.FieldOldState, state.String()).
			Str(xlog.FieldNewState, to.String()).
			Msg("connection state change")
		state = to
	}
	defer func() {
		metrics.ConnectTotal.WithLabelValues(connectOutcome(err)).Inc()
	}()

	abs, err := paths.ResolveDatabasePath(f.cfg.Root, path)
	if err != nil {
		return nil, err
	}

	// The database directory is required, unlike auxiliary dirs which only
	// warn (see EnsureAuxDir).
	dir := filepath.Dir(abs)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		err = &DirectoryError{Dir: dir, Err: mkErr}
		return nil, err
	}

	_, statErr := os.Stat(abs)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	var lock *lockfile.Handle
	if !f.cfg.DisableLock {
		transition(stateLockPending)
		mgr := lockfile.ForDatabase(abs, lockfile.Options{
			Timeout:    f.cfg.LockTimeout,
			MaxRetries: f.cfg.LockMaxRetries,
			Policy:     f.cfg.lockPolicy(),
			Sleeper:    f.cfg.Sleeper,
		})
		lock, err = mgr.Acquire(ctx)
		if err != nil {
			transition(stateLockTimeout)
			return nil, err
		}
		transition(stateLockAcquired)
	}
	defer func() {
		if err != nil && lock != nil {
			_ = lock.Release()
		}
	}()

	transition(stateConnecting)
	db, err := f.open(ctx, abs)
	if err != nil {
		transition(stateConnectFailed)
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	transition(stateMigrating)
	if err = f.migrate(ctx, db, abs, fresh); err != nil {
		transition(stateConnectFailed)
		return nil, err
	}

	transition(stateReady)
	return &Conn{db: db, lock: lock, path: abs, log: f.log}, nil
}

// open dials the engine and pings it under the busy-retry budget. The DSN
// already sets a busy_timeout inside the engine; this outer loop covers the
// narrow window where another process raced us despite the advisory lock.
func (f *Factory) open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", f.cfg.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One connection per session: the session is single-owner and WAL
	// readers in other processes are unaffected.
	db.SetMaxOpenConns(1)

	policy := f.cfg.lockPolicy()
	start := time.Now()
	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if !isBusyCondition(err) {
			_ = db.Close()
			return nil, fmt.Errorf("ping database %s: %w", path, err)
		}
		if elapsed := time.Since(start); elapsed >= f.cfg.BusyTimeout {
			_ = db.Close()
			return nil, &BusyError{Path: path, Attempts: attempt, Elapsed: elapsed, Err: err}
		}
		metrics.BusyRetryTotal.Inc()
		f.log.Debug().
			Str(xlog.FieldDBPath, path).
			Int(xlog.FieldAttempt, attempt).
			Msg("engine busy despite advisory lock, retrying")
		if sleepErr := f.cfg.Sleeper.Sleep(ctx, policy.Delay(attempt)); sleepErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("busy wait interrupted for %s: %w", path, sleepErr)
		}
	}
}

func connectOutcome(err error) string {
	switch {
	case err == nil:
		return "ready"
	case lockfile.IsTimeout(err):
		return "lock_timeout"
	case IsBusy(err):
		return "busy"
	default:
		var de *DirectoryError
		if errors.As(err, &de) {
			return "directory"
		}
		var me *MigrationError
		if errors.As(err, &me) {
			return "migration"
		}
		return "error"
	}
}

// EnsureAuxDir creates a non-critical auxiliary directory (preview storage
// and the like). Failure degrades to a warning: these directories are not
// needed to open the catalog itself.
func EnsureAuxDir(path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		logger := xlog.WithComponent("sqlite")
		logger.Warn().Err(err).
			Str(xlog.FieldPath, path).
			Msg("could not create auxiliary directory")
	}
}
