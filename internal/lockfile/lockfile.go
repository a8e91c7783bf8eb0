// SPDX-License-Identifier: MIT

// Package lockfile implements the cross-process advisory lock that guards a
// SQLite catalog shared over a network mount. SQLite's own POSIX locks are
// unreliable on SMB/NFS, so every writer takes an exclusive lock on a
// sidecar file (<db>.lock) before touching the database.
//
// The lock primitive is the platform's non-blocking exclusive file lock
// (flock on Unix, LockFileEx on Windows); both are dropped by the kernel
// when the holding process exits, so a crashed holder never wedges the
// catalog and no steal policy is needed.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelfx/stax/internal/backoff"
	xlog "github.com/kestrelfx/stax/internal/log"
	"github.com/kestrelfx/stax/internal/metrics"
	"github.com/rs/zerolog"
)

// Suffix is appended to a database path to form its sidecar lock path.
const Suffix = ".lock"

// SidecarPath returns the lock file path for the given database path.
func SidecarPath(dbPath string) string {
	return dbPath + Suffix
}

// Options bound a single Acquire call.
type Options struct {
	// Timeout caps total wall-clock time spent acquiring. Zero means the
	// default of 30s.
	Timeout time.Duration
	// MaxRetries caps the number of lock attempts. Zero means the default
	// of 100.
	MaxRetries int
	// Policy computes inter-attempt delays. Zero value means backoff.Default().
	Policy backoff.Policy
	// Sleeper performs the waits; tests substitute a recorder.
	Sleeper backoff.Sleeper
}

func (o *Options) fill() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 100
	}
	if o.Policy == (backoff.Policy{}) {
		o.Policy = backoff.Default()
	}
	if o.Sleeper == nil {
		o.Sleeper = backoff.RealSleeper{}
	}
}

// Manager acquires and releases the advisory lock for one sidecar path.
// A Manager is cheap; construct one per database path.
type Manager struct {
	path string
	opts Options
	log  zerolog.Logger
}

// New returns a Manager for the given sidecar path.
func New(sidecarPath string, opts Options) *Manager {
	opts.fill()
	return &Manager{
		path: sidecarPath,
		opts: opts,
		log:  xlog.WithComponent("lockfile"),
	}
}

// ForDatabase returns a Manager for the sidecar next to dbPath.
func ForDatabase(dbPath string, opts Options) *Manager {
	return New(SidecarPath(dbPath), opts)
}

// Handle represents a held lock. Release is idempotent.
type Handle struct {
	path string
	f    *os.File

	mu       sync.Mutex
	released bool
}

// Path returns the sidecar path the handle locks.
func (h *Handle) Path() string { return h.path }

// Release drops the advisory lock and closes the sidecar descriptor. It is
// safe to call multiple times; only the first call does work. The sidecar
// file itself is left in place: a lock is free when the primitive can be
// re-acquired, not when the file is absent.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	unlockErr := unlock(h.f)
	closeErr := h.f.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", h.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", h.path, closeErr)
	}
	return nil
}

// Acquire takes the exclusive advisory lock, retrying with backoff until it
// succeeds or a bound is hit: Options.Timeout, Options.MaxRetries, or ctx
// cancellation, whichever comes first. On timeout it returns a
// *LockTimeoutError carrying the last-known holder read from the sidecar.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	start := time.Now()

	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			metrics.LockAcquireTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("create lock directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // sidecar path derives from the trusted db path
	if err != nil {
		metrics.LockAcquireTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("open lock file %s: %w", m.path, err)
	}

	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		if elapsed := time.Since(start); elapsed >= m.opts.Timeout {
			_ = f.Close()
			return nil, m.timeoutError(attempt, elapsed)
		}

		err = tryLock(f)
		if err == nil {
			m.writeHolder(f)
			elapsed := time.Since(start)
			metrics.LockAcquireTotal.WithLabelValues("acquired").Inc()
			metrics.LockWaitSeconds.Observe(elapsed.Seconds())
			m.log.Debug().
				Str(xlog.FieldLockPath, m.path).
				Int(xlog.FieldAttempt, attempt).
				Dur(xlog.FieldElapsed, elapsed).
				Msg("advisory lock acquired")
			return &Handle{path: m.path, f: f}, nil
		}
		if !isContention(err) {
			_ = f.Close()
			metrics.LockAcquireTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("lock %s: %w", m.path, err)
		}

		delay := m.opts.Policy.Delay(attempt)
		if remaining := m.opts.Timeout - time.Since(start); delay > remaining {
			delay = remaining
		}
		metrics.LockRetryTotal.Inc()
		m.log.Debug().
			Str(xlog.FieldLockPath, m.path).
			Int(xlog.FieldAttempt, attempt).
			Dur(xlog.FieldDelay, delay).
			Msg("advisory lock held elsewhere, backing off")
		if err := m.opts.Sleeper.Sleep(ctx, delay); err != nil {
			_ = f.Close()
			metrics.LockAcquireTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("lock wait interrupted for %s: %w", m.path, err)
		}
	}

	_ = f.Close()
	return nil, m.timeoutError(m.opts.MaxRetries, time.Since(start))
}

// With runs fn while holding the lock and guarantees release on every exit
// path, including panics inside fn.
func (m *Manager) With(ctx context.Context, fn func() error) error {
	h, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = h.Release() }()
	return fn()
}

func (m *Manager) timeoutError(attempts int, elapsed time.Duration) error {
	metrics.LockAcquireTotal.WithLabelValues("timeout").Inc()
	e := &LockTimeoutError{
		Path:     m.path,
		Attempts: attempts,
		Elapsed:  elapsed,
		Timeout:  m.opts.Timeout,
	}
	if holder, err := ReadHolder(m.path); err == nil {
		e.HolderPID = holder.PID
		e.HolderTime = holder.Time
	}
	m.log.Warn().
		Str(xlog.FieldLockPath, m.path).
		Int(xlog.FieldAttempt, attempts).
		Dur(xlog.FieldElapsed, elapsed).
		Int(xlog.FieldHolderPID, e.HolderPID).
		Msg("advisory lock acquisition timed out")
	return e
}

// writeHolder records pid and timestamp in the sidecar for operator
// diagnosis. Best effort: a failure here never fails the acquisition, and
// the content is never authoritative for lock state.
func (m *Manager) writeHolder(f *os.File) {
	if err := writeHolderLine(f, os.Getpid(), time.Now()); err != nil {
		m.log.Debug().Err(err).Str(xlog.FieldLockPath, m.path).
			Msg("could not write lock holder diagnostics")
	}
}

func writeHolderLine(f *os.File, pid int, ts time.Time) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "pid=%d ts=%d\n", pid, ts.Unix()); err != nil {
		return err
	}
	return f.Sync()
}

// Holder is the diagnostic record a lock holder leaves in the sidecar.
type Holder struct {
	PID  int
	Time time.Time
}

// ReadHolder parses the last-known holder line from a sidecar file.
func ReadHolder(path string) (Holder, error) {
	data, err := os.ReadFile(path) //nolint:gosec // sidecar path derives from the trusted db path
	if err != nil {
		return Holder{}, err
	}
	var pid int
	var ts int64
	if _, err := fmt.Sscanf(string(data), "pid=%d ts=%d", &pid, &ts); err != nil {
		return Holder{}, fmt.Errorf("unparseable holder line in %s: %w", path, err)
	}
	return Holder{PID: pid, Time: time.Unix(ts, 0)}, nil
}

// LockTimeoutError reports that the advisory lock could not be obtained
// within the configured bounds. It is always recoverable: the caller may
// retry later.
type LockTimeoutError struct {
	Path       string
	Attempts   int
	Elapsed    time.Duration
	Timeout    time.Duration
	HolderPID  int       // 0 when the sidecar was unreadable
	HolderTime time.Time // zero when unknown
}

func (e *LockTimeoutError) Error() string {
	msg := fmt.Sprintf("lock %s not acquired after %d attempts in %v (timeout %v)",
		e.Path, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Timeout)
	if e.HolderPID > 0 {
		msg += fmt.Sprintf("; last held by pid %d at %s", e.HolderPID, e.HolderTime.Format(time.RFC3339))
	}
	return msg
}

// IsTimeout reports whether err is a lock acquisition timeout.
func IsTimeout(err error) bool {
	var lt *LockTimeoutError
	return errors.As(err, &lt)
}
