// SPDX-License-Identifier: MIT

package sqlite

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DirectoryError reports that the database's containing directory could not
// be created. Fatal for this database path: retrying will not change the
// underlying permission or mount condition.
type DirectoryError struct {
	Dir string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("cannot create database directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// BusyError reports that the engine kept returning SQLITE_BUSY even though
// the advisory lock was held, and the internal retry budget ran out.
// Recoverable: the caller may retry the whole connection attempt.
type BusyError struct {
	Path     string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("database %s still busy after %d retries in %v: %v",
		e.Path, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *BusyError) Unwrap() error { return e.Err }

// MigrationError reports a schema migration step that failed for a reason
// other than having been applied by a racing host. Fatal for the connection
// attempt: the schema state is suspect and must not be handed to callers.
type MigrationError struct {
	Step    string
	Version int
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %v", e.Version, e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// IsBusy reports whether err is an exhausted engine busy budget.
func IsBusy(err error) bool {
	var be *BusyError
	return errors.As(err, &be)
}

// isBusyCondition classifies raw engine errors that mean "locked right now,
// try again". modernc.org/sqlite surfaces SQLITE_BUSY and SQLITE_LOCKED as
// message text, so this matches the way the engine reports them.
func isBusyCondition(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database is busy")
}

// isAlreadyApplied classifies the engine errors produced when a racing host
// applied the same additive schema change between our probe and apply.
func isAlreadyApplied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column name") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "already another table or index")
}
