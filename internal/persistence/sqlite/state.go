// SPDX-License-Identifier: MIT

package sqlite

// connState tracks a connection session through its lifecycle. Transitions
// are logged so a stuck workstation can be diagnosed from another host's
// logs plus the sidecar holder line.
type connState int

const (
	stateClosed connState = iota
	stateLockPending
	stateLockAcquired
	stateConnecting
	stateMigrating
	stateReady
	stateClosing
	stateLockTimeout
	stateConnectFailed
)

func (s connState) String() string {
	switch s {
	case stateClosed:
		return "CLOSED"
	case stateLockPending:
		return "LOCK_PENDING"
	case stateLockAcquired:
		return "LOCK_ACQUIRED"
	case stateConnecting:
		return "CONNECTING"
	case stateMigrating:
		return "MIGRATING"
	case stateReady:
		return "READY"
	case stateClosing:
		return "CLOSING"
	case stateLockTimeout:
		return "LOCK_TIMEOUT"
	case stateConnectFailed:
		return "CONNECT_FAILED"
	default:
		return "UNKNOWN"
	}
}
