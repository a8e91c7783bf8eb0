// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEvent     = "event"

	// Path fields
	FieldPath     = "path"
	FieldDBPath   = "db_path"
	FieldLockPath = "lock_path"

	// Lock / retry fields
	FieldAttempt   = "attempt"
	FieldElapsed   = "elapsed"
	FieldHolderPID = "holder_pid"
	FieldDelay     = "delay"

	// Connection state fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Migration fields
	FieldSchemaVersion = "schema_version"
	FieldMigration     = "migration"
)
