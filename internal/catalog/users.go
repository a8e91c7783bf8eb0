// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrelfx/stax/internal/persistence/sqlite"
)

// ErrAuthFailed is returned for any authentication failure. The cause is not
// distinguished so callers cannot probe which usernames exist.
var ErrAuthFailed = errors.New("invalid username or password")

// ErrLastAdmin guards against removing or demoting the only active admin.
var ErrLastAdmin = errors.New("cannot remove the last active admin")

const userColumns = `user_id, username, password_hash, role, email, is_active, created_at, last_login`

// CreateUser adds an account with the given role and returns its id.
func (s *Store) CreateUser(ctx context.Context, username, password string, role Role, email string) (int64, error) {
	if username == "" {
		return 0, errors.New("username is required")
	}
	if password == "" {
		return 0, errors.New("password is required")
	}
	if role != RoleAdmin && role != RoleUser {
		return 0, fmt.Errorf("invalid role %q", role)
	}
	var id int64
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role, email) VALUES (?, ?, ?, ?)`,
			username, sqlite.HashPassword(password), string(role), email)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Authenticate checks credentials and returns the account on success,
// updating its last_login stamp. Inactive accounts cannot log in.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var user *User
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
		u, err := scanUser(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAuthFailed
		}
		if err != nil {
			return err
		}
		if !u.IsActive || u.PasswordHash != sqlite.HashPassword(password) {
			return ErrAuthFailed
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE user_id = ?`, u.ID); err != nil {
			return err
		}
		user = &u
		return nil
	})
	return user, err
}

// UserByID returns the account, or nil when absent.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.userWhere(ctx, `user_id = ?`, id)
}

// UserByUsername returns the account, or nil when absent.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.userWhere(ctx, `username = ?`, username)
}

func (s *Store) userWhere(ctx context.Context, where string, arg any) (*User, error) {
	var user *User
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE `+where, arg)
		u, err := scanUser(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		user = &u
		return nil
	})
	return user, err
}

// Users lists every account, admins first then by username.
func (s *Store) Users(ctx context.Context) ([]User, error) {
	var out []User
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY role, username`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateUser changes role, email or active flag; nil fields are left alone.
// Demoting or deactivating the last active admin is refused.
func (s *Store) UpdateUser(ctx context.Context, id int64, role *Role, email *string, isActive *bool) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		removesAdmin := (role != nil && *role != RoleAdmin) || (isActive != nil && !*isActive)
		if removesAdmin {
			if err := checkNotLastAdmin(ctx, db, id); err != nil {
				return err
			}
		}
		if role != nil {
			if *role != RoleAdmin && *role != RoleUser {
				return fmt.Errorf("invalid role %q", *role)
			}
			if _, err := db.ExecContext(ctx, `UPDATE users SET role = ? WHERE user_id = ?`, string(*role), id); err != nil {
				return err
			}
		}
		if email != nil {
			if _, err := db.ExecContext(ctx, `UPDATE users SET email = ? WHERE user_id = ?`, *email, id); err != nil {
				return err
			}
		}
		if isActive != nil {
			if _, err := db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE user_id = ?`, *isActive, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangePassword replaces the stored hash.
func (s *Store) ChangePassword(ctx context.Context, id int64, newPassword string) error {
	if newPassword == "" {
		return errors.New("password is required")
	}
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE users SET password_hash = ? WHERE user_id = ?`,
			sqlite.HashPassword(newPassword), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("user %d not found", id)
		}
		return nil
	})
}

// DeleteUser removes an account and its sessions. The last active admin
// cannot be deleted.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := checkNotLastAdmin(ctx, db, id); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
		return err
	})
}

// checkNotLastAdmin fails when id is the only remaining active admin.
func checkNotLastAdmin(ctx context.Context, db *sql.DB, id int64) error {
	var isTargetAdmin bool
	err := db.QueryRowContext(ctx,
		`SELECT role = 'admin' AND is_active FROM users WHERE user_id = ?`, id).Scan(&isTargetAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if !isTargetAdmin {
		return nil
	}
	var others int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active AND user_id != ?`, id).Scan(&others)
	if err != nil {
		return err
	}
	if others == 0 {
		return ErrLastAdmin
	}
	return nil
}

// CreateSession opens a session for the user on the given machine and
// returns its opaque token.
func (s *Store) CreateSession(ctx context.Context, userID int64, machine string) (string, error) {
	token := uuid.NewString()
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO user_sessions (user_fk, token, machine_name) VALUES (?, ?, ?)`,
			userID, token, machine)
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// SessionByToken resolves an active session and bumps its last_activity.
// Returns nil when the token is unknown or the session has ended.
func (s *Store) SessionByToken(ctx context.Context, token string) (*Session, error) {
	var sess *Session
	err := s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			`SELECT session_id, user_fk, token, machine_name, login_time, last_activity, is_active
			 FROM user_sessions WHERE token = ? AND is_active`, token)
		var got Session
		var tok sql.NullString
		var login, activity string
		err := row.Scan(&got.ID, &got.UserID, &tok, &got.Machine, &login, &activity, &got.IsActive)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		got.Token = tok.String
		got.LoginTime = parseTime(login)
		got.LastActivity = parseTime(activity)
		if _, err := db.ExecContext(ctx,
			`UPDATE user_sessions SET last_activity = CURRENT_TIMESTAMP WHERE session_id = ?`, got.ID); err != nil {
			return err
		}
		sess = &got
		return nil
	})
	return sess, err
}

// EndSession marks the session inactive. Ending an unknown or already
// ended session is not an error.
func (s *Store) EndSession(ctx context.Context, token string) error {
	return s.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE user_sessions SET is_active = 0, last_activity = CURRENT_TIMESTAMP WHERE token = ?`, token)
		return err
	})
}

func scanUser(r rowScanner) (User, error) {
	var u User
	var email sql.NullString
	var created string
	var lastLogin sql.NullString
	err := r.Scan(&u.ID, &u.Username, &u.PasswordHash, (*string)(&u.Role), &email, &u.IsActive, &created, &lastLogin)
	if err != nil {
		return User{}, err
	}
	u.Email = email.String
	u.CreatedAt = parseTime(created)
	if lastLogin.Valid {
		t := parseTime(lastLogin.String)
		u.LastLogin = &t
	}
	return u, nil
}
