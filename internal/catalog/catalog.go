// SPDX-License-Identifier: MIT

// Package catalog implements the domain operations of the shared asset
// catalog: stacks, lists, elements, favorites, playlists, ingestion history,
// users and settings.
//
// Every operation obtains its database session from the sqlite Factory,
// which resolves the path, takes the advisory sidecar lock, tunes the
// engine and migrates the schema before handing the connection over. That
// construction is what enforces the core invariant: no write can reach the
// shared file without holding the lock, because there is no other way to a
// connection.
package catalog

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	appcfg "github.com/kestrelfx/stax/internal/config"
	xlog "github.com/kestrelfx/stax/internal/log"
	"github.com/kestrelfx/stax/internal/persistence/sqlite"
)

// Store exposes the catalog operations for one database path.
type Store struct {
	factory *sqlite.Factory
	path    string
	log     zerolog.Logger
}

// New builds a Store on an existing factory.
func New(factory *sqlite.Factory, dbPath string) *Store {
	return &Store{
		factory: factory,
		path:    dbPath,
		log:     xlog.WithComponent("catalog"),
	}
}

// Open wires a Store directly from application configuration.
func Open(cfg appcfg.Config) *Store {
	return New(sqlite.NewFactory(sqlite.FromAppConfig(cfg)), cfg.DatabasePath)
}

// Path returns the configured (possibly still relative) database path.
func (s *Store) Path() string { return s.path }

// withConn runs fn inside a fresh locked session: acquire lock, open,
// migrate, run, close, release — on every exit path. Each catalog operation
// holds the lock only for its own duration, which is what keeps many
// workstations responsive against one shared file.
func (s *Store) withConn(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	conn, err := s.factory.Connect(ctx, s.path)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(ctx, conn.DB())
}

// WithConn exposes a whole session to the caller for batching several
// operations under one held lock. The connection is closed and the lock
// released when fn returns, error or not.
func (s *Store) WithConn(ctx context.Context, fn func(*sqlite.Conn) error) error {
	conn, err := s.factory.Connect(ctx, s.path)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}
