// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kestrelfx/stax/internal/persistence/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testStore builds a Store on a throwaway database under t.TempDir().
func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := sqlite.Config{
		Root:           t.TempDir(),
		LockTimeout:    5 * time.Second,
		LockRetryDelay: time.Millisecond,
		LockBackoffCap: 10 * time.Millisecond,
		LockMaxRetries: 500,
		BusyTimeout:    5 * time.Second,
	}
	return New(sqlite.NewFactory(cfg), "catalog.db")
}

func TestStackLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	id, err := s.CreateStack(ctx, "FX", "/mnt/share/fx")
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = s.CreateStack(ctx, "FX", "/elsewhere")
	require.Error(t, err, "stack names are unique")

	got, err := s.StackByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "FX", got.Name)
	assert.Equal(t, "/mnt/share/fx", got.Path)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := s.Stacks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	ok, err := s.DeleteStack(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.StackByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = s.DeleteStack(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "second delete reports nothing removed")
}

func TestListHierarchy(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	stackID, err := s.CreateStack(ctx, "Plates", "/mnt/share/plates")
	require.NoError(t, err)

	topID, err := s.CreateList(ctx, stackID, "Explosions", nil)
	require.NoError(t, err)
	subID, err := s.CreateList(ctx, stackID, "Small", &topID)
	require.NoError(t, err)

	top, err := s.ListsByStack(ctx, stackID, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Explosions", top[0].Name)
	assert.Nil(t, top[0].ParentID)

	subs, err := s.SubLists(ctx, topID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].ParentID)
	assert.Equal(t, topID, *subs[0].ParentID)

	chain, err := s.ListHierarchy(ctx, subID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "Explosions", chain[0].Name)
	assert.Equal(t, "Small", chain[1].Name)

	display, err := s.DisplayPath(ctx, subID, " / ")
	require.NoError(t, err)
	assert.Equal(t, "Plates / Explosions / Small", display)

	repo, err := s.RepositoryPath(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/mnt/share/plates", "Explosions", "Small"), repo)
}

func TestDeleteListCascadesToSubLists(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	stackID, err := s.CreateStack(ctx, "Ref", "/mnt/share/ref")
	require.NoError(t, err)
	topID, err := s.CreateList(ctx, stackID, "Top", nil)
	require.NoError(t, err)
	subID, err := s.CreateList(ctx, stackID, "Sub", &topID)
	require.NoError(t, err)

	ok, err := s.DeleteList(ctx, topID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.ListByID(ctx, subID)
	require.NoError(t, err)
	assert.Nil(t, got, "deleting a parent removes its sub-lists")
}

func TestWithConnBatchesUnderOneLock(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	err := s.WithConn(ctx, func(conn *sqlite.Conn) error {
		for _, name := range []string{"a", "b", "c"} {
			if _, err := conn.DB().ExecContext(ctx,
				`INSERT INTO stacks (name, path) VALUES (?, ?)`, name, "/"+name); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	all, err := s.Stacks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
