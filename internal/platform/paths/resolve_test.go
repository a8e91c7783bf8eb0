// SPDX-License-Identifier: MIT

package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDatabasePath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		root string
		in   string
		want string
		err  bool
	}{
		{name: "relative anchors at root", root: root, in: "data/catalog.db", want: filepath.Join(root, "data", "catalog.db")},
		{name: "absolute passes through", root: root, in: filepath.Join(root, "x.db"), want: filepath.Join(root, "x.db")},
		{name: "absolute is cleaned", root: root, in: filepath.Join(root, "a", "..", "x.db"), want: filepath.Join(root, "x.db")},
		{name: "empty path rejected", root: root, in: "", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDatabasePath(tt.root, tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestResolveDatabasePathEmptyRootUsesExecutableDir(t *testing.T) {
	got, err := ResolveDatabasePath("", "catalog.db")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "catalog.db", filepath.Base(got))
	// Must not be anchored at the ambient working directory by accident:
	// DefaultRoot is the executable dir, which for `go test` is a temp build
	// dir, so we only assert absoluteness and basename here.
}
