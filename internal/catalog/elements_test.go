// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedList creates a stack with one list and returns the list id.
func seedList(t *testing.T, s *Store) int64 {
	t.Helper()
	ctx := context.Background()
	stackID, err := s.CreateStack(ctx, "Stock", "/mnt/share/stock")
	require.NoError(t, err)
	listID, err := s.CreateList(ctx, stackID, "Fire", nil)
	require.NoError(t, err)
	return listID
}

func TestElementCRUD(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	listID := seedList(t, s)

	id, err := s.CreateElement(ctx, NewElement{
		ListID:       listID,
		Name:         "fire_wall_01",
		Type:         Element2D,
		FilepathSoft: "/mnt/incoming/fire_wall_01.exr",
		FrameRange:   "1001-1120",
		Format:       "exr",
		Tags:         []string{"fire", "wall"},
		FileSize:     1 << 20,
	})
	require.NoError(t, err)

	got, err := s.ElementByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fire_wall_01", got.Name)
	assert.Equal(t, Element2D, got.Type)
	assert.Equal(t, []string{"fire", "wall"}, got.Tags)
	assert.Equal(t, int64(1<<20), got.FileSize)
	assert.False(t, got.IsDeprecated)

	updated, err := s.UpdateElement(ctx, id, map[string]any{
		"comment":       "licensed stock",
		"is_deprecated": true,
	})
	require.NoError(t, err)
	assert.True(t, updated)

	got, err = s.ElementByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "licensed stock", got.Comment)
	assert.True(t, got.IsDeprecated)

	ok, err := s.DeleteElement(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.ElementByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateElementRejectsUnknownType(t *testing.T) {
	s := testStore(t)
	listID := seedList(t, s)

	_, err := s.CreateElement(context.Background(), NewElement{
		ListID: listID, Name: "x", Type: "4D",
	})
	require.Error(t, err)
}

func TestUpdateElementRejectsUnknownColumn(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	listID := seedList(t, s)
	id, err := s.CreateElement(ctx, NewElement{ListID: listID, Name: "x", Type: Element3D})
	require.NoError(t, err)

	_, err = s.UpdateElement(ctx, id, map[string]any{"element_id": 999})
	require.Error(t, err, "primary key is not updatable")
	_, err = s.UpdateElement(ctx, id, map[string]any{"nonsense": 1})
	require.Error(t, err)
}

func TestElementsByListPaginationAndDeprecated(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	listID := seedList(t, s)

	for i := 0; i < 5; i++ {
		id, err := s.CreateElement(ctx, NewElement{
			ListID: listID,
			Name:   fmt.Sprintf("elem_%02d", i),
			Type:   Element2D,
		})
		require.NoError(t, err)
		if i == 4 {
			_, err = s.UpdateElement(ctx, id, map[string]any{"is_deprecated": true})
			require.NoError(t, err)
		}
	}

	active, err := s.ElementsByList(ctx, listID, PageOptions{})
	require.NoError(t, err)
	assert.Len(t, active, 4, "deprecated elements are hidden by default")

	all, err := s.ElementsByList(ctx, listID, PageOptions{IncludeDeprecated: true})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := s.ElementsByList(ctx, listID, PageOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "elem_02", page[0].Name)
	assert.Equal(t, "elem_03", page[1].Name)

	n, err := s.CountElements(ctx, listID, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = s.CountElements(ctx, listID, true)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSearchElements(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	listID := seedList(t, s)

	_, err := s.CreateElement(ctx, NewElement{
		ListID: listID, Name: "smoke_plume", Type: Element2D, Format: "exr",
	})
	require.NoError(t, err)
	_, err = s.CreateElement(ctx, NewElement{
		ListID: listID, Name: "dust_hit", Type: Element2D, Format: "mov",
		Comment: "plume of dust",
	})
	require.NoError(t, err)

	byName, err := s.SearchElements(ctx, "plume", "name", true)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "smoke_plume", byName[0].Name)

	exact, err := s.SearchElements(ctx, "plume", "name", false)
	require.NoError(t, err)
	assert.Empty(t, exact)

	byFormat, err := s.SearchElements(ctx, "mov", "format", false)
	require.NoError(t, err)
	require.Len(t, byFormat, 1)
	assert.Equal(t, "dust_hit", byFormat[0].Name)

	_, err = s.SearchElements(ctx, "x", "password_hash", false)
	require.Error(t, err, "only whitelisted properties are searchable")
}

func TestTagSearch(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	listID := seedList(t, s)

	a, err := s.CreateElement(ctx, NewElement{
		ListID: listID, Name: "a", Type: Element2D, Tags: []string{"fire", "night"},
	})
	require.NoError(t, err)
	b, err := s.CreateElement(ctx, NewElement{
		ListID: listID, Name: "b", Type: Element2D, Tags: []string{"fire", "day"},
	})
	require.NoError(t, err)

	tags, err := s.AllTags(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fire", "night", "day"}, tags)

	either, err := s.SearchByTags(ctx, []string{"night", "day"}, false)
	require.NoError(t, err)
	assert.Len(t, either, 2)

	all, err := s.SearchByTags(ctx, []string{"fire", "night"}, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a, all[0].ID)

	// "nig" must not match "night": matching is whole-tag, not substring.
	none, err := s.SearchByTags(ctx, []string{"nig"}, false)
	require.NoError(t, err)
	assert.Empty(t, none)

	added, err := s.AddTag(ctx, b, "night")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddTag(ctx, b, "night")
	require.NoError(t, err)
	assert.True(t, added, "re-adding an existing tag still succeeds")
	got0, err := s.ElementByID(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"day", "fire", "night"}, got0.Tags, "no duplicate tag stored")

	removed, err := s.RemoveTag(ctx, b, "day")
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := s.ElementByID(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"fire", "night"}, got.Tags)

	ok, err := s.ReplaceTags(ctx, b, []string{"Water"})
	require.NoError(t, err)
	assert.True(t, ok)
	byTag, err := s.ElementsByTag(ctx, "Water")
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, b, byTag[0].ID)
}
