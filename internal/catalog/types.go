// SPDX-License-Identifier: MIT

package catalog

import (
	"sort"
	"strings"
	"time"
)

// ElementType classifies catalog assets.
type ElementType string

const (
	Element2D      ElementType = "2D"
	Element3D      ElementType = "3D"
	ElementToolset ElementType = "Toolset"
)

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case Element2D, Element3D, ElementToolset:
		return true
	}
	return false
}

// Role is a user permission level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Stack is a primary category rooted at a repository path on disk.
type Stack struct {
	ID        int64
	Name      string
	Path      string
	CreatedAt time.Time
}

// List is a sub-category inside a stack. ParentID is nil for top-level
// lists; non-nil makes it a nested sub-list.
type List struct {
	ID        int64
	StackID   int64
	ParentID  *int64
	Name      string
	CreatedAt time.Time
}

// Element is a catalogued asset. FilepathSoft references the original
// location; FilepathHard points at the catalog-owned copy when IsHardCopy
// is set. The preview paths are derived artifacts produced by external
// collaborators and stored here as plain locations.
type Element struct {
	ID                  int64
	ListID              int64
	Name                string
	Type                ElementType
	FilepathSoft        string
	FilepathHard        string
	IsHardCopy          bool
	FrameRange          string
	Format              string
	Comment             string
	Tags                []string
	PreviewPath         string
	GIFPreviewPath      string
	VideoPreviewPath    string
	GeometryPreviewPath string
	IsDeprecated        bool
	FileSize            int64
	CreatedAt           time.Time
}

// Favorite marks an element for one user on one machine.
type Favorite struct {
	ID        int64
	ElementID int64
	Machine   string
	User      string
	CreatedAt time.Time
}

// Playlist is a shared, ordered collection of elements.
type Playlist struct {
	ID          int64
	Name        string
	Description string
	CreatedBy   string
	CreatedOn   string // machine name
	CreatedAt   time.Time
	ItemCount   int
}

// HistoryEntry records one ingestion action.
type HistoryEntry struct {
	ID         int64
	ElementID  *int64
	Action     string
	SourcePath string
	TargetList string
	Status     string
	Message    string
	IngestedAt time.Time
}

// User is a catalog account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	Email        string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Session tracks a logged-in user on a machine.
type Session struct {
	ID           int64
	UserID       int64
	Token        string
	Machine      string
	LoginTime    time.Time
	LastActivity time.Time
	IsActive     bool
}

// sqliteTimeLayout is what CURRENT_TIMESTAMP produces.
const sqliteTimeLayout = "2006-01-02 15:04:05"

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// normalizeTags trims, drops empties, dedupes and sorts case-insensitively.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// joinTags renders the stored comma-separated form.
func joinTags(tags []string) string {
	return strings.Join(normalizeTags(tags), ", ")
}

// splitTags parses the stored comma-separated form.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return normalizeTags(strings.Split(s, ","))
}
