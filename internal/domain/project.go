package domain

import (
	"sort"
	"time"
)

// Workspace is a Toggl tenant.
type Workspace struct {
	ID   int64
	Name string
}

// Project represents a Toggl project in the domain layer.
type Project struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Active      bool
	Color       string
	ClientID    *int64
	At          time.Time // Last update timestamp from Toggl
}

// Tag represents a Toggl tag.
type Tag struct {
	ID          int64
	WorkspaceID int64
	Name        string
}

// Catalog maps Toggl ids to display names within one workspace.
type Catalog map[int64]string

// Name returns the display name for id, or "" when unknown.
func (c Catalog) Name(id int64) string {
	return c[id]
}

// IDs returns the catalog ids in ascending order.
func (c Catalog) IDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
