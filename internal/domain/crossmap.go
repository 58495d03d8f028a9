package domain

// Destination identifies where a Toggl (project, tag) lands in freee.
// Values are kept as they appear in the mapping table.
type Destination struct {
	ProjectID    string
	ProjectName  string
	TagGroupID   string
	TagGroupName string
	TagID        string
	TagName      string
}

// IsZero reports whether no mapping was found.
func (d Destination) IsZero() bool {
	return d == Destination{}
}

// Columns returns the destination in table column order.
func (d Destination) Columns() []string {
	return []string{d.ProjectID, d.ProjectName, d.TagGroupID, d.TagGroupName, d.TagID, d.TagName}
}

// CrossMapEntry is one row of the user-maintained mapping table.
// A nil SourceTagID is the project's wildcard row.
type CrossMapEntry struct {
	SourceProjectID int64
	SourceTagID     *int64
	Destination     Destination
}
