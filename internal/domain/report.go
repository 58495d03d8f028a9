package domain

// FlatReportRow is one row of the monthly report table.
type FlatReportRow struct {
	TogglID     int64
	ProjectID   int64
	ProjectName string
	Date        string
	Minutes     int
	TagIDs      string // ";"-joined
	TagNames    string // ";"-joined
	Description string
	Destination Destination
}

// TaxonomyExportRow is one (project, tag group, tag) triple of the freee
// taxonomy. Nil tag columns mark a project without tag groups.
type TaxonomyExportRow struct {
	ProjectID    int64
	ProjectName  string
	TagGroupID   *int64
	TagGroupName string
	TagID        *int64
	TagName      string
}
