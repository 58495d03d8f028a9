package ports

import (
	"context"
	"errors"
	"net/http"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/table"
)

// ErrTableNotFound is returned by a TableStore that has no table under a name.
var ErrTableNotFound = errors.New("table not found")

// Session authorises requests to an external service. Token acquisition and
// refresh happen behind it.
type Session interface {
	HasValidSession(ctx context.Context) bool
	Do(req *http.Request) (*http.Response, error)
}

// ReportRequest is the body of one report search call.
type ReportRequest struct {
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Grouped        bool   `json:"grouped"`
	PageSize       int    `json:"page_size"`
	FirstRowNumber int    `json:"first_row_number"`
}

// ReportSource fetches single pages of the Toggl detailed report.
type ReportSource interface {
	SearchTimeEntries(ctx context.Context, workspaceID int64, req ReportRequest) (domain.ReportPage, error)
}

// CatalogSource lists Toggl workspaces, projects and tags.
type CatalogSource interface {
	ListWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error)
	ListTags(ctx context.Context, workspaceID int64) ([]domain.Tag, error)
}

// TogglClient is everything the pipeline reads from Toggl.
type TogglClient interface {
	ReportSource
	CatalogSource
}

// ProjectSource lists freee projects with their workload tag tree.
type ProjectSource interface {
	ListProjects(ctx context.Context, companyID int64, limit int) ([]domain.FreeeProject, error)
}

// WorkloadSink creates workloads in freee.
type WorkloadSink interface {
	CreateWorkload(ctx context.Context, entry domain.WorkEntry) (domain.Workload, error)
}

// FreeeClient is everything the pipeline reads from and writes to freee.
type FreeeClient interface {
	ProjectSource
	WorkloadSink
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	CurrentUser(ctx context.Context) (domain.User, error)
	HasValidSession(ctx context.Context) bool
}

// TableStore persists named tables. WriteTable replaces any existing content.
// In this project the original medium is a spreadsheet, but the interface is
// generic to support workbook files and SQL databases alike.
type TableStore interface {
	ReadTable(ctx context.Context, name string) (table.Table, error)
	WriteTable(ctx context.Context, name string, t table.Table) error
}
