package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

// CatalogResolver looks up Toggl display names. Nothing is cached: every
// call hits the API so a report always sees the current names.
type CatalogResolver struct {
	Log    *slog.Logger
	Source ports.CatalogSource
}

// Workspaces lists the workspaces the token can see.
func (r *CatalogResolver) Workspaces(ctx context.Context) ([]domain.Workspace, error) {
	return r.Source.ListWorkspaces(ctx)
}

// Projects maps active project ids to names.
func (r *CatalogResolver) Projects(ctx context.Context, workspaceID int64) (domain.Catalog, error) {
	projects, err := r.Source.ListProjects(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	c := make(domain.Catalog, len(projects))
	for _, p := range projects {
		c[p.ID] = p.Name
	}
	return c, nil
}

// Tags maps tag ids to names.
func (r *CatalogResolver) Tags(ctx context.Context, workspaceID int64) (domain.Catalog, error) {
	tags, err := r.Source.ListTags(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	c := make(domain.Catalog, len(tags))
	for _, t := range tags {
		c[t.ID] = t.Name
	}
	return c, nil
}

// ExportTaxonomy lays out the workspace's projects and tags for users filling
// in the mapping table: a project section, a blank row, then a tag section
// with its own header. Both sections are ordered by id.
func (r *CatalogResolver) ExportTaxonomy(ctx context.Context, workspaceID int64) (table.Table, error) {
	tags, err := r.Tags(ctx, workspaceID)
	if err != nil {
		return table.Table{}, err
	}
	projects, err := r.Projects(ctx, workspaceID)
	if err != nil {
		return table.Table{}, err
	}

	t := table.New(table.ColTogglProjectID, table.ColTogglProjectName)
	for _, id := range projects.IDs() {
		t.Append(strconv.FormatInt(id, 10), projects.Name(id))
	}
	t.Append("", "")
	t.Append(table.ColTogglTagID, table.ColTogglTagName)
	for _, id := range tags.IDs() {
		t.Append(strconv.FormatInt(id, 10), tags.Name(id))
	}
	r.Log.Info("toggl taxonomy exported", slog.Int("projects", len(projects)), slog.Int("tags", len(tags)))
	return t, nil
}
