package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

// ProjectPageLimit is the single page of projects requested from freee.
// Companies with more projects get a truncated export; see DESIGN.md.
const ProjectPageLimit = 100

// TaxonomyExporter flattens freee's project / tag group / tag tree into the
// table users copy destination ids from.
type TaxonomyExporter struct {
	Log    *slog.Logger
	Source ports.ProjectSource
}

func (e *TaxonomyExporter) Export(ctx context.Context, companyID int64) (table.Table, error) {
	projects, err := e.Source.ListProjects(ctx, companyID, ProjectPageLimit)
	if err != nil {
		return table.Table{}, err
	}
	if len(projects) >= ProjectPageLimit {
		e.Log.Warn("freee project list filled one page; projects beyond it are not exported",
			slog.Int64("company_id", companyID), slog.Int("limit", ProjectPageLimit))
	}
	rows := FlattenTaxonomy(projects)
	e.Log.Info("freee taxonomy exported", slog.Int("projects", len(projects)), slog.Int("rows", len(rows)))
	return table.EncodeTaxonomy(rows), nil
}

// FlattenTaxonomy emits one row per (tag group, tag) and a single row with
// empty tag columns for a project without tag groups, sorted by project name
// then tag id. Rows without a tag id sort first within a project.
func FlattenTaxonomy(projects []domain.FreeeProject) []domain.TaxonomyExportRow {
	var rows []domain.TaxonomyExportRow
	for _, p := range projects {
		if len(p.TagGroups) == 0 {
			rows = append(rows, domain.TaxonomyExportRow{ProjectID: p.ID, ProjectName: p.Name})
			continue
		}
		for _, g := range p.TagGroups {
			for _, t := range g.Tags {
				groupID, tagID := g.ID, t.ID
				rows = append(rows, domain.TaxonomyExportRow{
					ProjectID:    p.ID,
					ProjectName:  p.Name,
					TagGroupID:   &groupID,
					TagGroupName: g.Name,
					TagID:        &tagID,
					TagName:      t.Name,
				})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ProjectName != b.ProjectName {
			return a.ProjectName < b.ProjectName
		}
		return tagKey(a.TagID) < tagKey(b.TagID)
	})
	return rows
}

func tagKey(id *int64) int64 {
	if id == nil {
		return math.MinInt64
	}
	return *id
}
