package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

// ReportAssembler joins the month's report with Toggl names and freee
// destinations into the flat report table.
type ReportAssembler struct {
	Log           *slog.Logger
	Paginator     *ReportPaginator
	Catalogs      *CatalogResolver
	Tables        ports.TableStore
	CrossMapTable string
}

// Assemble builds the report for one month. The header is always the first
// row; data rows keep the order Toggl returned them in.
func (a *ReportAssembler) Assemble(ctx context.Context, workspaceID int64, year int, month time.Month) (table.Table, error) {
	period, err := MonthPeriod(year, month)
	if err != nil {
		return table.Table{}, err
	}
	a.Log.Info("assembling report",
		slog.Int64("workspace_id", workspaceID),
		slog.String("since", period.Since.Format(time.DateOnly)),
		slog.String("until", period.Until.Format(time.DateOnly)),
	)

	entries, err := a.Paginator.FetchAll(ctx, workspaceID, period)
	if err != nil {
		return table.Table{}, err
	}
	projects, err := a.Catalogs.Projects(ctx, workspaceID)
	if err != nil {
		return table.Table{}, fmt.Errorf("fetch projects: %w", err)
	}
	tags, err := a.Catalogs.Tags(ctx, workspaceID)
	if err != nil {
		return table.Table{}, fmt.Errorf("fetch tags: %w", err)
	}
	idx, err := LoadCrossMapIndex(ctx, a.Tables, a.CrossMapTable, a.Log)
	if err != nil {
		return table.Table{}, err
	}

	rows := BuildReportRows(entries, projects, tags, idx, a.Log)
	return table.EncodeReport(rows), nil
}

// BuildReportRows turns grouped entries into report rows. Entries without
// nested time entries carry no id or date and are skipped.
func BuildReportRows(entries []domain.ReportEntry, projects, tags domain.Catalog, idx *CrossMapIndex, log *slog.Logger) []domain.FlatReportRow {
	rows := make([]domain.FlatReportRow, 0, len(entries))
	for _, e := range entries {
		rec, ok := e.Record()
		if !ok {
			log.Warn("skipping grouped entry without time entries",
				slog.Int64("project_id", e.ProjectID), slog.String("description", e.Description))
			continue
		}
		names := make([]string, len(rec.TagIDs))
		for i, id := range rec.TagIDs {
			names[i] = tags.Name(id)
		}
		rows = append(rows, domain.FlatReportRow{
			TogglID:     rec.ID,
			ProjectID:   rec.ProjectID,
			ProjectName: projects.Name(rec.ProjectID),
			Date:        rec.Date,
			Minutes:     rec.Minutes,
			TagIDs:      table.JoinIDs(rec.TagIDs),
			TagNames:    strings.Join(names, ";"),
			Description: rec.Description,
			Destination: idx.Resolve(rec.ProjectID, rec.TagIDs),
		})
	}
	return rows
}
