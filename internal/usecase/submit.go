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

// Date layouts accepted in the date column, tried in order.
var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"2006/1/2",
	time.DateTime,
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// WorkEntrySubmitter registers report rows as freee workloads, one at a time.
type WorkEntrySubmitter struct {
	Log      *slog.Logger
	Sink     ports.WorkloadSink
	Location *time.Location // zone workload dates are expressed in
}

// SubmissionRecords validates the table's columns and returns its data rows.
func SubmissionRecords(t table.Table) ([]table.Record, error) {
	if err := t.Require(table.SubmissionColumns...); err != nil {
		return nil, err
	}
	return t.Records(), nil
}

// Submit posts every record in order and stops at the first failure. The
// returned *domain.SubmissionError carries the failing row's payload; no
// partial count is returned alongside it.
func (s *WorkEntrySubmitter) Submit(ctx context.Context, companyID int64, records []table.Record) (int, error) {
	count := 0
	for _, rec := range records {
		entry, err := s.BuildEntry(companyID, rec)
		if err != nil {
			return 0, s.fail(rec.Row, entry, count, err)
		}
		if _, err := s.Sink.CreateWorkload(ctx, entry); err != nil {
			return 0, s.fail(rec.Row, entry, count, err)
		}
		count++
	}
	s.Log.Info("workloads submitted", slog.Int64("company_id", companyID), slog.Int("count", count))
	return count, nil
}

func (s *WorkEntrySubmitter) fail(row int, entry domain.WorkEntry, submitted int, err error) error {
	s.Log.Error("workload submission failed",
		slog.Int("row", row),
		slog.Int("submitted", submitted),
		slog.Int64("project_id", entry.ProjectID),
		slog.String("date", entry.Date),
		slog.Int("minutes", entry.Minutes),
		slog.String("memo", entry.Memo),
		slog.String("error", err.Error()),
	)
	return &domain.SubmissionError{Row: row, Entry: entry, Submitted: submitted, Err: err}
}

// BuildEntry constructs the payload for one row. A workload tag is attached
// only when freeeTagGroupId is filled; at most one tag is sent per row.
// On error the entry holds whatever fields were parsed.
func (s *WorkEntrySubmitter) BuildEntry(companyID int64, rec table.Record) (domain.WorkEntry, error) {
	entry := domain.WorkEntry{
		CompanyID: companyID,
		Memo:      rec.Raw(table.ColDescription),
	}
	projectID, err := rec.Int(table.ColFreeeProjectID)
	if err != nil {
		return entry, err
	}
	entry.ProjectID = projectID

	date, err := s.formatDate(rec.Get(table.ColDate))
	if err != nil {
		return entry, fmt.Errorf("row %d: %s: %w", rec.Row, table.ColDate, err)
	}
	entry.Date = date

	minutes, err := rec.Int(table.ColMinutes)
	if err != nil {
		return entry, err
	}
	if minutes < 0 {
		return entry, fmt.Errorf("row %d: %s: %w: negative", rec.Row, table.ColMinutes, table.ErrInvalidValue)
	}
	entry.Minutes = int(minutes)

	if rec.Get(table.ColFreeeTagGroupID) != "" {
		groupID, err := rec.Int(table.ColFreeeTagGroupID)
		if err != nil {
			return entry, err
		}
		tagID, err := rec.Int(table.ColFreeeTagID)
		if err != nil {
			return entry, err
		}
		entry.Tags = []domain.WorkEntryTag{{TagGroupID: groupID, TagID: tagID}}
	}
	return entry, nil
}

func (s *WorkEntrySubmitter) formatDate(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("%w: empty", table.ErrInvalidValue)
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, v)
		} else {
			t, err = time.ParseInLocation(layout, v, loc)
		}
		if err == nil {
			return t.In(loc).Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("%w: %q", table.ErrInvalidValue, strings.TrimSpace(v))
}
