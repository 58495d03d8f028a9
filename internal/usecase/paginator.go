package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
)

// PageDelay is the pause between consecutive report page requests. The
// Reports API throttles aggressively and fails requests sent back to back.
const PageDelay = 1500 * time.Millisecond

const reportPageSize = 50

// Period is an inclusive range of calendar days.
type Period struct {
	Since time.Time
	Until time.Time
}

// MonthPeriod returns the first through last day of the month.
func MonthPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("invalid month %d", month)
	}
	since := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 1, -1)
	return Period{Since: since, Until: until}, nil
}

// ReportPaginator walks the report search cursor until Toggl stops returning one.
type ReportPaginator struct {
	Log    *slog.Logger
	Source ports.ReportSource

	// sleep waits between pages; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewReportPaginator(log *slog.Logger, source ports.ReportSource) *ReportPaginator {
	return &ReportPaginator{Log: log, Source: source, sleep: sleepContext}
}

// FetchAll returns every grouped entry in the period, pages concatenated in
// request order. Any failed page aborts the whole fetch.
func (p *ReportPaginator) FetchAll(ctx context.Context, workspaceID int64, period Period) ([]domain.ReportEntry, error) {
	var out []domain.ReportEntry
	row := 1
	for pages := 0; row > 0; pages++ {
		if pages > 0 {
			if err := p.sleep(ctx, PageDelay); err != nil {
				return nil, err
			}
		}
		page, err := p.Source.SearchTimeEntries(ctx, workspaceID, ports.ReportRequest{
			StartDate:      period.Since.Format(time.DateOnly),
			EndDate:        period.Until.Format(time.DateOnly),
			Grouped:        true,
			PageSize:       reportPageSize,
			FirstRowNumber: row,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch report from row %d: %w", row, err)
		}
		out = append(out, page.Entries...)

		next := page.NextRowNumber
		if next > 0 && next <= row {
			return nil, fmt.Errorf("toggl report cursor did not advance: %d after %d", next, row)
		}
		p.Log.Debug("report page fetched", slog.Int("first_row", row), slog.Int("entries", len(page.Entries)), slog.Int("next_row", next))
		row = next
	}
	p.Log.Info("report fetched", slog.Int64("workspace_id", workspaceID), slog.Int("entries", len(out)))
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
