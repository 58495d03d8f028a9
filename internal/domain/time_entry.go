package domain

import (
	"math"
	"time"
)

// TimeEntry is one nested entry of a grouped Toggl report row.
type TimeEntry struct {
	ID      int64
	Seconds int64
	Start   time.Time
	Stop    *time.Time // nil while the timer is running
	At      time.Time  // Last update timestamp from Toggl
}

// ReportEntry is a grouped row of the Toggl detailed report: the time entries
// sharing one project, tag set and description.
type ReportEntry struct {
	ProjectID   int64 // 0 when the entry has no project
	Description string
	TagIDs      []int64
	TimeEntries []TimeEntry
}

// ReportPage is one page of the report search endpoint.
// NextRowNumber <= 0 means there is no further page.
type ReportPage struct {
	Entries       []ReportEntry
	NextRowNumber int
}

// TimeEntryRecord is a grouped entry reduced to what the report keeps.
type TimeEntryRecord struct {
	ID          int64
	ProjectID   int64
	Date        string // YYYY-MM-DD in the offset Toggl reported
	Minutes     int
	TagIDs      []int64
	Description string
}

// Record reduces the grouped entry. The first nested entry supplies the id and
// the date; minutes are rounded per nested entry and then summed.
// ok is false when the entry carries no nested time entries.
func (e ReportEntry) Record() (rec TimeEntryRecord, ok bool) {
	if len(e.TimeEntries) == 0 {
		return TimeEntryRecord{}, false
	}
	first := e.TimeEntries[0]
	minutes := 0
	for _, te := range e.TimeEntries {
		minutes += int(math.Round(float64(te.Seconds) / 60))
	}
	return TimeEntryRecord{
		ID:          first.ID,
		ProjectID:   e.ProjectID,
		Date:        first.Start.Format(time.DateOnly),
		Minutes:     minutes,
		TagIDs:      e.TagIDs,
		Description: e.Description,
	}, true
}
