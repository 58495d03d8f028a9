package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/table"
)

func submissionTable(rows ...[]string) table.Table {
	t := table.New(table.ReportHeader...)
	for _, r := range rows {
		t.Append(r...)
	}
	return t
}

// reportRow fills the columns Submit reads and leaves the rest empty.
func reportRow(project, date, minutes, memo, group, tag string) []string {
	return []string{"", "", "", date, minutes, "", "", memo, project, "", group, "", tag, ""}
}

func newSubmitter(sink *fakeSink) *WorkEntrySubmitter {
	jst := time.FixedZone("JST", 9*60*60)
	return &WorkEntrySubmitter{Log: discardLog(), Sink: sink, Location: jst}
}

func TestSubmitPostsEveryRowInOrder(t *testing.T) {
	sink := &fakeSink{}
	recs, err := SubmissionRecords(submissionTable(
		reportRow("500", "2024-05-01", "30", "a", "5", "51"),
		reportRow("501", "2024/5/2", "45", "b", "", ""),
	))
	require.NoError(t, err)

	n, err := newSubmitter(sink).Submit(context.Background(), 42, recs)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []domain.WorkEntry{
		{CompanyID: 42, ProjectID: 500, Date: "2024-05-01", Minutes: 30, Memo: "a",
			Tags: []domain.WorkEntryTag{{TagGroupID: 5, TagID: 51}}},
		{CompanyID: 42, ProjectID: 501, Date: "2024-05-02", Minutes: 45, Memo: "b"},
	}, sink.calls)
}

func TestSubmitStopsAtFirstFailure(t *testing.T) {
	sink := &fakeSink{failMemo: "B"}
	recs, err := SubmissionRecords(submissionTable(
		reportRow("500", "2024-05-01", "30", "A", "", ""),
		reportRow("500", "2024-05-02", "15", "B", "", ""),
		reportRow("500", "2024-05-03", "60", "C", "", ""),
	))
	require.NoError(t, err)

	n, err := newSubmitter(sink).Submit(context.Background(), 42, recs)
	require.Zero(t, n)
	require.Len(t, sink.calls, 2)
	require.ErrorIs(t, err, errRejected)

	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 2, se.Row)
	require.Equal(t, 1, se.Submitted)
	require.Equal(t, "B", se.Entry.Memo)
	require.Equal(t, "2024-05-02", se.Entry.Date)
	require.Equal(t, 15, se.Entry.Minutes)
}

func TestSubmitRejectsUnparseableRowBeforePosting(t *testing.T) {
	sink := &fakeSink{}
	recs, err := SubmissionRecords(submissionTable(
		reportRow("", "2024-05-01", "30", "unmapped", "", ""),
	))
	require.NoError(t, err)

	_, err = newSubmitter(sink).Submit(context.Background(), 42, recs)
	require.ErrorIs(t, err, table.ErrInvalidValue)
	require.Empty(t, sink.calls)
	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 1, se.Row)
}

func TestSubmissionRecordsRequiresColumns(t *testing.T) {
	_, err := SubmissionRecords(table.New(table.ColDate, table.ColMinutes))
	require.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestBuildEntry(t *testing.T) {
	s := newSubmitter(&fakeSink{})
	fields := func(kv ...string) table.Record {
		m := map[string]string{}
		for i := 0; i < len(kv); i += 2 {
			m[kv[i]] = kv[i+1]
		}
		return table.NewRecord(1, m)
	}

	cases := []struct {
		name    string
		rec     table.Record
		want    domain.WorkEntry
		wantErr bool
	}{
		{
			name: "numeric cells as floats",
			rec:  fields(table.ColFreeeProjectID, "500.0", table.ColDate, "2024-05-01", table.ColMinutes, "90.0"),
			want: domain.WorkEntry{CompanyID: 1, ProjectID: 500, Date: "2024-05-01", Minutes: 90},
		},
		{
			name: "timestamp converted to local date",
			rec:  fields(table.ColFreeeProjectID, "500", table.ColDate, "2024-04-30T16:00:00Z", table.ColMinutes, "5"),
			want: domain.WorkEntry{CompanyID: 1, ProjectID: 500, Date: "2024-05-01", Minutes: 5},
		},
		{
			name: "memo kept as written",
			rec:  fields(table.ColFreeeProjectID, "500", table.ColDate, "2024-05-01", table.ColMinutes, "5", table.ColDescription, "  pairing  "),
			want: domain.WorkEntry{CompanyID: 1, ProjectID: 500, Date: "2024-05-01", Minutes: 5, Memo: "  pairing  "},
		},
		{
			name: "tag id ignored without group",
			rec:  fields(table.ColFreeeProjectID, "500", table.ColDate, "2024-05-01", table.ColMinutes, "5", table.ColFreeeTagID, "51"),
			want: domain.WorkEntry{CompanyID: 1, ProjectID: 500, Date: "2024-05-01", Minutes: 5},
		},
		{
			name:    "group without tag",
			rec:     fields(table.ColFreeeProjectID, "500", table.ColDate, "2024-05-01", table.ColMinutes, "5", table.ColFreeeTagGroupID, "5"),
			wantErr: true,
		},
		{
			name:    "negative minutes",
			rec:     fields(table.ColFreeeProjectID, "500", table.ColDate, "2024-05-01", table.ColMinutes, "-5"),
			wantErr: true,
		},
		{
			name:    "bad date",
			rec:     fields(table.ColFreeeProjectID, "500", table.ColDate, "May 1st", table.ColMinutes, "5"),
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.BuildEntry(1, tc.rec)
			if tc.wantErr {
				require.ErrorIs(t, err, table.ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
