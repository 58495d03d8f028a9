package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

func discardLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeReports serves pages keyed by first row number.
type fakeReports struct {
	pages    map[int]domain.ReportPage
	failAt   int
	requests []ports.ReportRequest
}

func (f *fakeReports) SearchTimeEntries(_ context.Context, _ int64, req ports.ReportRequest) (domain.ReportPage, error) {
	f.requests = append(f.requests, req)
	if f.failAt != 0 && req.FirstRowNumber == f.failAt {
		return domain.ReportPage{}, &domain.TransportError{Service: "toggl", StatusCode: 429, Body: "slow down"}
	}
	page, ok := f.pages[req.FirstRowNumber]
	if !ok {
		return domain.ReportPage{}, fmt.Errorf("unexpected row %d", req.FirstRowNumber)
	}
	return page, nil
}

type fakeCatalog struct {
	projects []domain.Project
	tags     []domain.Tag
}

func (f *fakeCatalog) ListWorkspaces(context.Context) ([]domain.Workspace, error) {
	return []domain.Workspace{{ID: 1, Name: "Main"}}, nil
}

func (f *fakeCatalog) ListProjects(context.Context, int64) ([]domain.Project, error) {
	return f.projects, nil
}

func (f *fakeCatalog) ListTags(context.Context, int64) ([]domain.Tag, error) {
	return f.tags, nil
}

// memTables is an in-memory ports.TableStore.
type memTables map[string]table.Table

func (m memTables) ReadTable(_ context.Context, name string) (table.Table, error) {
	t, ok := m[name]
	if !ok {
		return table.Table{}, ports.ErrTableNotFound
	}
	return t, nil
}

func (m memTables) WriteTable(_ context.Context, name string, t table.Table) error {
	m[name] = t
	return nil
}

type fakeProjects struct {
	projects []domain.FreeeProject
	limit    int
}

func (f *fakeProjects) ListProjects(_ context.Context, _ int64, limit int) ([]domain.FreeeProject, error) {
	f.limit = limit
	return f.projects, nil
}

// fakeSink records every call and fails on the memo named in failMemo.
type fakeSink struct {
	calls    []domain.WorkEntry
	failMemo string
}

var errRejected = errors.New("rejected")

func (f *fakeSink) CreateWorkload(_ context.Context, e domain.WorkEntry) (domain.Workload, error) {
	f.calls = append(f.calls, e)
	if e.Memo == f.failMemo {
		return domain.Workload{}, errRejected
	}
	return domain.Workload{ID: int64(len(f.calls)), ProjectID: e.ProjectID}, nil
}

func entryAt(id int64, start string, seconds ...int64) []domain.TimeEntry {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	out := make([]domain.TimeEntry, len(seconds))
	for i, s := range seconds {
		out[i] = domain.TimeEntry{ID: id + int64(i), Seconds: s, Start: t}
	}
	return out
}

func tagID(v int64) *int64 { return &v }
