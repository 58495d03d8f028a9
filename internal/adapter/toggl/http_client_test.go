package toggl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, NewAPITokenSession("tok"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearchTimeEntries(t *testing.T) {
	var got ports.ReportRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/reports/api/v3/workspace/42/search/time_entries", r.URL.Path)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("tok:api_token"))
		require.Equal(t, want, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("X-Next-Row-Number", "51")
		_, _ = io.WriteString(w, `[{"project_id":7,"description":"dev","tag_ids":[1,2],
			"time_entries":[{"id":100,"seconds":90,"start":"2024-01-05T23:30:00+09:00","stop":"2024-01-05T23:31:30+09:00","at":"2024-01-06T00:00:00Z"}]},
			{"project_id":null,"description":"misc","tag_ids":[],"time_entries":[{"id":101,"seconds":60,"start":"2024-01-06T10:00:00+09:00","stop":null,"at":"2024-01-06T10:00:00Z"}]}]`)
	})

	page, err := c.SearchTimeEntries(context.Background(), 42, ports.ReportRequest{
		StartDate: "2024-01-01", EndDate: "2024-01-31", Grouped: true, PageSize: 50, FirstRowNumber: 1,
	})
	require.NoError(t, err)
	require.Equal(t, ports.ReportRequest{StartDate: "2024-01-01", EndDate: "2024-01-31", Grouped: true, PageSize: 50, FirstRowNumber: 1}, got)
	require.Equal(t, 51, page.NextRowNumber)
	require.Len(t, page.Entries, 2)
	require.Equal(t, int64(7), page.Entries[0].ProjectID)
	require.Equal(t, []int64{1, 2}, page.Entries[0].TagIDs)
	require.Equal(t, int64(100), page.Entries[0].TimeEntries[0].ID)
	require.Equal(t, "2024-01-05", page.Entries[0].TimeEntries[0].Start.Format("2006-01-02"))
	require.Equal(t, int64(0), page.Entries[1].ProjectID)
	require.Nil(t, page.Entries[1].TimeEntries[0].Stop)
}

func TestSearchTimeEntriesWithoutCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	page, err := c.SearchTimeEntries(context.Background(), 1, ports.ReportRequest{FirstRowNumber: 1})
	require.NoError(t, err)
	require.Equal(t, 0, page.NextRowNumber)
	require.Empty(t, page.Entries)
}

func TestParseNextRowNumber(t *testing.T) {
	cases := map[string]int{"": 0, "abc": 0, "0": 0, "-5": 0, "51": 51, " 101 ": 101}
	for in, want := range cases {
		require.Equal(t, want, parseNextRowNumber(in), "input %q", in)
	}
}

func TestListProjectsAndTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v9/workspaces/9/projects":
			require.Equal(t, "true", r.URL.Query().Get("active"))
			_, _ = io.WriteString(w, `[{"id":1,"workspace_id":9,"name":"Alpha","active":true,"client_id":5}]`)
		case "/api/v9/workspaces/9/tags":
			_, _ = io.WriteString(w, `[{"id":3,"workspace_id":9,"name":"meeting"}]`)
		case "/api/v9/me/workspaces":
			_, _ = io.WriteString(w, `[{"id":9,"name":"Main"}]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	projects, err := c.ListProjects(ctx, 9)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, "Alpha", projects[0].Name)
	require.Equal(t, int64(5), *projects[0].ClientID)

	tags, err := c.ListTags(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, []domain.Tag{{ID: 3, WorkspaceID: 9, Name: "meeting"}}, tags)

	ws, err := c.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Workspace{{ID: 9, Name: "Main"}}, ws)
}

func TestNonSuccessIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})
	_, err := c.ListTags(context.Background(), 1)
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	require.Equal(t, "toggl", te.Service)
	require.Contains(t, te.Body, "too many requests")
}

func TestMissingTokenFailsBeforeRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, NewAPITokenSession(""), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.ListWorkspaces(context.Background())
	require.Error(t, err)
	require.False(t, called)
}
