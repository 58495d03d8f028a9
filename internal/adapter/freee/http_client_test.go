package freee

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"toggl-freee/internal/domain"
)

type bearerSession struct {
	token string
}

func (s bearerSession) HasValidSession(context.Context) bool { return s.token != "" }

func (s bearerSession) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+s.token)
	return http.DefaultClient.Do(req)
}

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, bearerSession{token: token}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListProjectsFlattensTagGroups(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pm/projects", r.URL.Path)
		require.Equal(t, "12", r.URL.Query().Get("company_id"))
		require.Equal(t, "100", r.URL.Query().Get("limit"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"projects":[{"id":1,"name":"Alpha","code":"A",
			"workload_tag_groups":[{"tag_group_id":5,"tag_group_name":"Phase","required":true,"tags":[{"id":50,"name":"Design"}]}]},
			{"id":2,"name":"Beta","workload_tag_groups":[]}]}`)
	})

	projects, err := c.ListProjects(context.Background(), 12, 100)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, domain.WorkloadTagGroup{ID: 5, Name: "Phase", Required: true, Tags: []domain.WorkloadTag{{ID: 50, Name: "Design"}}}, projects[0].TagGroups[0])
	require.Empty(t, projects[1].TagGroups)
}

func TestCreateWorkloadPostsPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pm/workloads", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"workload":{"id":900,"project_id":1,"date":"2024-01-05","minutes":30,"memo":"dev"}}`)
	})

	wl, err := c.CreateWorkload(context.Background(), domain.WorkEntry{
		CompanyID: 12, ProjectID: 1, Date: "2024-01-05", Minutes: 30, Memo: "dev",
		Tags: []domain.WorkEntryTag{{TagGroupID: 5, TagID: 50}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(900), wl.ID)
	require.Equal(t, float64(12), got["company_id"])
	require.Equal(t, "2024-01-05", got["date"])
	require.Equal(t, []any{map[string]any{"tag_group_id": float64(5), "tag_id": float64(50)}}, got["workload_tags"])
}

func TestCreateWorkloadOmitsEmptyTags(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"workload":{"id":1}}`)
	})
	_, err := c.CreateWorkload(context.Background(), domain.WorkEntry{CompanyID: 1, ProjectID: 2, Date: "2024-01-01", Minutes: 1})
	require.NoError(t, err)
	_, ok := got["workload_tags"]
	require.False(t, ok)
}

func TestCompaniesAndCurrentUser(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pm/users/me":
			_, _ = io.WriteString(w, `{"companies":[{"id":3,"name":"acme-inc","display_name":"ACME"}]}`)
		case "/api/1/users/me":
			_, _ = io.WriteString(w, `{"user":{"id":8,"email":"a@example.com","display_name":"Aki"}}`)
		}
	})
	companies, err := c.ListCompanies(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.Company{{ID: 3, Name: "ACME"}}, companies)

	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Aki", u.DisplayName)
}

func TestErrorsWithoutSessionAndOnFailure(t *testing.T) {
	noSession := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a session")
	})
	_, err := noSession.ListCompanies(context.Background())
	require.ErrorIs(t, err, domain.ErrNoSession)

	failing := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid project"}`, http.StatusBadRequest)
	})
	_, err = failing.CreateWorkload(context.Background(), domain.WorkEntry{})
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "freee", te.Service)
	require.Equal(t, http.StatusBadRequest, te.StatusCode)
}
