package toggl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
)

// DefaultBaseURL serves both the v9 API and the v3 Reports API.
const DefaultBaseURL = "https://api.track.toggl.com"

const nextRowHeader = "X-Next-Row-Number"

// Client implements ports.TogglClient using the Toggl Track API v9 and the
// Reports API v3.
type Client struct {
	baseURL string
	session ports.Session
	log     *slog.Logger
}

func NewClient(baseURL string, session ports.Session, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		log:     log,
	}
}

// SearchTimeEntries fetches one page of the grouped detailed report.
// Reports v3: POST /reports/api/v3/workspace/{ws}/search/time_entries
// The next page cursor comes back in the X-Next-Row-Number header.
func (c *Client) SearchTimeEntries(ctx context.Context, workspaceID int64, search ports.ReportRequest) (domain.ReportPage, error) {
	body, err := json.Marshal(search)
	if err != nil {
		return domain.ReportPage{}, err
	}
	path := fmt.Sprintf("/reports/api/v3/workspace/%d/search/time_entries", workspaceID)
	var raw []rawReportEntry
	header, err := c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(body), &raw)
	if err != nil {
		return domain.ReportPage{}, err
	}

	entries := make([]domain.ReportEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, r.toDomain())
	}
	next := parseNextRowNumber(header.Get(nextRowHeader))
	c.log.Debug("toggl report page",
		slog.Int("first_row", search.FirstRowNumber),
		slog.Int("entries", len(entries)),
		slog.Int("next_row", next),
	)
	return domain.ReportPage{Entries: entries, NextRowNumber: next}, nil
}

// ListWorkspaces fetches the workspaces the token belongs to.
// Toggl v9: GET /api/v9/me/workspaces
func (c *Client) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var raw []rawNamed
	if _, err := c.do(ctx, http.MethodGet, "/api/v9/me/workspaces", nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Workspace, 0, len(raw))
	for _, w := range raw {
		out = append(out, domain.Workspace{ID: w.ID, Name: w.Name})
	}
	return out, nil
}

// ListProjects fetches the active projects of a workspace.
// Toggl v9: GET /api/v9/workspaces/{ws}/projects?active=true
func (c *Client) ListProjects(ctx context.Context, workspaceID int64) ([]domain.Project, error) {
	q := url.Values{}
	q.Set("active", "true")
	var raw []rawProject
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v9/workspaces/%d/projects", workspaceID), q, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.Project, 0, len(raw))
	for _, p := range raw {
		var clientID *int64
		if p.ClientID != nil {
			id := *p.ClientID
			clientID = &id
		}
		out = append(out, domain.Project{
			ID:          p.ID,
			WorkspaceID: p.WorkspaceID,
			Name:        p.Name,
			Active:      p.Active,
			Color:       p.Color,
			ClientID:    clientID,
			At:          p.At,
		})
	}
	return out, nil
}

// ListTags fetches the tags of a workspace.
// Toggl v9: GET /api/v9/workspaces/{ws}/tags
func (c *Client) ListTags(ctx context.Context, workspaceID int64) ([]domain.Tag, error) {
	var raw []rawTag
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v9/workspaces/%d/tags", workspaceID), nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Tag, 0, len(raw))
	for _, t := range raw {
		out = append(out, domain.Tag{ID: t.ID, WorkspaceID: t.WorkspaceID, Name: t.Name})
	}
	return out, nil
}

// do sends one request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, out any) (http.Header, error) {
	if c.session == nil || !c.session.HasValidSession(ctx) {
		return nil, errors.New("toggl: missing api token")
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.TransportError{Service: "toggl", StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("toggl: decode %s: %w", path, err)
	}
	return resp.Header, nil
}

// parseNextRowNumber returns 0 for an absent, non-numeric or non-positive cursor.
func parseNextRowNumber(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// rawReportEntry mirrors a grouped row of the Reports v3 search response.
type rawReportEntry struct {
	ProjectID   *int64              `json:"project_id"`
	Description string              `json:"description"`
	TagIDs      []int64             `json:"tag_ids"`
	TimeEntries []rawReportTimeItem `json:"time_entries"`
}

type rawReportTimeItem struct {
	ID      int64      `json:"id"`
	Seconds int64      `json:"seconds"`
	Start   time.Time  `json:"start"`
	Stop    *time.Time `json:"stop"`
	At      time.Time  `json:"at"`
}

func (r rawReportEntry) toDomain() domain.ReportEntry {
	var projectID int64
	if r.ProjectID != nil {
		projectID = *r.ProjectID
	}
	items := make([]domain.TimeEntry, 0, len(r.TimeEntries))
	for _, te := range r.TimeEntries {
		var stopPtr *time.Time
		if te.Stop != nil {
			stop := *te.Stop
			stopPtr = &stop
		}
		items = append(items, domain.TimeEntry{
			ID:      te.ID,
			Seconds: te.Seconds,
			Start:   te.Start,
			Stop:    stopPtr,
			At:      te.At,
		})
	}
	return domain.ReportEntry{
		ProjectID:   projectID,
		Description: r.Description,
		TagIDs:      r.TagIDs,
		TimeEntries: items,
	}
}

type rawNamed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawProject struct {
	ID          int64     `json:"id"`
	WorkspaceID int64     `json:"workspace_id"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	Color       string    `json:"color"`
	ClientID    *int64    `json:"client_id"`
	At          time.Time `json:"at"`
}

type rawTag struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"workspace_id"`
	Name        string `json:"name"`
}
