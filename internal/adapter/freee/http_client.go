package freee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"toggl-freee/internal/domain"
	"toggl-freee/internal/ports"
)

const DefaultBaseURL = "https://api.freee.co.jp"

// Client implements ports.FreeeClient against the freee 工数管理 API.
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

// HasValidSession reports whether the OAuth session can authorise requests.
func (c *Client) HasValidSession(ctx context.Context) bool {
	return c.session != nil && c.session.HasValidSession(ctx)
}

// CurrentUser fetches the user the session is authorised as.
// GET /api/1/users/me
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	var out struct {
		User rawUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/1/users/me", nil, nil, &out); err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: out.User.ID, Email: out.User.Email, DisplayName: out.User.DisplayName}, nil
}

// ListCompanies fetches the companies the user belongs to in 工数管理.
// GET /pm/users/me
func (c *Client) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	var out struct {
		Companies []rawCompany `json:"companies"`
	}
	if err := c.do(ctx, http.MethodGet, "/pm/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	companies := make([]domain.Company, 0, len(out.Companies))
	for _, rc := range out.Companies {
		companies = append(companies, domain.Company{ID: rc.ID, Name: rc.DisplayName})
	}
	return companies, nil
}

// ListProjects fetches one page of projects with their workload tag groups.
// GET /pm/projects?company_id=...&limit=...
func (c *Client) ListProjects(ctx context.Context, companyID int64, limit int) ([]domain.FreeeProject, error) {
	q := url.Values{}
	q.Set("company_id", strconv.FormatInt(companyID, 10))
	q.Set("limit", strconv.Itoa(limit))
	var out struct {
		Projects []rawProject `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/pm/projects", q, nil, &out); err != nil {
		return nil, err
	}

	projects := make([]domain.FreeeProject, 0, len(out.Projects))
	for _, p := range out.Projects {
		groups := make([]domain.WorkloadTagGroup, 0, len(p.WorkloadTagGroups))
		for _, g := range p.WorkloadTagGroups {
			tags := make([]domain.WorkloadTag, 0, len(g.Tags))
			for _, t := range g.Tags {
				tags = append(tags, domain.WorkloadTag{ID: t.ID, Name: t.Name})
			}
			groups = append(groups, domain.WorkloadTagGroup{
				ID:       g.TagGroupID,
				Name:     g.TagGroupName,
				Required: g.Required,
				Tags:     tags,
			})
		}
		projects = append(projects, domain.FreeeProject{
			ID:        p.ID,
			Name:      p.Name,
			Code:      p.Code,
			TagGroups: groups,
		})
	}
	return projects, nil
}

// CreateWorkload registers one workload.
// POST /pm/workloads
func (c *Client) CreateWorkload(ctx context.Context, entry domain.WorkEntry) (domain.Workload, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return domain.Workload{}, err
	}
	var out struct {
		Workload rawWorkload `json:"workload"`
	}
	if err := c.do(ctx, http.MethodPost, "/pm/workloads", nil, bytes.NewReader(body), &out); err != nil {
		return domain.Workload{}, err
	}
	w := out.Workload
	c.log.Debug("freee workload created", slog.Int64("id", w.ID), slog.Int64("project_id", w.ProjectID))
	return domain.Workload{ID: w.ID, ProjectID: w.ProjectID, Date: w.Date, Minutes: w.Minutes, Memo: w.Memo}, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, out any) error {
	if !c.HasValidSession(ctx) {
		return domain.ErrNoSession
	}
	u := c.baseURL + path
	if q != nil {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &domain.TransportError{Service: "freee", StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("freee: decode %s: %w", path, err)
	}
	return nil
}

type rawUser struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type rawCompany struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type rawProject struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Code              string             `json:"code"`
	WorkloadTagGroups []rawWorkloadGroup `json:"workload_tag_groups"`
}

type rawWorkloadGroup struct {
	TagGroupID   int64    `json:"tag_group_id"`
	TagGroupName string   `json:"tag_group_name"`
	Required     bool     `json:"required"`
	Tags         []rawTag `json:"tags"`
}

type rawTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawWorkload struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Date      string `json:"date"`
	Minutes   int    `json:"minutes"`
	Memo      string `json:"memo"`
}
