// Package gateway is the portal's only path to the remote project/member
// registry. It issues the HTTP calls, classifies failures into apperr
// kinds, and maps registry JSON onto the portal domain types. It never
// interprets errors beyond classification; that is the store's job.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Options struct {
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out struct {
		Projects []domain.Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var out struct {
		Project domain.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/projects/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

func (c *Client) CreateProject(ctx context.Context, fields domain.ProjectFields) (*domain.Project, error) {
	var out struct {
		Project domain.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/projects", fields, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

// UpdateProject has full-replace semantics; callers must send the merged
// object, not a delta.
func (c *Client) UpdateProject(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error) {
	var out struct {
		Project domain.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/projects/"+id, fields, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/projects/"+id, nil, nil)
}

// ListMembers returns the membership roster for a project, each entry
// with its user embedded.
func (c *Client) ListMembers(ctx context.Context, projectID string) ([]domain.Membership, error) {
	var out struct {
		Members []domain.Membership `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/members/by-project/"+projectID, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// AddMember fails with a Conflict error if the (project, user) pair
// already has a membership.
func (c *Client) AddMember(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
	in := struct {
		ProjectID string `json:"project_id"`
		UserID    string `json:"user_id"`
	}{ProjectID: projectID, UserID: userID}

	var out struct {
		Membership domain.Membership `json:"membership"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/members", in, &out); err != nil {
		return nil, err
	}
	return &out.Membership, nil
}

func (c *Client) RemoveMember(ctx context.Context, membershipID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/members/"+membershipID, nil, nil)
}

// TransferOwner is the explicit ownership-transfer operation; generic
// edits never move ownership.
func (c *Client) TransferOwner(ctx context.Context, projectID, newOwnerID string) (*domain.Project, error) {
	in := struct {
		UserID string `json:"user_id"`
	}{UserID: newOwnerID}

	var out struct {
		Project domain.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/projects/"+projectID+"/owner", in, &out); err != nil {
		return nil, err
	}
	return &out.Project, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.Network("rate limit wait", err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "marshal request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Network("call registry", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Network("read registry response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apperr.FromStatus(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperr.Wrap(apperr.KindUnknown, "unmarshal registry response", err)
		}
	}
	return nil
}
