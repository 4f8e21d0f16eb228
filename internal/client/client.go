// Package client is a Go client for the activity API: a thin HTTP client
// plus a caching Manager that keeps derived counts and groupings consistent
// across mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Activity struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	AlbumID   *string    `json:"albumId"`
	AssetID   *string    `json:"assetId"`
	ParentID  *string    `json:"parentId,omitempty"`
	Comment   *string    `json:"comment,omitempty"`
	Reaction  *string    `json:"reaction,omitempty"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Statistics struct {
	Comments  int `json:"comments"`
	Likes     int `json:"likes"`
	Reactions int `json:"reactions"`
}

type CreateRequest struct {
	AlbumID  string `json:"albumId"`
	AssetID  string `json:"assetId,omitempty"`
	ParentID string `json:"parentId,omitempty"`
	Type     string `json:"type"`
	Comment  string `json:"comment,omitempty"`
	Reaction string `json:"reaction,omitempty"`
}

type CreateResult struct {
	Duplicate bool     `json:"duplicate"`
	Activity  Activity `json:"activity"`
}

// API is the server surface the Manager consumes. HTTPClient implements it;
// tests substitute a fake.
type API interface {
	ListActivities(ctx context.Context, albumID, assetID string) ([]Activity, error)
	Statistics(ctx context.Context, albumID, assetID string) (Statistics, error)
	CreateActivity(ctx context.Context, req CreateRequest) (CreateResult, error)
	UpdateActivity(ctx context.Context, activityID, comment string) (Activity, error)
	DeleteActivity(ctx context.Context, activityID string) error
}

type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, target any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, apiErr.Code, apiErr.Error)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func scopeQuery(albumID, assetID string) string {
	q := url.Values{}
	if albumID != "" {
		q.Set("albumId", albumID)
	}
	if assetID != "" {
		q.Set("assetId", assetID)
	}
	return q.Encode()
}

func (c *HTTPClient) ListActivities(ctx context.Context, albumID, assetID string) ([]Activity, error) {
	var payload struct {
		Activities []Activity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/activities?"+scopeQuery(albumID, assetID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Activities, nil
}

func (c *HTTPClient) Statistics(ctx context.Context, albumID, assetID string) (Statistics, error) {
	var stats Statistics
	if err := c.do(ctx, http.MethodGet, "/api/activities/statistics?"+scopeQuery(albumID, assetID), nil, &stats); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

func (c *HTTPClient) CreateActivity(ctx context.Context, req CreateRequest) (CreateResult, error) {
	var result CreateResult
	if err := c.do(ctx, http.MethodPost, "/api/activities", req, &result); err != nil {
		return CreateResult{}, err
	}
	return result, nil
}

func (c *HTTPClient) UpdateActivity(ctx context.Context, activityID, comment string) (Activity, error) {
	var item Activity
	body := map[string]string{"comment": comment}
	if err := c.do(ctx, http.MethodPut, "/api/activities/"+activityID, body, &item); err != nil {
		return Activity{}, err
	}
	return item, nil
}

func (c *HTTPClient) DeleteActivity(ctx context.Context, activityID string) error {
	return c.do(ctx, http.MethodDelete, "/api/activities/"+activityID, nil, nil)
}
