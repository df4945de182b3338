package audience

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumenlive/backend/pkg/apperr"
)

// Client calls the external audience-list service over HTTP. Responses are
// decoded into explicit DTOs and validated at the boundary; anything malformed
// is an external service error, never a silently missing field.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
	logger     *zap.Logger
}

// NewClient creates an audience-list client. httpClient may be nil.
func NewClient(httpClient *http.Client, baseURL, apiKey string, pageSize int, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, pageSize: pageSize, logger: logger}
}

type createListRequest struct {
	Name string `json:"name"`
}

type createListResponse struct {
	ID string `json:"id"`
}

type membersPage struct {
	ContactIDs []string `json:"contact_ids"`
	Total      int      `json:"total"`
}

type updateMembersRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type contactRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

type contactResponse struct {
	ID string `json:"id"`
}

// CreateList creates a new audience list and returns its id.
func (c *Client) CreateList(ctx context.Context, name string) (string, error) {
	var out createListResponse
	if err := c.do(ctx, http.MethodPost, "/lists", createListRequest{Name: name}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", apperr.External("list service returned empty list id")
	}
	return out.ID, nil
}

// GetMembers returns the full membership of a list, following pagination.
func (c *Client) GetMembers(ctx context.Context, listID string) ([]string, error) {
	var members []string
	offset := 0
	for {
		path := fmt.Sprintf("/lists/%s/members?offset=%d&limit=%d", listID, offset, c.pageSize)
		var page membersPage
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		members = append(members, page.ContactIDs...)
		offset += len(page.ContactIDs)
		if len(page.ContactIDs) < c.pageSize || offset >= page.Total {
			return members, nil
		}
	}
}

// UpdateMembers applies adds and removes in a single batched call.
func (c *Client) UpdateMembers(ctx context.Context, listID string, toAdd, toRemove []string) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}
	path := fmt.Sprintf("/lists/%s/members/batch", listID)
	return c.do(ctx, http.MethodPost, path, updateMembersRequest{Add: toAdd, Remove: toRemove}, nil)
}

// ResolveOrCreateContact upserts a contact by email and returns its id.
// The upsert is idempotent on the service side.
func (c *Client) ResolveOrCreateContact(ctx context.Context, email, fullName string) (string, error) {
	var out contactResponse
	if err := c.do(ctx, http.MethodPut, "/contacts", contactRequest{Email: email, FullName: fullName}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", apperr.External("list service returned empty contact id")
	}
	return out.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.External("list service %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.External("list service %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.External("decode list service response: %v", err)
	}
	return nil
}
