package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/groblegark/warmpath/internal/model"
)

// HTTPClient implements WarmpathClient using the HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Network ---

func (c *HTTPClient) ImportNetwork(ctx context.Context, ownerID string, req *ImportNetworkRequest) (*ImportNetworkResponse, error) {
	var resp ImportNetworkResponse
	path := "/v1/network/" + url.PathEscape(ownerID) + "/nodes"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetNetworkMap(ctx context.Context, ownerID string) (*model.NetworkMap, error) {
	var m model.NetworkMap
	path := "/v1/network/" + url.PathEscape(ownerID) + "/map"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) CreateConnection(ctx context.Context, ownerID string, req *CreateConnectionRequest) (*model.Connection, error) {
	var conn model.Connection
	path := "/v1/network/" + url.PathEscape(ownerID) + "/connections"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (c *HTTPClient) DeactivateConnection(ctx context.Context, ownerID, connID string) error {
	path := "/v1/network/" + url.PathEscape(ownerID) + "/connections/" + url.PathEscape(connID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) RecalculateStrengths(ctx context.Context, ownerID string) (int, error) {
	var resp struct {
		Updated int `json:"updated"`
	}
	path := "/v1/network/" + url.PathEscape(ownerID) + "/recalculate"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// --- Path searches ---

func (c *HTTPClient) RunSearch(ctx context.Context, req *RunSearchRequest) (*model.PathRequest, error) {
	var out model.PathRequest
	if err := c.doJSON(ctx, http.MethodPost, "/v1/path/searches", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetSearch(ctx context.Context, id string) (*model.PathRequest, error) {
	var out model.PathRequest
	if err := c.doJSON(ctx, http.MethodGet, "/v1/path/searches/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListSearches(ctx context.Context, ownerID string, limit int) ([]*model.PathRequest, error) {
	q := url.Values{}
	q.Set("owner", ownerID)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var resp struct {
		Searches []*model.PathRequest `json:"searches"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/path/searches?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Searches, nil
}

// --- Introductions ---

func (c *HTTPClient) StartIntroduction(ctx context.Context, req *StartIntroductionRequest) (*model.IntroductionFlow, error) {
	var flow model.IntroductionFlow
	if err := c.doJSON(ctx, http.MethodPost, "/v1/introductions", req, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *HTTPClient) GetIntroduction(ctx context.Context, id string) (*model.IntroductionFlow, error) {
	var flow model.IntroductionFlow
	if err := c.doJSON(ctx, http.MethodGet, "/v1/introductions/"+url.PathEscape(id), nil, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *HTTPClient) ListIntroductions(ctx context.Context, userID string) ([]*model.IntroductionFlow, error) {
	q := url.Values{}
	q.Set("user", userID)
	var resp struct {
		Introductions []*model.IntroductionFlow `json:"introductions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/introductions?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Introductions, nil
}

func (c *HTTPClient) RespondToStep(ctx context.Context, flowID string, req *RespondRequest) (*model.IntroductionFlow, error) {
	var flow model.IntroductionFlow
	path := "/v1/introductions/" + url.PathEscape(flowID) + "/respond"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *HTTPClient) CancelIntroduction(ctx context.Context, flowID, requesterID string) (*model.IntroductionFlow, error) {
	body := map[string]string{"requester_id": requesterID}
	var flow model.IntroductionFlow
	path := "/v1/introductions/" + url.PathEscape(flowID) + "/cancel"
	if err := c.doJSON(ctx, http.MethodPost, path, body, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *HTTPClient) Sweep(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/introductions/sweep", nil, nil)
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content, success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
