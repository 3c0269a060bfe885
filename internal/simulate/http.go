package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTP status codes the simulator branches on.
const (
	statusOK       = 200
	statusCreated  = 201
	statusAccepted = 202
	statusConflict = 409
)

// HTTPClient wraps http.Client with a timeout and an optional bearer token.
type HTTPClient struct {
	client *http.Client
	token  string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// withToken returns a copy of the client that authenticates as token.
func (c *HTTPClient) withToken(token string) *HTTPClient {
	return &HTTPClient{client: c.client, token: token}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.client.Do(req)
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// decodeResponse reads, closes and unmarshals the response body.
func decodeResponse(resp *http.Response, v interface{}) error {
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// login exchanges an access code for a bearer token.
func login(ctx context.Context, client *HTTPClient, baseURL, accessCode string) (string, error) {
	resp, err := client.Post(ctx, baseURL+"/login", map[string]string{"access_code": accessCode})
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	if resp.StatusCode != statusOK {
		_, _ = readResponseBody(resp)
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}
