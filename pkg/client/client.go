package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a client for the directory sync HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Config holds configuration for the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// User is the API view of one directory user.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Status      string `json:"status,omitempty"`
	MobilePhone string `json:"mobile_phone,omitempty"`
	OfficePhone string `json:"office_phone,omitempty"`
	CreatedAt   int64  `json:"created_timestamp"`
	HasPassword bool   `json:"has_password"`
}

// SyncResult reports one sync run's counters.
type SyncResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// doRequest helper to perform API requests.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}

	return nil
}

// GetUser fetches a user by its composite storage id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.doRequest(ctx, "GET", "/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername fetches a user by exact username.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.doRequest(ctx, "GET", "/users?username="+url.QueryEscape(username), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsers lists users whose username matches the pattern. "*"
// matches everyone.
func (c *Client) SearchUsers(ctx context.Context, pattern string, offset, limit int) ([]User, error) {
	path := "/users?search=" + url.QueryEscape(pattern) +
		"&offset=" + strconv.Itoa(offset) +
		"&limit=" + strconv.Itoa(limit)

	var res struct {
		Users []User `json:"users"`
	}
	if err := c.doRequest(ctx, "GET", path, nil, &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

// CountUsers returns the total number of directory users.
func (c *Client) CountUsers(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	if err := c.doRequest(ctx, "GET", "/users/count", nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// AddUser registers a new directory user.
func (c *Client) AddUser(ctx context.Context, username string) (*User, error) {
	var user User
	payload := map[string]string{"username": username}
	if err := c.doRequest(ctx, "POST", "/users", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RemoveUser deletes a user by its composite storage id.
func (c *Client) RemoveUser(ctx context.Context, id string) error {
	return c.doRequest(ctx, "DELETE", "/users/"+url.PathEscape(id), nil, nil)
}

// VerifyCredentials checks a username/password pair.
func (c *Client) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	payload := map[string]string{"username": username, "password": password}
	var res struct {
		Valid bool `json:"valid"`
	}
	if err := c.doRequest(ctx, "POST", "/credentials/verify", payload, &res); err != nil {
		return false, err
	}
	return res.Valid, nil
}

// UpdateCredential sets a new password for the user.
func (c *Client) UpdateCredential(ctx context.Context, username, password string) (bool, error) {
	payload := map[string]string{"username": username, "password": password}
	var res struct {
		Updated bool `json:"updated"`
	}
	if err := c.doRequest(ctx, "PUT", "/credentials", payload, &res); err != nil {
		return false, err
	}
	return res.Updated, nil
}

// SyncFull triggers a full synchronization run.
func (c *Client) SyncFull(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	err := c.doRequest(ctx, "POST", "/sync/full", nil, &res)
	return res, err
}

// SyncChanged triggers an incremental synchronization run.
func (c *Client) SyncChanged(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	err := c.doRequest(ctx, "POST", "/sync/changed", nil, &res)
	return res, err
}
