// synthctl/pkg/api/client.go

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
)

const (
	synthEndpoint     = "/synthetics/v202101beta1"
	inventoryEndpoint = "/api/v5"
)

// Client talks to the synthetics and inventory REST APIs. It
// implements inventory.Source. The engine treats transport failures as
// opaque; they are wrapped once here with status context and propagate
// unmodified through the matching layers.
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string, profile *Profile) *Client {
	return &Client{
		baseURL: baseURL,
		email:   profile.Email,
		token:   profile.APIToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ inventory.Source = (*Client)(nil)

func (c *Client) req(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return logging.NewError(logging.ErrorTypeAPI, "failed to encode request body", err, nil)
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + path
	logging.Logger.Debug().Str("method", method).Str("url", url).Msg("API request")

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return logging.NewError(logging.ErrorTypeAPI, "failed to build request", err,
			map[string]interface{}{"url": url})
	}
	req.Header.Set("X-CH-Auth-Email", c.email)
	req.Header.Set("X-CH-Auth-API-Token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return logging.NewError(logging.ErrorTypeAPI, "request failed", err,
			map[string]interface{}{"url": url})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return logging.NewError(logging.ErrorTypeAPI, "failed to read response body", err,
			map[string]interface{}{"url": url})
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return logging.NewError(logging.ErrorTypeAPI,
			fmt.Sprintf("API request failed with status %d", resp.StatusCode), nil,
			map[string]interface{}{"url": url, "status": resp.StatusCode, "body": string(data)})
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return logging.NewError(logging.ErrorTypeAPI, "failed to decode response body", err,
				map[string]interface{}{"url": url})
		}
	}
	return nil
}

// ListDevices returns the full device inventory.
func (c *Client) ListDevices(ctx context.Context) ([]*inventory.Device, error) {
	var resp struct {
		Devices []*inventory.Device `json:"devices"`
	}
	if err := c.req(ctx, http.MethodGet, inventoryEndpoint+"/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// ListInterfaces returns the interfaces attached to a device.
func (c *Client) ListInterfaces(ctx context.Context, deviceID string) ([]*inventory.Interface, error) {
	var resp struct {
		Interfaces []*inventory.Interface `json:"interfaces"`
	}
	path := fmt.Sprintf("%s/devices/%s/interfaces", inventoryEndpoint, deviceID)
	if err := c.req(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Interfaces, nil
}

// ListAgents returns the full agent inventory.
func (c *Client) ListAgents(ctx context.Context) ([]*inventory.Agent, error) {
	var resp struct {
		Agents []*inventory.Agent `json:"agents"`
	}
	if err := c.req(ctx, http.MethodGet, synthEndpoint+"/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// ListTests returns all synthetic tests.
func (c *Client) ListTests(ctx context.Context) ([]*Test, error) {
	var resp struct {
		Tests []*Test `json:"tests"`
	}
	if err := c.req(ctx, http.MethodGet, synthEndpoint+"/tests", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tests, nil
}

// GetTest returns one test by id.
func (c *Client) GetTest(ctx context.Context, id string) (*Test, error) {
	var resp struct {
		Test *Test `json:"test"`
	}
	if err := c.req(ctx, http.MethodGet, synthEndpoint+"/tests/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Test, nil
}

// CreateTest creates a test and returns it with its assigned id.
func (c *Client) CreateTest(ctx context.Context, test *Test) (*Test, error) {
	body := map[string]interface{}{"test": test}
	var resp struct {
		Test *Test `json:"test"`
	}
	if err := c.req(ctx, http.MethodPost, synthEndpoint+"/tests", body, &resp); err != nil {
		return nil, err
	}
	logging.Logger.Info().Str("test", resp.Test.Name).Str("id", resp.Test.ID).Msg("Created test")
	return resp.Test, nil
}

// DeleteTest deletes a test by id.
func (c *Client) DeleteTest(ctx context.Context, id string) error {
	return c.req(ctx, http.MethodDelete, synthEndpoint+"/tests/"+id, nil, nil)
}

// SetTestStatus activates or pauses a test.
func (c *Client) SetTestStatus(ctx context.Context, id, status string) error {
	body := map[string]interface{}{"id": id, "status": status}
	return c.req(ctx, http.MethodPut, synthEndpoint+"/tests/"+id+"/status", body, nil)
}

// TestHealth fetches health for the given test ids over a time window.
func (c *Client) TestHealth(ctx context.Context, ids []string, start, end time.Time) ([]*TestHealth, error) {
	body := map[string]interface{}{
		"ids":       ids,
		"startTime": start.Format(time.RFC3339),
		"endTime":   end.Format(time.RFC3339),
		"augment":   false,
		"agentIds":  []string{},
		"taskIds":   []string{},
	}
	var resp struct {
		Health []*TestHealth `json:"health"`
	}
	if err := c.req(ctx, http.MethodPost, synthEndpoint+"/health/tests", body, &resp); err != nil {
		return nil, err
	}
	return resp.Health, nil
}
