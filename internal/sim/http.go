package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SceneSpec tells the simulator sidecar which scene to load on reset.
type SceneSpec struct {
	Scene        string `json:"scene"`
	ScenePath    string `json:"scene_path"`
	SceneDataset string `json:"scene_dataset,omitempty"`
}

type navigableRequest struct {
	Position [3]float64 `json:"position"`
}

type navigableResponse struct {
	Navigable bool `json:"navigable"`
}

// HTTPClient talks JSON over HTTP to a simulator sidecar process that wraps
// the real engine. Endpoints: POST /reset, POST /navigable, POST /close.
type HTTPClient struct {
	baseURL string
	spec    SceneSpec
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient returns a client for the sidecar at baseURL. timeout bounds
// each request; zero means no per-request limit.
func NewHTTPClient(baseURL string, spec SceneSpec, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		spec:    spec,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// HTTPOpener returns an Opener that creates an HTTPClient. The sidecar is
// expected to be running already; opening does no I/O.
func HTTPOpener(baseURL string, spec SceneSpec, timeout time.Duration) Opener {
	return func(ctx context.Context) (Simulator, error) {
		if baseURL == "" {
			return nil, fmt.Errorf("simulator url is empty")
		}
		return NewHTTPClient(baseURL, spec, timeout), nil
	}
}

// Reset loads the configured scene.
func (c *HTTPClient) Reset(ctx context.Context) error {
	diagf("resetting simulator at %s with scene %s", c.baseURL, c.spec.ScenePath)
	return c.post(ctx, "/reset", c.spec, nil)
}

// IsNavigable asks whether an agent can occupy p.
func (c *HTTPClient) IsNavigable(ctx context.Context, p Vec3) (bool, error) {
	var resp navigableResponse
	if err := c.post(ctx, "/navigable", navigableRequest{Position: [3]float64{p.X, p.Y, p.Z}}, &resp); err != nil {
		return false, fmt.Errorf("navigability query at %s: %w", p, err)
	}
	tracef("navigable %s = %v", p, resp.Navigable)
	return resp.Navigable, nil
}

// Close releases the scene on the sidecar.
func (c *HTTPClient) Close() error {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.post(ctx, "/close", struct{}{}, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
