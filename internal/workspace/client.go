// Package workspace provisions a workspace after a successful checkout.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mewayz/billing/internal/config"
	obstracing "github.com/mewayz/billing/internal/observability/tracing"
)

const defaultTimeout = 10 * time.Second

// CreateWorkspaceRequest is the wire request for workspace creation.
type CreateWorkspaceRequest struct {
	Name           string   `json:"name"`
	OwnerEmail     string   `json:"owner_email"`
	Bundles        []string `json:"bundles"`
	SubscriptionID string   `json:"subscription_id"`
}

// Client creates workspaces on the backend service.
type Client interface {
	CreateWorkspace(ctx context.Context, req CreateWorkspaceRequest) error
}

type httpClient struct {
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewClient builds the HTTP client from configuration.
func NewClient(cfg config.Config) Client {
	timeout := cfg.WorkspaceAPI.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &httpClient{
		baseURL:     strings.TrimRight(cfg.WorkspaceAPI.BaseURL, "/"),
		bearerToken: cfg.WorkspaceAPI.BearerToken,
		client: obstracing.WrapHTTPClient(&http.Client{
			Timeout: timeout,
		}),
	}
}

func (c *httpClient) CreateWorkspace(ctx context.Context, req CreateWorkspaceRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode create-workspace request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workspaces/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create-workspace request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("workspace api: status %d", resp.StatusCode)
	}

	return nil
}
