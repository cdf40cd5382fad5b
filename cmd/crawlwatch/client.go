package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/server"
)

const apiTimeout = 30 * time.Second

var apiFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "api",
		Usage: "Base URL of a running crawlwatch server (defaults to the configured bind)",
	},
	&cli.StringFlag{
		Name:  "api-key",
		Usage: "Bearer key for the control API (defaults to server.api_key)",
	},
}

// apiClient talks to the control API of a running "crawlwatch serve".
type apiClient struct {
	baseURL string
	apiKey  string
	httpCli *http.Client
}

// apiError carries a non-2xx reply.
type apiError struct {
	Status int
	Msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Msg)
}

func newAPIClient(cmd *cli.Command) (*apiClient, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config error: %w", err)
	}

	base := strings.TrimSpace(cmd.String("api"))
	if base == "" {
		base = baseURLFromBind(cfg.Server.Bind)
	}
	key := strings.TrimSpace(cmd.String("api-key"))
	if key == "" {
		key = cfg.Server.APIKey
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  key,
		httpCli: &http.Client{Timeout: apiTimeout},
	}, nil
}

// baseURLFromBind turns a listen address into a dialable URL. Wildcard
// hosts dial loopback.
func baseURLFromBind(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// do sends body as JSON and decodes the data field of the reply into out.
// It returns the reply's warning, if any.
func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) (string, error) {
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+server.APIPrefix+path, reader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", fmt.Errorf("is crawlwatch serve running? %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Success bool            `json:"success"`
		Error   string          `json:"error"`
		Warning string          `json:"warning"`
		Data    json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return "", &apiError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		return "", &apiError{Status: resp.StatusCode, Msg: envelope.Error}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := sonic.Unmarshal(envelope.Data, out); err != nil {
			return envelope.Warning, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return envelope.Warning, nil
}
