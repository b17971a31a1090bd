// Package rpcclient implements the HTTP transport side of the
// remoteproxy.Channel contract: it posts namespaced method calls to a
// rpcserver.Server's fixed "/rpc" path and decodes its ok/result/error
// envelope.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/simsearch/simsearch/internal/remoteproxy"
)

// Config holds the client's connection settings.
type Config struct {
	// Host is the remote shard's hostname or IP (default "localhost").
	Host string
	// Port is the remote shard's port (default 9001, the server CLI's
	// default).
	Port int
	// Timeout bounds each HTTP round trip (default 30s).
	Timeout time.Duration
	// MaxIdleConns caps idle pooled connections (default 10).
	MaxIdleConns int
	// MaxConnsPerHost caps concurrent connections to the shard (default 10).
	MaxConnsPerHost int
}

// DefaultConfig returns the client's default connection settings.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            9001,
		Timeout:         30 * time.Second,
		MaxIdleConns:    10,
		MaxConnsPerHost: 10,
	}
}

// Client is an HTTP implementation of remoteproxy.Channel.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client from config, applying defaults for any zero fields.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 9001
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxConnsPerHost == 0 {
		config.MaxConnsPerHost = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		MaxIdleConnsPerHost: config.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{Timeout: config.Timeout, Transport: transport}

	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", config.Host, config.Port),
		httpClient: httpClient,
	}
}

// NewFromURL builds a Client against an already-complete base URL
// ("http://host:port"), the shape the server CLI's --remote_shards flag
// takes.
func NewFromURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type wireRequest struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args,omitempty"`
}

type wireResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Call implements remoteproxy.Channel over HTTP POST to "/rpc".
func (c *Client) Call(method string, args map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(wireRequest{Method: method, Args: args})
	if err != nil {
		return nil, fmt.Errorf("rpcclient: encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rpcclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: %s: request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: %s: read response: %w", method, err)
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("rpcclient: %s: parse response: %w", method, err)
	}
	if !wire.OK {
		return nil, fmt.Errorf("rpcclient: %s: %s", method, wire.Error)
	}
	return wire.Result, nil
}

var _ remoteproxy.Channel = (*Client)(nil)
