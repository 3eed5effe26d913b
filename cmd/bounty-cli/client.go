package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bountychain/core/types"
)

// gatewayError is the decoded error body of a non-2xx response.
type gatewayError struct {
	Status  int             `json:"-"`
	Message string          `json:"error"`
	Code    string          `json:"code"`
	Receipt json.RawMessage `json:"receipt"`
}

func (e *gatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

type client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		timeout: 10 * time.Second,
	}
}

func (c *client) do(method, path string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &gatewayError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(payload, gwErr); jsonErr != nil || gwErr.Message == "" {
			gwErr.Message = strings.TrimSpace(string(payload))
		}
		return gwErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type accountInfo struct {
	Address  string `json:"address"`
	Nonce    uint64 `json:"nonce"`
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
}

type treasuryInfo struct {
	Address string `json:"address"`
	Total   string `json:"total"`
	ChainID uint64 `json:"chainId"`
}

func (c *client) account(addr string) (*accountInfo, error) {
	var out accountInfo
	if err := c.do(http.MethodGet, "/v1/accounts/"+addr, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) treasury() (*treasuryInfo, error) {
	var out treasuryInfo
	if err := c.do(http.MethodGet, "/v1/treasury", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) submit(tx *types.Transaction) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(http.MethodPost, "/v1/transactions", tx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) get(path string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
