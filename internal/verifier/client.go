// Package verifier предоставляет клиент внешнего оракула проверки доказательств личности.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с оракулом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type verifyRequest struct {
	Root      string `json:"root"`
	Nullifier string `json:"nullifier"`
	Signal    string `json:"signal"`
	Proof     string `json:"proof"`
	GroupID   string `json:"groupId"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// NewClient создаёт HTTP-клиент оракула по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Verify передаёт доказательство оракулу и возвращает его вердикт.
func (c *Client) Verify(ctx context.Context, root, nullifier, signal, proof, groupID string) (bool, error) {
	if c == nil || c.baseURL == "" {
		return false, fmt.Errorf("verifier client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(verifyRequest{
		Root:      root,
		Nullifier: nullifier,
		Signal:    signal,
		Proof:     proof,
		GroupID:   groupID,
	})
	if err != nil {
		return false, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/verify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return result.Valid, nil
}
