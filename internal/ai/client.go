// Package ai is a thin HTTP client for the external debate-scoring backend.
// The model itself lives behind that service; this client only shuttles
// transcripts over and scores back.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ScoreMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ScoreRequest struct {
	Topic    string         `json:"topic"`
	Stance   string         `json:"stance"`
	Messages []ScoreMessage `json:"messages"`
}

type ScoreResult struct {
	Score   int    `json:"score"`
	Verdict string `json:"verdict"`
}

// ScoreDebate submits a transcript and returns the backend's score and
// verdict.
func (c *Client) ScoreDebate(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring backend returned status %d", resp.StatusCode)
	}

	var result ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	return &result, nil
}
