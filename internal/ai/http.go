package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPCompleter calls a plain JSON interpretation sidecar:
// POST {BaseURL}/complete {"prompt": "..."} -> {"content": "..."}.
type HTTPCompleter struct {
	BaseURL string
	Client  *http.Client
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

type completeResponse struct {
	Content string `json:"content"`
}

func (h HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 45 * time.Second}
	}

	b, _ := json.Marshal(completeRequest{Prompt: prompt})
	url := strings.TrimRight(h.BaseURL, "/") + "/complete"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("interpretation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("interpretation service error: %s", resp.Status)
	}

	var r completeResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}
	return r.Content, nil
}

func retryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
