package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelcm/pse-data-bridge/internal/utils"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// HTTPCompleter posts messages-style completion requests to a JSON endpoint.
type HTTPCompleter struct {
	c       HTTPClient
	url     string
	model   string
	apiKey  string
	backoff utils.Backoff
}

func NewHTTPCompleter(c HTTPClient, url, model, apiKey string) *HTTPCompleter {
	return &HTTPCompleter{c: c, url: url, model: model, apiKey: apiKey, backoff: utils.NewBackoff(100*time.Millisecond, 2)}
}

func (h *HTTPCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if h.url == "" {
		return "", errors.New("empty url")
	}
	body, err := json.Marshal(completionRequest{
		Model:     h.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	var out completionResponse
	err = h.backoff.Do(ctx, func(int) error {
		return h.post(ctx, body, &out)
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String(), nil
}

func (h *HTTPCompleter) post(ctx context.Context, body []byte, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return utils.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return err
		}
		return utils.Permanent(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return utils.Permanent(fmt.Errorf("decode completion: %w", err))
	}
	return nil
}
