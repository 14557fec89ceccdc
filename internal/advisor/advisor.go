// Package advisor calls a hosted language model for sustainability
// guidance: classifying entries, summarizing reports, recommending
// offsets, flagging regulations, and proposing reductions.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
)

// ErrUnavailable is returned when no API key is configured. Advisory
// endpoints are optional; everything else works without them.
var ErrUnavailable = errors.New("advisor not configured")

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      defaultModel,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether advisory calls can be made.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != ""
}

// ClassifyEntry suggests scope, category and factor for a free-text
// activity description.
func (c *Client) ClassifyEntry(ctx context.Context, description string) (string, error) {
	return c.complete(ctx, dataEntryAssistant, dataEntryPrompt(description))
}

// SummarizeReport turns an aggregated emissions summary into prose.
func (c *Client) SummarizeReport(ctx context.Context, emissionsData string) (string, error) {
	return c.complete(ctx, reportGenerator, reportSummaryPrompt(emissionsData))
}

// AdviseOffsets recommends offset projects for the company's total.
func (c *Client) AdviseOffsets(ctx context.Context, totalKg float64, location, industry string) (string, error) {
	return c.complete(ctx, offsetAdvisor, offsetAdvicePrompt(totalKg, location, industry))
}

// CheckRegulations surveys carbon regulations relevant to the company.
func (c *Client) CheckRegulations(ctx context.Context, location, industry string, exportMarkets []string) (string, error) {
	return c.complete(ctx, regulationRadar, regulationCheckPrompt(location, industry, exportMarkets))
}

// SuggestOptimizations proposes reduction strategies from the summary.
func (c *Client) SuggestOptimizations(ctx context.Context, emissionsData string) (string, error) {
	return c.complete(ctx, emissionOptimizer, optimizationPrompt(emissionsData))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) complete(ctx context.Context, persona agentPersona, prompt string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: persona.system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read model response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode model response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("model API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("model API error: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	slog.InfoContext(ctx, "Advisory completion finished",
		"role", persona.role,
		"model", c.model,
		"duration", time.Since(start).Round(time.Millisecond))

	return parsed.Choices[0].Message.Content, nil
}
