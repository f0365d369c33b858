// Package enrich calls an external text-generation API to annotate and reword
// pass requests. The external call is best-effort: every failure mode
// (network, timeout, non-2xx, malformed payload) collapses into a
// deterministic local fallback, so callers never branch on errors.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hostelpass.org/internal/obs"
)

// Risk tiers the model is asked to choose from. Unknown marks a fallback.
const (
	RiskLow     = "Low"
	RiskMedium  = "Medium"
	RiskHigh    = "High"
	RiskUnknown = "Unknown"
)

// Annotation is the structured output attached to a pass at creation time.
type Annotation struct {
	Summary string `json:"summary"`
	Risk    string `json:"risk"`
}

// Encode serializes the annotation for storage as an opaque string.
func (a Annotation) Encode() string {
	data, err := json.Marshal(a)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeAnnotation parses a stored annotation string.
func DecodeAnnotation(s string) (Annotation, error) {
	var a Annotation
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Annotation{}, err
	}
	return a, nil
}

// Fallback is the deterministic substitute used whenever the external call
// cannot produce a usable annotation.
func Fallback(reason string) Annotation {
	return Annotation{Summary: truncate(reason, 30) + "...", Risk: RiskUnknown}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Enricher is the capability the pass lifecycle depends on. Neither method
// can fail from the caller's perspective.
type Enricher interface {
	Summarize(ctx context.Context, reason string, days int) Annotation
	Polish(ctx context.Context, raw string) string
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

var _ Enricher = (*Client)(nil)

// New builds a client. An empty API key disables the external call entirely;
// both operations then go straight to their fallbacks.
func New(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1/chat/completions",
		http:    &http.Client{Timeout: timeout},
		// Pace outbound calls; one slip of burst absorbs the polish+summarize
		// pair around a single submission.
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
}

// Summarize produces a short summary and a risk tier for the warden view.
func (c *Client) Summarize(ctx context.Context, reason string, days int) Annotation {
	prompt := fmt.Sprintf(
		"Analyze this hostel leave request. Return a JSON object with: 1. A 5-word summary. 2. A risk level (Low/Medium/High) based on urgency and duration (%d days).\nReason: %q\n\nResponse Format: {\"summary\": \"...\", \"risk\": \"...\"}",
		days, reason)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		obs.ObserveEnrich("summarize", "fallback")
		return Fallback(reason)
	}
	var a Annotation
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		obs.ObserveEnrich("summarize", "fallback")
		return Fallback(reason)
	}
	switch a.Risk {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		obs.ObserveEnrich("summarize", "fallback")
		return Fallback(reason)
	}
	if strings.TrimSpace(a.Summary) == "" {
		obs.ObserveEnrich("summarize", "fallback")
		return Fallback(reason)
	}
	obs.ObserveEnrich("summarize", "ok")
	return a
}

// Polish rewords a draft reason into a concise, formal one. Falls back to the
// input verbatim.
func (c *Client) Polish(ctx context.Context, raw string) string {
	prompt := fmt.Sprintf(
		"Reword the following reason for a hostel leave request to make it sound professional and polite, but keep it concise (under 20 words).\nRaw reason: %q", raw)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		obs.ObserveEnrich("polish", "fallback")
		return raw
	}
	out := strings.TrimSpace(content)
	out = strings.Trim(out, `"`)
	if out == "" {
		obs.ObserveEnrich("polish", "fallback")
		return raw
	}
	obs.ObserveEnrich("polish", "ok")
	return out
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("enrichment disabled: missing API key")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You assist a hostel warden processing student leave requests."},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
	}
	buf, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion error: %s", resp.Status)
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}
