package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("missing Authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Error(err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := New("test-key", "test-model", time.Second)
	c.baseURL = baseURL
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestSummarizeParsesAnnotation(t *testing.T) {
	srv := chatServer(t, `{"summary": "family function at home", "risk": "Low"}`)
	c := newTestClient(t, srv.URL)

	a := c.Summarize(context.Background(), "family function", 3)
	if a.Summary != "family function at home" || a.Risk != RiskLow {
		t.Fatalf("unexpected annotation: %#v", a)
	}
}

func TestSummarizeFallbackOnTransportError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")

	reason := "family function"
	a := c.Summarize(context.Background(), reason, 3)
	if a.Risk != RiskUnknown {
		t.Fatalf("expected Unknown risk, got %q", a.Risk)
	}
	if a.Summary != reason+"..." {
		t.Fatalf("unexpected fallback summary: %q", a.Summary)
	}
}

func TestSummarizeFallbackTruncatesAtThirtyRunes(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")

	reason := "a very long explanation that keeps going well past thirty characters"
	a := c.Summarize(context.Background(), reason, 1)
	want := string([]rune(reason)[:30]) + "..."
	if a.Summary != want {
		t.Fatalf("summary = %q, want %q", a.Summary, want)
	}
}

func TestSummarizeFallbackOnMalformedContent(t *testing.T) {
	srv := chatServer(t, `not json at all`)
	c := newTestClient(t, srv.URL)

	a := c.Summarize(context.Background(), "short trip", 1)
	if a.Risk != RiskUnknown {
		t.Fatalf("expected fallback for malformed content, got %#v", a)
	}
}

func TestSummarizeFallbackOnUnexpectedRiskTier(t *testing.T) {
	srv := chatServer(t, `{"summary": "ok", "risk": "Catastrophic"}`)
	c := newTestClient(t, srv.URL)

	a := c.Summarize(context.Background(), "short trip", 1)
	if a.Risk != RiskUnknown {
		t.Fatalf("expected fallback for unexpected tier, got %#v", a)
	}
}

func TestSummarizeFallbackOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL)

	a := c.Summarize(context.Background(), "short trip", 1)
	if a.Risk != RiskUnknown {
		t.Fatalf("expected fallback for 429, got %#v", a)
	}
}

func TestSummarizeDisabledWithoutKey(t *testing.T) {
	c := New("", "", time.Second)
	a := c.Summarize(context.Background(), "reason", 2)
	if a.Risk != RiskUnknown {
		t.Fatalf("expected fallback when disabled, got %#v", a)
	}
}

func TestPolishStripsSurroundingQuotes(t *testing.T) {
	srv := chatServer(t, `"I kindly request leave for a family function."`)
	c := newTestClient(t, srv.URL)

	got := c.Polish(context.Background(), "going home for function")
	if got != "I kindly request leave for a family function." {
		t.Fatalf("unexpected polished text: %q", got)
	}
}

func TestPolishFallsBackToInput(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")

	raw := "going home for function"
	if got := c.Polish(context.Background(), raw); got != raw {
		t.Fatalf("expected input verbatim, got %q", got)
	}
}

func TestAnnotationEncodeDecode(t *testing.T) {
	a := Annotation{Summary: "short trip to market", Risk: RiskMedium}
	decoded, err := DecodeAnnotation(a.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if decoded != a {
		t.Fatalf("decode mismatch: %#v", decoded)
	}
}
