package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

func TestHTTPProvider_Call_JSONRPC20(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}

		if v, ok := req["jsonrpc"].(string); !ok || v != "2.0" {
			t.Errorf("expected jsonrpc: 2.0, got %v", req["jsonrpc"])
		}
		if req["method"] != "eth_blockNumber" {
			t.Errorf("unexpected method: %v", req["method"])
		}
		if params, ok := req["params"].([]any); !ok || len(params) != 0 {
			t.Errorf("expected empty params array, got %v", req["params"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"result":  "0x123",
			"id":      req["id"],
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second)

	result, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `"0x123"` {
		t.Errorf("unexpected result: %s", result)
	}
	if p.Monitor.GetStats().RequestCount != 1 {
		t.Errorf("expected 1 recorded request, got %d", p.Monitor.GetStats().RequestCount)
	}
}

func TestHTTPProvider_Call_MissingResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second)

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestHTTPProvider_Call_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second)

	_, err := p.Call(context.Background(), "eth_foo", nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("expected code -32601, got %d", rpcErr.Code)
	}
}

func TestHTTPProvider_Call_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second)

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if p.Monitor.GetStats().ThrottleCount429 != 1 {
		t.Errorf("expected one 429 recorded")
	}
}

func TestHTTPProvider_Call_Unreachable(t *testing.T) {
	p := NewHTTPProvider("dead", "http://127.0.0.1:1", time.Second)

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if p.GetHealth().LastFailureAt.IsZero() {
		t.Error("expected failure to be recorded")
	}
}

func TestMonitor_BlockedAfter403(t *testing.T) {
	m := NewProviderMonitor()
	m.RecordThrottle(http.StatusForbidden, "")

	if status := m.CheckProviderStatus(); status != StatusBlocked {
		t.Errorf("expected blocked, got %s", status)
	}
	if m.GetRetryAfter() <= 0 {
		t.Error("expected positive retry-after")
	}
}

func TestMonitor_DetectThrottlePattern(t *testing.T) {
	m := NewProviderMonitor()
	if !m.DetectThrottlePattern("Project Rate Limit reached") {
		t.Error("expected throttle pattern to match")
	}
	if m.DetectThrottlePattern("execution reverted") {
		t.Error("unexpected throttle match")
	}
}
