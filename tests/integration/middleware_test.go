//go:build integration

package integration

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

// The storefront sends credentials in custom headers (token, api_key) and
// email re-verification via X-Verify-Email, so the preflight for an order
// checkout must allow all of them or the browser never sends the request.
func TestCORS_CheckoutPreflight(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, baseURL+"/api/orders", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Origin", "http://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type, token")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if methods := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q, want POST allowed", methods)
	}

	allowed := resp.Header.Get("Access-Control-Allow-Headers")
	for _, h := range []string{"token", "api_key", "X-Verify-Email"} {
		if !strings.Contains(allowed, h) {
			t.Errorf("Access-Control-Allow-Headers = %q, missing %q", allowed, h)
		}
	}
	if resp.Header.Get("Access-Control-Max-Age") == "" {
		t.Error("preflight not cacheable: Access-Control-Max-Age not present")
	}
}

func TestCORS_CatalogRequest(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+"/api/products", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Origin", "http://shop.example.com")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
}

// Authenticated cart reads count against the same per-client budget as
// anonymous catalog reads, and the remaining budget drops with each call.
func TestRateLimit_CartRequestsCounted(t *testing.T) {
	first := doGetWithAuth(t, "/api/cart", customerKey)
	defer first.Body.Close()

	limit := first.Header.Get("X-RateLimit-Limit")
	if limit == "" {
		t.Fatal("X-RateLimit-Limit header not present")
	}
	r1, err := strconv.Atoi(first.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		t.Fatalf("X-RateLimit-Remaining not an integer: %v", err)
	}

	second := doGetWithAuth(t, "/api/cart", customerKey)
	defer second.Body.Close()

	r2, err := strconv.Atoi(second.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		t.Fatalf("X-RateLimit-Remaining not an integer: %v", err)
	}
	if r2 >= r1 {
		t.Errorf("remaining budget did not drop: %d then %d", r1, r2)
	}
}

func TestRequestID_PropagatedToErrorResponses(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+"/api/products/no-such-product", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("X-Request-ID", "order-support-ticket-4711")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "order-support-ticket-4711" {
		t.Errorf("X-Request-ID: got %q, want %q", got, "order-support-ticket-4711")
	}
}

func TestRequestID_AssignedWhenAbsent(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header not present")
	}
}
