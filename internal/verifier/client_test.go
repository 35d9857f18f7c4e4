package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerify_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/verify" {
			t.Fatalf("path = %s, want /api/verify", r.URL.Path)
		}

		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Signal != "alice" || req.Nullifier != "n1" || req.GroupID != "1" {
			t.Fatalf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(verifyResponse{Valid: true}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok, err := client.Verify(ctx, "root", "n1", "alice", "zk", "1")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("Verify = false, want true")
	}
}

func TestVerify_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(verifyResponse{Valid: false})
	}))
	defer ts.Close()

	ok, err := NewClient(ts.URL+"/").Verify(context.Background(), "root", "n1", "alice", "zk", "1")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("Verify = true, want false")
	}
}

func TestVerify_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Verify(context.Background(), "root", "n1", "alice", "zk", "1")
	if err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestVerify_NilClient(t *testing.T) {
	var c *Client
	if _, err := c.Verify(context.Background(), "", "", "", "", ""); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
