package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

func newTestServer() *Server {
	return NewServer(0, "test", logger.New(io.Discard, logger.LevelDebug, "test", nil))
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		rpcHealthy bool
		wantCode   int
		wantStatus string
	}{
		{"all_ok", true, http.StatusOK, "ok"},
		{"rpc_down", false, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.RegisterCheck("scanner", func(context.Context) (bool, string) { return true, "running" })
			s.RegisterCheck("chain_rpc", func(context.Context) (bool, string) { return tt.rpcHealthy, "eth_blockNumber" })

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var got Status
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Checks) != 2 {
				t.Errorf("checks = %d, want 2", len(got.Checks))
			}
		})
	}
}

func TestServer_ReadyAndLive(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("chain_rpc", func(context.Context) (bool, string) { return false, "" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live code = %d", rec.Code)
	}

	if names := s.Names(); len(names) != 1 || names[0] != "chain_rpc" {
		t.Errorf("names = %v", names)
	}
}
