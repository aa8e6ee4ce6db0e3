package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
	healthy := pingFunc(func(context.Context) error { return nil })
	failing := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name             string
		checks           map[string]Pinger
		database         bool
		expectedStatus   int
		expectedHealth   string
		expectedDatabase string
		expectedRedis    string
	}{
		{
			name:             "no dependencies",
			expectedStatus:   http.StatusOK,
			expectedHealth:   "healthy",
			expectedDatabase: "disabled",
		},
		{
			name:             "all healthy",
			checks:           map[string]Pinger{"database": healthy, "redis": healthy},
			database:         true,
			expectedStatus:   http.StatusOK,
			expectedHealth:   "healthy",
			expectedDatabase: "enabled",
			expectedRedis:    "healthy",
		},
		{
			name:             "unhealthy redis",
			checks:           map[string]Pinger{"database": healthy, "redis": failing},
			database:         true,
			expectedStatus:   http.StatusServiceUnavailable,
			expectedHealth:   "degraded",
			expectedDatabase: "enabled",
			expectedRedis:    "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.checks, tt.database, logger)

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
			}

			var response HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("Expected status '%s', got '%s'", tt.expectedHealth, response.Status)
			}
			if response.Version != Version {
				t.Errorf("Expected version '%s', got '%s'", Version, response.Version)
			}
			if response.Database != tt.expectedDatabase {
				t.Errorf("Expected database '%s', got '%s'", tt.expectedDatabase, response.Database)
			}
			if response.Components["redis"] != tt.expectedRedis {
				t.Errorf("Expected redis component '%s', got '%s'", tt.expectedRedis, response.Components["redis"])
			}
			if response.Timestamp.IsZero() {
				t.Error("Expected timestamp to be set")
			}
		})
	}
}
