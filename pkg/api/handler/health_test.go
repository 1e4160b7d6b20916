package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

type fakeChecker struct {
	health domain.Health
}

func (f fakeChecker) Check(ctx context.Context) domain.Health { return f.health }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     domain.Health
		wantStatus int
		wantBody   map[string]string
	}{
		{"online", domain.Online(), http.StatusOK, map[string]string{"status": "online"}},
		{"offline", domain.Offline(errors.New("connection refused")), http.StatusServiceUnavailable,
			map[string]string{"status": "offline", "error": "connection refused"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			NewHealth(fakeChecker{health: test.health}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != test.wantStatus {
				t.Errorf("expected status %d, got %d", test.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if len(body) != len(test.wantBody) || body["status"] != test.wantBody["status"] || body["error"] != test.wantBody["error"] {
				t.Errorf("expected %v, got %v", test.wantBody, body)
			}
		})
	}
}
