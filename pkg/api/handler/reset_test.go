package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeCleaner struct {
	cleared []string
}

func (f *fakeCleaner) ClearChatHistory(ctx context.Context, sessionID string) {
	f.cleared = append(f.cleared, sessionID)
}

func TestReset(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantCleared []string
	}{
		{"empty body", "", http.StatusOK, []string{""}},
		{"session id", `{"session_id":"abc"}`, http.StatusOK, []string{"abc"}},
		{"malformed", `{"session_id":`, http.StatusBadRequest, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cleaner := &fakeCleaner{}
			rec := httptest.NewRecorder()

			NewReset(cleaner).Reset(rec, httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(test.body)))

			if rec.Code != test.wantStatus {
				t.Errorf("expected status %d, got %d", test.wantStatus, rec.Code)
			}
			if len(cleaner.cleared) != len(test.wantCleared) || (len(cleaner.cleared) == 1 && cleaner.cleared[0] != test.wantCleared[0]) {
				t.Errorf("expected cleared %v, got %v", test.wantCleared, cleaner.cleared)
			}
			if test.wantStatus == http.StatusOK && strings.TrimSpace(rec.Body.String()) != `{"status":"Chat history cleared"}` {
				t.Errorf("unexpected body %q", rec.Body.String())
			}
		})
	}
}
