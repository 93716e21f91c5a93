package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreadvisor "github.com/kilianp07/diaguru/core/advisor"
	"github.com/kilianp07/diaguru/core/model"
)

func TestHTTPClientAdvise(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/advise" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req adviseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.TargetContent != "write report" {
			t.Errorf("unexpected target content %q", req.TargetContent)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(adviseResponse{
			Action:  string(coreadvisor.ActionSuggestSlot),
			Message: "next open slot suggested",
		})
	}))
	defer ts.Close()

	client := NewHTTPClient(Config{BaseURL: ts.URL})
	now := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	decision, err := client.Advise(context.Background(), coreadvisor.Context{
		Target:       &model.Capture{Content: "write report"},
		ReferenceNow: now,
	})
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if decision.Action != coreadvisor.ActionSuggestSlot {
		t.Fatalf("unexpected action %q", decision.Action)
	}
	if decision.Message != "next open slot suggested" {
		t.Fatalf("unexpected message %q", decision.Message)
	}
}

func TestHTTPClientAdviseErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewHTTPClient(Config{BaseURL: ts.URL})
	if _, err := client.Advise(context.Background(), coreadvisor.Context{}); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}
