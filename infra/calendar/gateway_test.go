package calendar

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/diaguru/core/calendar"
	"github.com/kilianp07/diaguru/core/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *MockServer) {
	t.Helper()
	srv := NewMockServerWithRegistry("", prometheus.NewRegistry())
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, srv
}

func TestHTTPGatewayCreateListGetDelete(t *testing.T) {
	ts, _ := newTestServer(t)
	gw := NewHTTPGateway(Config{BaseURL: ts.URL})

	start := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	created, err := gw.Create(context.Background(), "owner-1", model.CalendarEvent{
		Summary: "[DG] deep work",
		Start:   start,
		End:     start.Add(time.Hour),
		Properties: map[string]string{
			model.DiaGuruPropertyKey: "true",
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.VersionTag == "" {
		t.Fatalf("expected provider-assigned id and version tag, got %+v", created)
	}

	fetched, err := gw.Get(context.Background(), "owner-1", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Summary != created.Summary {
		t.Fatalf("summary mismatch: %q vs %q", fetched.Summary, created.Summary)
	}

	listed, err := gw.List(context.Background(), "owner-1", start.Add(-time.Hour), start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 event, got %d", len(listed))
	}

	if err := gw.Delete(context.Background(), "owner-1", created.ID, "wrong-tag"); err == nil {
		t.Fatalf("expected precondition failure with stale version tag")
	} else {
		var pf *calendar.PreconditionFailedError
		if !asPrecondition(err, &pf) {
			t.Fatalf("expected PreconditionFailedError, got %T: %v", err, err)
		}
	}

	if err := gw.Delete(context.Background(), "owner-1", created.ID, created.VersionTag); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := gw.Get(context.Background(), "owner-1", created.ID); err == nil {
		t.Fatalf("expected not-found after delete")
	}
}

func asPrecondition(err error, target **calendar.PreconditionFailedError) bool {
	pf, ok := err.(*calendar.PreconditionFailedError)
	if !ok {
		return false
	}
	*target = pf
	return true
}
