package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/diaguru/core/metrics"
)

func TestInfluxSink_RecordCommit(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.CommitEvent{
		CaptureID: "cap1",
		OwnerID:   "owner1",
		Mode:      "flexible",
		Late:      false,
		Overlap:   true,
		Chunks:    2,
		Minutes:   90,
		Time:      now,
	}
	if err := sink.RecordCommit(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("schedule_commit").
		AddTag("capture_id", "cap1").
		AddTag("owner_id", "owner1").
		AddTag("mode", "flexible").
		AddTag("late", "false").
		AddTag("overlap", "true").
		AddField("chunks", 2).
		AddField("minutes", 90).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestInfluxSink_RecordConflict(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.ConflictEvent{CaptureID: "cap1", OwnerID: "owner1", Reason: "no_slot", Time: now}
	if err := sink.RecordConflict(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("schedule_conflict").
		AddTag("capture_id", "cap1").
		AddTag("owner_id", "owner1").
		AddTag("reason", "no_slot").
		AddField("count", 1).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != exp {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordPreemption(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(b)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.PreemptionEvent{
		TargetCaptureID:  "cap1",
		OwnerID:          "owner1",
		DisplacedCount:   2,
		DisplacedMinutes: 45,
		NetGain:          12.5,
		Time:             now,
	}
	if err := sink.RecordPreemption(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("schedule_preemption").
		AddTag("target_capture_id", "cap1").
		AddTag("owner_id", "owner1").
		AddField("displaced_count", 2).
		AddField("displaced_minutes", 45).
		AddField("net_gain", 12.5).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != exp {
		t.Errorf("bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordOverlap(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(b)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.OverlapEvent{
		OwnerID:     "owner1",
		CaptureIDs:  []string{"cap1", "cap2"},
		PrimeID:     "cap1",
		SlotMinutes: 30,
		DailyUsed:   60,
		Time:        now,
	}
	if err := sink.RecordOverlap(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("schedule_overlap").
		AddTag("owner_id", "owner1").
		AddTag("prime_id", "cap1").
		AddField("captures", 2).
		AddField("slot_minutes", 30).
		AddField("daily_used", 60).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != exp {
		t.Errorf("bodies: %#v", bodies)
	}
}
