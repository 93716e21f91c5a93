package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/diaguru/core/metrics"
	"github.com/kilianp07/diaguru/infra/logger"
)

// InfluxSink writes scheduling events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCommit writes a commit point.
func (s *InfluxSink) RecordCommit(ev coremetrics.CommitEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_commit").
		AddTag("capture_id", ev.CaptureID).
		AddTag("owner_id", ev.OwnerID).
		AddTag("mode", ev.Mode).
		AddTag("late", strconv.FormatBool(ev.Late)).
		AddTag("overlap", strconv.FormatBool(ev.Overlap)).
		AddField("chunks", ev.Chunks).
		AddField("minutes", ev.Minutes).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordConflict writes a conflict point.
func (s *InfluxSink) RecordConflict(ev coremetrics.ConflictEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_conflict").
		AddTag("capture_id", ev.CaptureID).
		AddTag("owner_id", ev.OwnerID).
		AddTag("reason", ev.Reason).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPreemption writes a preemption point.
func (s *InfluxSink) RecordPreemption(ev coremetrics.PreemptionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_preemption").
		AddTag("target_capture_id", ev.TargetCaptureID).
		AddTag("owner_id", ev.OwnerID).
		AddField("displaced_count", ev.DisplacedCount).
		AddField("displaced_minutes", ev.DisplacedMinutes).
		AddField("net_gain", round3(ev.NetGain)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOverlap writes an overlap admission point.
func (s *InfluxSink) RecordOverlap(ev coremetrics.OverlapEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_overlap").
		AddTag("owner_id", ev.OwnerID).
		AddTag("prime_id", ev.PrimeID).
		AddField("captures", len(ev.CaptureIDs)).
		AddField("slot_minutes", ev.SlotMinutes).
		AddField("daily_used", ev.DailyUsed).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
