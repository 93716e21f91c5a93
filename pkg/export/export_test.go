package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

func TestWriteJSON(t *testing.T) {
	cap := &model.Capture{ID: "c1", OwnerID: "o1", Content: "write report"}
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := RowsFromCapture(cap, []model.Chunk{{Start: start, End: start.Add(30 * time.Minute), Prime: true}})

	var buf bytes.Buffer
	if err := WriteJSON(&buf, rows); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.Contains(buf.String(), `"capture_id":"c1"`) {
		t.Fatalf("missing capture_id in output: %s", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	cap := &model.Capture{ID: "c1", OwnerID: "o1", Content: "write report"}
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := RowsFromCapture(cap, []model.Chunk{{Start: start, End: start.Add(30 * time.Minute), Late: true}})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "c1") || !strings.Contains(lines[1], "true") {
		t.Fatalf("unexpected row: %s", lines[1])
	}
}
