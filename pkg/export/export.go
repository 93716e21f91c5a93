// Package export serializes a committed schedule to JSON or CSV for
// downstream reporting and archival.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/diaguru/core/model"
)

// Row is one scheduled chunk flattened with its owning capture, the shape
// written to both JSON and CSV.
type Row struct {
	CaptureID  string    `json:"capture_id"`
	OwnerID    string    `json:"owner_id"`
	Content    string    `json:"content"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Prime      bool      `json:"prime,omitempty"`
	Late       bool      `json:"late,omitempty"`
	Overlapped bool      `json:"overlapped,omitempty"`
}

// RowsFromCapture flattens a capture's committed chunks into export rows.
func RowsFromCapture(cap *model.Capture, chunks []model.Chunk) []Row {
	rows := make([]Row, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, Row{
			CaptureID:  cap.ID,
			OwnerID:    cap.OwnerID,
			Content:    cap.Content,
			Start:      c.Start,
			End:        c.End,
			Prime:      c.Prime,
			Late:       c.Late,
			Overlapped: c.Overlapped,
		})
	}
	return rows
}

// WriteJSON writes rows to w as a JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// WriteCSV writes rows to w as CSV with a header row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"capture_id", "owner_id", "content", "start", "end", "prime", "late", "overlapped"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.CaptureID,
			r.OwnerID,
			r.Content,
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339),
			strconv.FormatBool(r.Prime),
			strconv.FormatBool(r.Late),
			strconv.FormatBool(r.Overlapped),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
