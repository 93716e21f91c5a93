package model

import "time"

// Chunk is one ordered segment of a committed placement.
type Chunk struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Prime      bool      `json:"prime,omitempty"`
	Late       bool      `json:"late,omitempty"`
	Overlapped bool      `json:"overlapped,omitempty"`
}

// TotalMinutes sums the duration of all chunks.
func TotalMinutes(chunks []Chunk) int {
	total := 0
	for _, c := range chunks {
		total += int(c.End.Sub(c.Start).Minutes())
	}
	return total
}
