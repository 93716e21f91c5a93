package events

// OverlapEvent is published when two or more owned captures are admitted to
// the same wall-time slot.
type OverlapEvent struct {
	OwnerID     string
	CaptureIDs  []string
	PrimeID     string
	SlotMinutes int
}
