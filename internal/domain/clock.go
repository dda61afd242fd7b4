package domain

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for event timestamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// NewDatasetEvent stamps a dataset change with a fresh ID and the current UTC time.
func NewDatasetEvent(kind Kind, source string, rows int) DatasetEvent {
	return DatasetEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Source:     source,
		Rows:       rows,
		OccurredAt: clock.Now().UTC(),
	}
}
