package booking

import (
	"errors"
	"strings"
	"time"
)

// SlotLayout is the wire format of a requested start, e.g. 2025-09-01T09:30.
const SlotLayout = "2006-01-02T15:04"

const BlockLength = time.Hour

var ErrMalformedDateTime = errors.New("malformed datetime")

// ParseSlot accepts exactly YYYY-MM-DDTHH:MM and returns the time in UTC.
func ParseSlot(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(SlotLayout) {
		return time.Time{}, ErrMalformedDateTime
	}
	t, err := time.Parse(SlotLayout, raw)
	if err != nil {
		return time.Time{}, ErrMalformedDateTime
	}
	return t, nil
}

// Block is the half-open hour [Start, End) that a requested start falls into.
type Block struct {
	Start time.Time
	End   time.Time
}

func BlockFor(t time.Time) Block {
	start := t.UTC().Truncate(BlockLength)
	return Block{Start: start, End: start.Add(BlockLength)}
}

func (b Block) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Overlaps reports whether two half-open blocks share any instant.
func (b Block) Overlaps(other Block) bool {
	return b.Start.Before(other.End) && other.Start.Before(b.End)
}
