package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Oswi777/Portal-Fisioterapia/internal/models"
	"github.com/Oswi777/Portal-Fisioterapia/internal/repository"
)

func TestParseSlot(t *testing.T) {
	got, err := ParseSlot("2025-09-01T09:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	for _, raw := range []string{"", "2025-09-01 9:30am", "2025-09-01 09:30", "2025-09-01T09:30:00", "2025-13-01T09:30", "01/09/2025 09:30"} {
		if _, err := ParseSlot(raw); !errors.Is(err, ErrMalformedDateTime) {
			t.Fatalf("ParseSlot(%q) expected ErrMalformedDateTime, got %v", raw, err)
		}
	}
}

func TestBlockFor(t *testing.T) {
	block := BlockFor(time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC))
	if !block.Start.Equal(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected block start %s", block.Start)
	}
	if block.End.Sub(block.Start) != time.Hour {
		t.Fatalf("unexpected block length %s", block.End.Sub(block.Start))
	}
	if !block.Contains(block.Start) {
		t.Fatal("block must contain its start")
	}
	if block.Contains(block.End) {
		t.Fatal("block must not contain its end")
	}
}

func TestAdjacentBlocksDoNotOverlap(t *testing.T) {
	ten := BlockFor(time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC))
	nine := BlockFor(time.Date(2025, 9, 1, 9, 59, 59, 0, time.UTC))
	if ten.Start.Equal(nine.Start) {
		t.Fatal("10:00 and 09:59:59 must land in different blocks")
	}
	if ten.Overlaps(nine) {
		t.Fatal("adjacent blocks must not overlap")
	}
}

type fakeFinder struct {
	appts []models.Appointment
}

func (f fakeFinder) FirstInRange(_ context.Context, start, end time.Time) (models.Appointment, error) {
	for _, appt := range f.appts {
		if !appt.StartAt.Before(start) && appt.StartAt.Before(end) {
			return appt, nil
		}
	}
	return models.Appointment{}, repository.ErrAppointmentNotFound
}

func TestCheckerReportsConflictInSameBlock(t *testing.T) {
	existing := models.Appointment{ID: 1, ServiceID: 2, StartAt: time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC)}
	checker := NewChecker(fakeFinder{appts: []models.Appointment{existing}})

	got, err := checker.CheckRaw(context.Background(), "2025-09-01T09:45")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got.Available || got.Conflict == nil || got.Conflict.ID != 1 {
		t.Fatalf("expected conflict with appointment 1, got %+v", got)
	}

	got, err = checker.CheckRaw(context.Background(), "2025-09-01T10:00")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !got.Available || got.Conflict != nil {
		t.Fatalf("expected 10:00 block free, got %+v", got)
	}
}

func TestCheckerRejectsMalformedInput(t *testing.T) {
	checker := NewChecker(fakeFinder{})
	if _, err := checker.CheckRaw(context.Background(), "tomorrow"); !errors.Is(err, ErrMalformedDateTime) {
		t.Fatalf("expected ErrMalformedDateTime, got %v", err)
	}
}

type failingFinder struct{}

func (failingFinder) FirstInRange(context.Context, time.Time, time.Time) (models.Appointment, error) {
	return models.Appointment{}, errors.New("db down")
}

func TestCheckerPropagatesStoreErrors(t *testing.T) {
	if _, err := NewChecker(failingFinder{}).Check(context.Background(), time.Now()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
