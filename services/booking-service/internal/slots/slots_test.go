package slots

import (
	"testing"
	"time"
)

func TestValidateAcceptsTodayFirstSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
	if err := Validate("2026-03-10", "08:00", now); err != nil {
		t.Fatalf("today + 08:00 should be accepted: %v", err)
	}
}

func TestValidateRejectsYesterday(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	if err := Validate("2026-03-09", "08:00", now); err != ErrDateInPast {
		t.Fatalf("expected ErrDateInPast, got %v", err)
	}
}

func TestValidateRejectsUnknownSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	for _, slot := range []string{"12:00", "08:15", "17:00", ""} {
		if err := Validate("2026-03-11", slot, now); err != ErrInvalidSlot {
			t.Fatalf("slot %q: expected ErrInvalidSlot, got %v", slot, err)
		}
	}
}

func TestValidateRejectsMalformedDate(t *testing.T) {
	now := time.Now()
	if err := Validate("10/03/2026", "08:00", now); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestListFiltersPastSlotsOfToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 45, 0, 0, time.Local)
	got, err := List("2026-03-10", now)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"14:00", "14:30", "15:00", "15:30", "16:00", "16:30"}
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestListFutureDayReturnsFullList(t *testing.T) {
	now := time.Date(2026, 3, 10, 13, 45, 0, 0, time.Local)
	got, err := List("2026-03-11", now)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(got))
	}
	if got[0] != "08:00" || got[len(got)-1] != "16:30" {
		t.Fatalf("unexpected boundaries: %v", got)
	}
}

func TestCombine(t *testing.T) {
	ts, err := Combine("2026-03-10", "08:30", time.UTC)
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}
	if ts.Hour() != 8 || ts.Minute() != 30 || ts.Day() != 10 {
		t.Fatalf("unexpected timestamp: %v", ts)
	}
}
