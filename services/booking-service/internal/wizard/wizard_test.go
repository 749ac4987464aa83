package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/toxifacil/toxifacil/services/booking-service/internal/model"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/slots"
)

var testIdent = Identity{ID: "client-1", Email: "ana@example.com"}

var testLab = Laboratory{
	ID:           "1",
	Name:         "Laboratório Central",
	Address:      "Av. Principal, 123",
	Neighborhood: "Centro",
	City:         "São Paulo",
	State:        "SP",
}

type fakeStore struct {
	err      error
	inserted []model.Appointment
}

func (s *fakeStore) InsertAppointment(_ context.Context, appt model.Appointment) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	appt.ID = "appt-1"
	s.inserted = append(s.inserted, appt)
	return appt.ID, nil
}

func completedSelection(t *testing.T, now time.Time) *Wizard {
	t.Helper()
	w := New(testLab)
	if err := w.SelectExam("cnh"); err != nil {
		t.Fatalf("SelectExam failed: %v", err)
	}
	date := now.AddDate(0, 0, 1).Format("2006-01-02")
	if err := w.SelectSlot(date, "08:00", now); err != nil {
		t.Fatalf("SelectSlot failed: %v", err)
	}
	return w
}

func TestHappyPathCommits(t *testing.T) {
	now := time.Now()
	w := completedSelection(t, now)
	store := &fakeStore{}

	appt, err := w.Submit(context.Background(), testIdent, store, now)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if w.State() != StateCommitted {
		t.Fatalf("expected committed state, got %s", w.State())
	}
	if appt.ID == "" || appt.Status != model.StatusScheduled {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if appt.LaboratoryName != testLab.Name || appt.City != testLab.City {
		t.Fatalf("laboratory snapshot not denormalized: %+v", appt)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(store.inserted))
	}
}

func TestSelectExamRejectsUnknownEntry(t *testing.T) {
	w := New(testLab)
	if err := w.SelectExam("ressonancia"); err != ErrUnknownExam {
		t.Fatalf("expected ErrUnknownExam, got %v", err)
	}
	if w.State() != StateSelectExam {
		t.Fatalf("state should not advance, got %s", w.State())
	}
}

func TestSelectSlotAcceptsTodayEarlySlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
	w := New(testLab)
	if err := w.SelectExam("cnh"); err != nil {
		t.Fatalf("SelectExam failed: %v", err)
	}
	if err := w.SelectSlot("2026-03-10", "08:00", now); err != nil {
		t.Fatalf("today + 08:00 should pass the past-day guard: %v", err)
	}
}

func TestSelectSlotRejectsYesterday(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	w := New(testLab)
	if err := w.SelectExam("cnh"); err != nil {
		t.Fatalf("SelectExam failed: %v", err)
	}
	if err := w.SelectSlot("2026-03-09", "08:00", now); err != slots.ErrDateInPast {
		t.Fatalf("expected ErrDateInPast, got %v", err)
	}
	if w.State() != StateSelectSlot {
		t.Fatalf("state should not advance, got %s", w.State())
	}
}

func TestCannotSubmitOutOfOrder(t *testing.T) {
	now := time.Now()
	store := &fakeStore{}

	w := New(testLab)
	if _, err := w.Submit(context.Background(), testIdent, store, now); err != ErrWrongState {
		t.Fatalf("submit at select_exam: expected ErrWrongState, got %v", err)
	}

	if err := w.SelectExam("cnh"); err != nil {
		t.Fatalf("SelectExam failed: %v", err)
	}
	if _, err := w.Submit(context.Background(), testIdent, store, now); err != ErrWrongState {
		t.Fatalf("submit at select_slot: expected ErrWrongState, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("no insert may happen before the identity step")
	}
}

func TestSubmitWithoutIdentitySuspends(t *testing.T) {
	now := time.Now()
	w := completedSelection(t, now)

	if _, err := w.Submit(context.Background(), Identity{}, &fakeStore{}, now); err != ErrIdentityRequired {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}

	cont, err := w.Suspend()
	if err != nil {
		t.Fatalf("Suspend failed: %v", err)
	}
	if cont.Step != StateConfirmIdentity || cont.ExamID != "cnh" || cont.Time != "08:00" {
		t.Fatalf("continuation lost selections: %+v", cont)
	}

	resumed, err := Resume(cont, now)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.State() != StateConfirmIdentity {
		t.Fatalf("expected resume at confirm_identity, got %s", resumed.State())
	}

	store := &fakeStore{}
	if _, err := resumed.Submit(context.Background(), testIdent, store, now); err != nil {
		t.Fatalf("submit after resume failed: %v", err)
	}
}

func TestResumeRerunsGuards(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	cont := Continuation{
		Step:       StateConfirmIdentity,
		ExamID:     "cnh",
		Date:       "2026-03-09",
		Time:       "08:00",
		Laboratory: testLab,
	}
	if _, err := Resume(cont, now); err != slots.ErrDateInPast {
		t.Fatalf("stale continuation must fail the date guard, got %v", err)
	}
}

func TestFailedInsertEntersFailedAndAllowsRetry(t *testing.T) {
	now := time.Now()
	w := completedSelection(t, now)
	store := &fakeStore{err: errors.New("connection reset")}

	_, err := w.Submit(context.Background(), testIdent, store, now)
	if err == nil {
		t.Fatal("expected submit to fail")
	}
	if w.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", w.State())
	}
	if w.LastError() == "" {
		t.Fatal("expected a user-visible error message")
	}
	if len(store.inserted) != 0 {
		t.Fatal("failed insert must leave no row")
	}

	// Retry after the failure succeeds.
	store.err = nil
	if _, err := w.Submit(context.Background(), testIdent, store, now); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if w.State() != StateCommitted {
		t.Fatalf("expected committed after retry, got %s", w.State())
	}
}

func TestSessionExpiryIsPrivileged(t *testing.T) {
	now := time.Now()
	w := completedSelection(t, now)
	store := &fakeStore{err: ErrSessionExpired}

	_, err := w.Submit(context.Background(), testIdent, store, now)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if w.State() != StateConfirmIdentity {
		t.Fatalf("expected revert to confirm_identity, got %s", w.State())
	}
	if w.LastError() != ErrSessionExpired.Error() {
		t.Fatalf("expected the session-expiry reason, got %q", w.LastError())
	}
}
