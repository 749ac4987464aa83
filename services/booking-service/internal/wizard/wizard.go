// Package wizard drives the linear booking flow: pick an exam, pick a
// date and time, confirm who is booking, then commit one appointment row.
// Every transition is guarded, so the submit step can only be reached with
// a complete selection.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/toxifacil/toxifacil/services/booking-service/internal/catalog"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/model"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/slots"
)

type State string

const (
	StateSelectExam      State = "select_exam"
	StateSelectSlot      State = "select_slot"
	StateConfirmIdentity State = "confirm_identity"
	StateSubmitting      State = "submitting"
	StateCommitted       State = "committed"
	StateFailed          State = "failed"
)

var (
	ErrWrongState       = errors.New("operation not allowed in current state")
	ErrUnknownExam      = errors.New("exam is not in the catalog")
	ErrIdentityRequired = errors.New("sign-in required before booking")

	// ErrSessionExpired is the privileged store failure: the caller must
	// force a sign-out and redirect to sign-in with the reason attached.
	ErrSessionExpired = errors.New("sua sessão expirou, entre novamente para concluir o agendamento")
)

// Laboratory is the snapshot denormalized into the appointment at commit
// time.
type Laboratory struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Identity is the resolved signed-in user. Email rides along so the
// scheduled event can name its recipient.
type Identity struct {
	ID    string
	Email string
}

// Store is the write side the wizard commits through. InsertAppointment is
// all-or-nothing: on error no row may be visible.
type Store interface {
	InsertAppointment(ctx context.Context, appt model.Appointment) (string, error)
}

// Continuation captures a suspended wizard so the sign-in round trip can
// resume at the identity step with every prior selection intact.
type Continuation struct {
	Step       State      `json:"step"`
	ExamID     string     `json:"exam_id"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	Laboratory Laboratory `json:"laboratory"`
}

type Wizard struct {
	state   State
	exam    catalog.Exam
	date    string
	slot    string
	lab     Laboratory
	lastErr string
}

// New starts a wizard for one laboratory. The laboratory is chosen before
// the flow begins, mirroring how the search page hands off to the steps.
func New(lab Laboratory) *Wizard {
	return &Wizard{state: StateSelectExam, lab: lab}
}

func (w *Wizard) State() State { return w.state }

// LastError is the message shown after a failed submission.
func (w *Wizard) LastError() string { return w.lastErr }

// SelectExam advances past the first step. The selection must name a
// catalog entry.
func (w *Wizard) SelectExam(examID string) error {
	if w.state != StateSelectExam {
		return ErrWrongState
	}
	exam, ok := catalog.Lookup(examID)
	if !ok {
		return ErrUnknownExam
	}
	w.exam = exam
	w.state = StateSelectSlot
	return nil
}

// SelectSlot advances past the second step. The date must not be before
// the current calendar day and the time must be one of the offered slots.
func (w *Wizard) SelectSlot(date, slot string, now time.Time) error {
	if w.state != StateSelectSlot {
		return ErrWrongState
	}
	if err := slots.Validate(date, slot, now); err != nil {
		return err
	}
	w.date = date
	w.slot = slot
	w.state = StateConfirmIdentity
	return nil
}

// Suspend captures the wizard for the sign-in detour. Only meaningful at
// the identity step, where the missing piece is the signed-in user.
func (w *Wizard) Suspend() (Continuation, error) {
	if w.state != StateConfirmIdentity {
		return Continuation{}, ErrWrongState
	}
	return Continuation{
		Step:       StateConfirmIdentity,
		ExamID:     w.exam.ID,
		Date:       w.date,
		Time:       w.slot,
		Laboratory: w.lab,
	}, nil
}

// Resume rebuilds a wizard from a continuation, re-running the step guards
// so a tampered or stale continuation cannot skip validation.
func Resume(c Continuation, now time.Time) (*Wizard, error) {
	if c.Step != StateConfirmIdentity {
		return nil, fmt.Errorf("cannot resume at step %q", c.Step)
	}
	w := New(c.Laboratory)
	if err := w.SelectExam(c.ExamID); err != nil {
		return nil, err
	}
	if err := w.SelectSlot(c.Date, c.Time, now); err != nil {
		return nil, err
	}
	return w, nil
}

// Submit performs the atomic commit. An unresolved identity means the
// caller must suspend and go through sign-in instead. On store failure the
// wizard enters Failed, from where Submit may be retried; no partial
// appointment exists. Session expiry instead drops back to the identity
// step, since the missing piece is the sign-in.
func (w *Wizard) Submit(ctx context.Context, ident Identity, store Store, now time.Time) (model.Appointment, error) {
	if w.state != StateConfirmIdentity && w.state != StateFailed {
		return model.Appointment{}, ErrWrongState
	}
	if ident.ID == "" {
		return model.Appointment{}, ErrIdentityRequired
	}

	scheduledAt, err := slots.Combine(w.date, w.slot, now.Location())
	if err != nil {
		return model.Appointment{}, err
	}

	w.state = StateSubmitting
	appt := model.Appointment{
		ClientID:       ident.ID,
		ClientEmail:    ident.Email,
		ExamType:       w.exam.ID,
		ExamTitle:      w.exam.Title,
		PriceCentavos:  w.exam.PriceCentavos,
		LaboratoryID:   w.lab.ID,
		LaboratoryName: w.lab.Name,
		Address:        w.lab.Address,
		Neighborhood:   w.lab.Neighborhood,
		City:           w.lab.City,
		State:          w.lab.State,
		ScheduledAt:    scheduledAt,
		Status:         model.StatusScheduled,
	}

	id, err := store.InsertAppointment(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			w.state = StateConfirmIdentity
			w.lastErr = ErrSessionExpired.Error()
			return model.Appointment{}, ErrSessionExpired
		}
		w.state = StateFailed
		w.lastErr = "não foi possível concluir o agendamento"
		return model.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}

	appt.ID = id
	w.state = StateCommitted
	w.lastErr = ""
	return appt, nil
}
