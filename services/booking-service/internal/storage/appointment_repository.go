package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/toxifacil/toxifacil/libs/db"
	"github.com/toxifacil/toxifacil/libs/outbox"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/model"
)

type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

// InsertAppointment writes exactly one appointment row and its scheduled
// event in a single transaction. On any error the transaction rolls back
// and no row exists; on success the row is visible to the next read.
func (r *AppointmentRepository) InsertAppointment(ctx context.Context, appt model.Appointment) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, client_id, exam_type, exam_title, price_centavos,
			laboratory_id, laboratory_name, address, neighborhood, city, state,
			scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, id, appt.ClientID, appt.ExamType, appt.ExamTitle, appt.PriceCentavos,
		appt.LaboratoryID, appt.LaboratoryName, appt.Address, appt.Neighborhood, appt.City, appt.State,
		appt.ScheduledAt, appt.Status)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id":  id,
		"client_id":       appt.ClientID,
		"client_email":    appt.ClientEmail,
		"exam_type":       appt.ExamType,
		"exam_title":      appt.ExamTitle,
		"price_centavos":  appt.PriceCentavos,
		"laboratory_name": appt.LaboratoryName,
		"address":         appt.Address,
		"city":            appt.City,
		"state":           appt.State,
		"scheduled_at":    appt.ScheduledAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     "booking.appointment.scheduled.v1",
		Payload:       payload,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// ListByClient returns the caller's appointments, newest scheduled first.
func (r *AppointmentRepository) ListByClient(ctx context.Context, clientID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, exam_type, exam_title, price_centavos,
			laboratory_id, laboratory_name, address, neighborhood, city, state,
			scheduled_at, status, created_at
		FROM appointments
		WHERE client_id = $1
		ORDER BY scheduled_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID,
			&a.ClientID,
			&a.ExamType,
			&a.ExamTitle,
			&a.PriceCentavos,
			&a.LaboratoryID,
			&a.LaboratoryName,
			&a.Address,
			&a.Neighborhood,
			&a.City,
			&a.State,
			&a.ScheduledAt,
			&a.Status,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
