package storage

import (
	"context"

	"github.com/toxifacil/toxifacil/libs/db"
)

// Delivery is the audit row for every send attempt, fire-and-forget or
// event-driven alike.
type Delivery struct {
	Kind          string // contact | confirmation | password_reset | booking
	Recipient     string
	Subject       string
	Status        string // sent | failed
	FailureReason string
}

type DeliveryRepository struct {
	pool *db.Pool
}

func NewDeliveryRepository(pool *db.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

func (r *DeliveryRepository) Insert(ctx context.Context, d Delivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO mail_deliveries (kind, recipient, subject, status, failure_reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, d.Kind, d.Recipient, d.Subject, d.Status, d.FailureReason)
	return err
}
