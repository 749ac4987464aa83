package storage

import (
	"context"

	"github.com/toxifacil/toxifacil/libs/db"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/model"
)

// ResultRepository reads exam results uploaded by the laboratories. This
// service has no write path into the table.
type ResultRepository struct {
	pool *db.Pool
}

func NewResultRepository(pool *db.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func (r *ResultRepository) ListByClient(ctx context.Context, clientID string) ([]model.ExamResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, exam_type, date, status,
			COALESCE(outcome, ''), laboratory_name, COALESCE(document_url, '')
		FROM exam_results
		WHERE client_id = $1
		ORDER BY date DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var res model.ExamResult
		if err := rows.Scan(
			&res.ID,
			&res.ClientID,
			&res.ExamType,
			&res.Date,
			&res.Status,
			&res.Outcome,
			&res.LaboratoryName,
			&res.DocumentURL,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return results, nil
}
