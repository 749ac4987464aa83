// Package labs is the laboratory directory queried by state and city.
package labs

import (
	"context"

	"github.com/toxifacil/toxifacil/libs/db"
)

type Laboratory struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Phone        string  `json:"phone"`
	Hours        string  `json:"hours"`
	DistanceKM   float64 `json:"distance_km"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Search lists laboratories for one city, nearest first. Distance is
// informational only; no geo math happens here.
func (r *Repository) Search(ctx context.Context, state, city string) ([]Laboratory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, address, neighborhood, city, state, phone, hours, distance_km
		FROM laboratories
		WHERE state = $1 AND lower(city) = lower($2)
		ORDER BY distance_km ASC
	`, state, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labs []Laboratory
	for rows.Next() {
		var lab Laboratory
		if err := rows.Scan(
			&lab.ID,
			&lab.Name,
			&lab.Address,
			&lab.Neighborhood,
			&lab.City,
			&lab.State,
			&lab.Phone,
			&lab.Hours,
			&lab.DistanceKM,
		); err != nil {
			return nil, err
		}
		labs = append(labs, lab)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return labs, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Laboratory, error) {
	var lab Laboratory
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, address, neighborhood, city, state, phone, hours, distance_km
		FROM laboratories
		WHERE id = $1
	`, id).Scan(
		&lab.ID,
		&lab.Name,
		&lab.Address,
		&lab.Neighborhood,
		&lab.City,
		&lab.State,
		&lab.Phone,
		&lab.Hours,
		&lab.DistanceKM,
	)
	if err != nil {
		return Laboratory{}, err
	}
	return lab, nil
}
