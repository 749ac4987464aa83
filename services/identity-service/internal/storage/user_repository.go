package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/toxifacil/toxifacil/libs/db"
)

// User is the persisted account row. Laboratory-only columns are empty
// strings for client accounts.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	UserType     string
	FullName     string
	Phone        string
	Document     string // CPF or CNPJ digits depending on UserType
	CompanyName  string
	Address      string
	City         string
	State        string
	ConfirmedAt  *time.Time
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User, confirmationToken string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users
			(id, email, password_hash, user_type, full_name, phone, document,
			company_name, address, city, state, confirmation_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Email, user.PasswordHash, user.UserType, user.FullName, user.Phone,
		user.Document, user.CompanyName, user.Address, user.City, user.State, confirmationToken)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// ConfirmByToken marks the account confirmed and returns its id. Unknown
// or already-used tokens report not found.
func (r *UserRepository) ConfirmByToken(ctx context.Context, token string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET confirmed_at = now(),
			confirmation_token = NULL
		WHERE confirmation_token = $1 AND confirmed_at IS NULL
		RETURNING id
	`, token).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1
	`, userID, passwordHash)
	return err
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, user_type,
			COALESCE(full_name, ''), COALESCE(phone, ''), COALESCE(document, ''),
			COALESCE(company_name, ''), COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''),
			confirmed_at
		FROM users
	`+where, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.UserType,
		&user.FullName,
		&user.Phone,
		&user.Document,
		&user.CompanyName,
		&user.Address,
		&user.City,
		&user.State,
		&user.ConfirmedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
