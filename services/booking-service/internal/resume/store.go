// Package resume persists suspended wizard continuations across the
// sign-in round trip. Tokens are single-use and expire on their own.
package resume

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/wizard"
)

var ErrNotFound = errors.New("resume token unknown or expired")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Suspend stores the continuation and returns the opaque token the client
// carries through sign-in.
func (s *Store) Suspend(ctx context.Context, cont wizard.Continuation) (string, error) {
	raw, err := json.Marshal(cont)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, key(token), raw, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resume consumes the token. GETDEL makes it single-use: a second resume
// with the same token reports not found.
func (s *Store) Resume(ctx context.Context, token string) (wizard.Continuation, error) {
	raw, err := s.rdb.GetDel(ctx, key(token)).Bytes()
	if err == redis.Nil {
		return wizard.Continuation{}, ErrNotFound
	}
	if err != nil {
		return wizard.Continuation{}, err
	}
	var cont wizard.Continuation
	if err := json.Unmarshal(raw, &cont); err != nil {
		return wizard.Continuation{}, err
	}
	return cont, nil
}

func key(token string) string {
	return "booking:resume:" + token
}
