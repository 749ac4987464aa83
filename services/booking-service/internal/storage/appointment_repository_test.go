package storage

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Fatal("bare pgx.ErrNoRows must report not found")
	}
	if !IsNotFound(fmt.Errorf("load laboratory: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped pgx.ErrNoRows must report not found")
	}
	if IsNotFound(fmt.Errorf("connection reset")) {
		t.Fatal("unrelated errors must not report not found")
	}
}
