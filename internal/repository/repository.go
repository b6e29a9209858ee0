package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownRole is returned when a role string does not map to one of the
// three person tables.
var ErrUnknownRole = errors.New("unknown role")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) exists(ctx context.Context, query string, args ...interface{}) bool {
	var exists bool
	_ = s.pool.QueryRow(ctx, `SELECT EXISTS (`+query+`)`, args...).Scan(&exists)
	return exists
}
