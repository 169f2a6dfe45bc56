package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslatePostgresError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       error
		constraint string
	}{
		{
			name:       "unique violation",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "services_pkey"},
			want:       ErrUniqueViolation,
			constraint: "services_pkey",
		},
		{
			name:       "foreign key violation",
			err:        &pgconn.PgError{Code: "23503", ConstraintName: "service_requests_service_id_fkey"},
			want:       ErrForeignKeyViolation,
			constraint: "service_requests_service_id_fkey",
		},
		{
			name:       "wrapped unique violation",
			err:        fmt.Errorf("insert payment method: %w", &pgconn.PgError{Code: "23505", ConstraintName: "payment_methods_service_id_type_key"}),
			want:       ErrUniqueViolation,
			constraint: "payment_methods_service_id_type_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translatePostgresError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), tt.constraint)
		})
	}
}

func TestTranslatePostgresErrorPassesOthersThrough(t *testing.T) {
	checkViolation := &pgconn.PgError{Code: "23514", ConstraintName: "services_price_check"}
	assert.Same(t, checkViolation, translatePostgresError(checkViolation))

	assert.ErrorIs(t, translatePostgresError(pgx.ErrNoRows), pgx.ErrNoRows)

	plain := errors.New("connection reset by peer")
	got := translatePostgresError(plain)
	assert.Equal(t, plain, got)
	assert.False(t, errors.Is(got, ErrUniqueViolation))
}
