package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableTxError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock wrapped", fmt.Errorf("insert booking: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableTxError(tt.err))
		})
	}
}

func TestGetTxWithoutTransaction(t *testing.T) {
	assert.Nil(t, GetTx(context.Background()))
}

func TestIsUUID(t *testing.T) {
	assert.True(t, isUUID("6f1c2a7e-0b4d-4c1e-9a51-3d2f8e6b1a01"))
	assert.False(t, isUUID("zzz"))
	assert.False(t, isUUID(""))
}
