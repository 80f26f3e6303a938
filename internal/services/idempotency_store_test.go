package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ruralpay/pointsledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginMockTx(t *testing.T) (*sql.Tx, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return tx, mock
}

func TestIdempotencyStore_TryBeginNullBodies(t *testing.T) {
	store := NewIdempotencyStore(24 * time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name         string
		hash         string
		status       models.IdempotencyStatus
		responseBody any
		errorBody    any
		wantErr      error
		wantResponse string
		wantError    string
	}{
		{
			name: "completed record without error body", hash: "hash-1", status: models.IdempotencyCompleted,
			responseBody: []byte(`{"accountId":"acc-1"}`), errorBody: nil, wantResponse: `{"accountId":"acc-1"}`,
		},
		{
			name: "failed record without response body", hash: "hash-1", status: models.IdempotencyFailed,
			responseBody: nil, errorBody: []byte(`{"code":"INSUFFICIENT_FUNDS"}`), wantError: `{"code":"INSUFFICIENT_FUNDS"}`,
		},
		{
			name: "in progress record without bodies", hash: "hash-1", status: models.IdempotencyInProgress,
			responseBody: nil, errorBody: nil, wantErr: ErrIdempotencyInProgress,
		},
		{
			name: "conflicting hash is detected before the bodies are used", hash: "hash-2", status: models.IdempotencyInProgress,
			responseBody: nil, errorBody: nil, wantErr: ErrIdempotencyConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, mock := beginMockTx(t)

			mock.ExpectQuery("INSERT INTO points_idempotency_records").
				WillReturnRows(sqlmock.NewRows([]string{"id"}))
			mock.ExpectQuery("SELECT id, request_hash, status, response_body, error_body, expires_at").
				WithArgs(testTenant, ScopeCredit, "key-1").
				WillReturnRows(sqlmock.NewRows(idemColumns).
					AddRow("idem-1", tt.hash, string(tt.status), tt.responseBody, tt.errorBody, future))

			record, err := store.TryBegin(context.Background(), tx, testTenant, ScopeCredit, "key-1", "hash-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, record)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, tt.status, record.Status)
			assert.Equal(t, tt.wantResponse, string(record.ResponseBody))
			assert.Equal(t, tt.wantError, string(record.ErrorBody))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
