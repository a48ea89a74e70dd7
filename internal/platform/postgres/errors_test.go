package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/nudge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResult implements sql.Result for testing
type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }

func (r fakeResult) RowsAffected() (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.rowsAffected, nil
}

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "notifications",
		ColumnName:     "title",
		ConstraintName: "notifications_user_ref_type_key",
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation", newPgError(uniqueViolationCode), store.ErrDuplicate},
		{"wrapped unique violation", fmt.Errorf("insert: %w", newPgError(uniqueViolationCode)), store.ErrDuplicate},
		{"foreign key violation", newPgError(foreignKeyViolationCode), store.ErrInvalidEntity},
		{"check violation", newPgError(checkViolationCode), store.ErrInvalidEntity},
		{"not null violation", newPgError(notNullViolationCode), store.ErrInvalidEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, MapError(tc.err), tc.want)
		})
	}

	assert.NoError(t, MapError(nil))

	other := errors.New("connection reset")
	assert.Equal(t, other, MapError(other))

	unknown := newPgError("40001")
	assert.Equal(t, unknown, MapError(unknown))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(newPgError(uniqueViolationCode)))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", newPgError(uniqueViolationCode))))
	assert.False(t, IsUniqueViolation(newPgError(checkViolationCode)))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestCheckRowsAffected(t *testing.T) {
	require.NoError(t, CheckRowsAffected(fakeResult{rowsAffected: 1}, store.ErrTaskNotFound))

	err := CheckRowsAffected(fakeResult{rowsAffected: 0}, store.ErrTaskNotFound)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = CheckRowsAffected(fakeResult{err: errors.New("driver")}, store.ErrTaskNotFound)
	assert.ErrorContains(t, err, "failed to get rows affected")

	assert.Error(t, CheckRowsAffected(nil, store.ErrTaskNotFound))
}
