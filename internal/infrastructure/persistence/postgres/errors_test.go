package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "test error"}
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(pgError("40001")))
	assert.True(t, IsSerializationFailure(pgError("40P01")))

	// Retryability must survive the wrapping runTx applies on commit.
	wrapped := fmt.Errorf("commit error: %w", pgError("40001"))
	assert.True(t, IsSerializationFailure(wrapped))

	assert.False(t, IsSerializationFailure(pgError("23505")))
	assert.False(t, IsSerializationFailure(errors.New("plain error")))
	assert.False(t, IsSerializationFailure(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(pgError("40001")))
	assert.True(t, IsTransient(pgError("08006"))) // connection_failure
	assert.True(t, IsTransient(pgError("08000"))) // connection_exception

	assert.False(t, IsTransient(pgError("23505"))) // unique_violation
	assert.False(t, IsTransient(pgError("42601"))) // syntax_error
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
}

func TestMarkUnavailable_WrapsTransientErrors(t *testing.T) {
	err := MarkUnavailable(fmt.Errorf("commit error: %w", pgError("08006")))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.True(t, shared.IsRetryable(err))

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr, "original cause stays reachable")
	assert.Equal(t, "08006", pgErr.Code)
}

func TestMarkUnavailable_DeadlineBecomesTimeout(t *testing.T) {
	err := MarkUnavailable(fmt.Errorf("exec: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, shared.ErrTimeout)
	assert.True(t, shared.IsRetryable(err))
}

func TestMarkUnavailable_PassesFinalErrorsThrough(t *testing.T) {
	unique := fmt.Errorf("%w: course Go", shared.ErrAlreadyExists)
	assert.Same(t, unique, MarkUnavailable(unique))
	assert.False(t, shared.IsRetryable(MarkUnavailable(unique)))

	assert.NoError(t, MarkUnavailable(nil))
}