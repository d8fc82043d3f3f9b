package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferentialIntegrity(t *testing.T) {
	err := errors.ReferentialIntegrity("batch", "referenced by 1 purchase allocation")

	assert.Equal(t, "REFERENTIAL_INTEGRITY", err.Code)
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, "referenced by 1 purchase allocation", err.Details["reason"])
	assert.True(t, errors.Is(err, errors.ErrReferentialIntegrity))
}

func TestTransactionFailed_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := errors.TransactionFailed("create batch", cause)

	assert.Equal(t, "TRANSACTION_ERROR", err.Code)
	assert.True(t, errors.Is(err, errors.ErrTransaction))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("step 2: %w", errors.NotFound("batch"))

	var appErr *errors.AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.True(t, errors.IsNotFound(wrapped))
}
