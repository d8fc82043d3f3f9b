package httputil_test

import (
	"testing"

	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	CropName  string          `json:"crop_name" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"decimal_positive"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"decimal_non_negative"`
}

func TestValidate_Decimals(t *testing.T) {
	ok := lineInput{CropName: "Maize", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.Zero}
	assert.NoError(t, httputil.Validate(ok))

	bad := lineInput{Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(-1)}
	err := httputil.Validate(bad)
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "this field is required", appErr.Details["crop_name"])
	assert.Equal(t, "must be greater than zero", appErr.Details["quantity"])
	assert.Equal(t, "must not be negative", appErr.Details["unit_price"])
}
