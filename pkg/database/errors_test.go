package database_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name   string
		err    *pq.Error
		code   string
		field  string
		detail string
	}{
		{"quantity check", &pq.Error{Code: "23514", Constraint: "batch_purchases_quantity_positive"}, "VALIDATION_ERROR", "quantity", "must be greater than zero"},
		{"expiry check", &pq.Error{Code: "23514", Constraint: "warehouse_stocks_expiry_after_entry"}, "VALIDATION_ERROR", "expiry_date", "must not be before the entry date"},
		{"unit price check", &pq.Error{Code: "23514", Constraint: "purchases_unit_price_non_negative"}, "VALIDATION_ERROR", "unit_price", "must not be negative"},
		{"carried weight check", &pq.Error{Code: "23514", Constraint: "shipment_transports_carried_weight_non_negative"}, "VALIDATION_ERROR", "carried_weight", "must not be negative"},
		{"status check", &pq.Error{Code: "23514", Constraint: "warehouse_stocks_status_valid"}, "VALIDATION_ERROR", "status", ""},
		{"unknown check", &pq.Error{Code: "23514", Constraint: "something_else"}, "BAD_REQUEST", "", ""},
		{"unique", &pq.Error{Code: "23505"}, "CONFLICT", "", ""},
		{"foreign key", &pq.Error{Code: "23503", Constraint: "batches_harvest_id_fkey"}, "BAD_REQUEST", "", ""},
		{"not null", &pq.Error{Code: "23502", Column: "harvest_id"}, "VALIDATION_ERROR", "harvest_id", "must not be empty"},
		{"serialization", &pq.Error{Code: "40001"}, "TRANSACTION_ERROR", "", ""},
		{"deadlock", &pq.Error{Code: "40P01"}, "TRANSACTION_ERROR", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := database.MapPQError(fmt.Errorf("step 1: %w", tt.err))
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			if tt.field != "" {
				require.Contains(t, appErr.Details, tt.field)
				if tt.detail != "" {
					assert.Equal(t, tt.detail, appErr.Details[tt.field])
				}
			}
		})
	}
}

func TestMapPQError_IgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, database.MapPQError(stderrors.New("boom")))
	assert.Nil(t, database.MapPQError(&pq.Error{Code: "42P01"}))
}
