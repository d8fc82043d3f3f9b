package database

import (
	"strings"

	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict("a record with these values already exists")

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist: " + pqErr.Constraint)

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Serialization failure (40001), deadlock (40P01)
	case "40001", "40P01":
		return errors.TransactionFailed("concurrent stock update", err)

	default:
		return nil
	}
}

// mapCheckConstraint maps CHECK constraint names from the stock schema to field messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_positive"):
		return errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})

	case strings.Contains(constraint, "expiry_after_entry"):
		return errors.Validation(map[string]string{
			"expiry_date": "must not be before the entry date",
		})

	case strings.Contains(constraint, "unit_price_non_negative"):
		return errors.Validation(map[string]string{
			"unit_price": "must not be negative",
		})

	case strings.Contains(constraint, "carried_weight_non_negative"):
		return errors.Validation(map[string]string{
			"carried_weight": "must not be negative",
		})

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: Available, Reserved, In Transit, Quarantined, Prioritized",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
