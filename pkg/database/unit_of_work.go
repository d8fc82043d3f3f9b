package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Step is one write of a unit of work. It must issue its statements through
// DB.Conn(ctx) so they land in the surrounding transaction.
type Step func(ctx context.Context) error

// Run executes steps in order inside one serializable transaction. The first
// failing step aborts the unit, every earlier write is rolled back and the
// error is returned. When ctx already carries a transaction the steps join it
// and the outermost Run decides commit or rollback.
//
// Application errors returned by a step pass through untouched; Postgres
// constraint errors are mapped by MapPQError; anything else is reported as a
// TransactionFailed error for operation.
func (db *DB) Run(ctx context.Context, operation string, steps ...Step) error {
	if txFromContext(ctx) != nil {
		return runSteps(ctx, operation, steps)
	}

	err := db.Transaction(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sqlx.Tx) error {
		return runSteps(context.WithValue(ctx, txKey{}, tx), operation, steps)
	})
	if err == nil {
		return nil
	}

	db.logger.Warn().Err(err).Str("operation", operation).Msg("unit of work rolled back")
	return classify(operation, err)
}

func runSteps(ctx context.Context, operation string, steps []Step) error {
	for i, step := range steps {
		if err := step(ctx); err != nil {
			return classify(operation, fmt.Errorf("step %d: %w", i+1, err))
		}
	}
	return nil
}

func classify(operation string, err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := MapPQError(err); mapped != nil {
		return mapped
	}
	return errors.TransactionFailed(operation, err)
}

// InTransaction reports whether ctx carries a unit-of-work transaction.
func InTransaction(ctx context.Context) bool {
	return txFromContext(ctx) != nil
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
