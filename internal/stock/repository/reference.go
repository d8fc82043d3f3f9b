package repository

import (
	"context"
	"fmt"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/lib/pq"
)

// ReferenceRepository runs the lifecycle guard's queries. Table and column
// names only ever come from domain.ReferenceGraph and are quoted regardless.
type ReferenceRepository struct {
	db *database.DB
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *database.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Exists reports whether the entity row is present
func (r *ReferenceRepository) Exists(ctx context.Context, refs domain.EntityRefs, id string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		pq.QuoteIdentifier(refs.Table), pq.QuoteIdentifier(refs.IDColumn))
	if err := r.db.Conn(ctx).GetContext(ctx, &exists, query, id); err != nil {
		return false, err
	}
	return exists, nil
}

// Lock takes a row lock on the entity for the rest of the transaction.
// Returns false when the row does not exist.
func (r *ReferenceRepository) Lock(ctx context.Context, refs domain.EntityRefs, id string) (bool, error) {
	var locked []string
	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s WHERE %[2]s = $1 FOR UPDATE`,
		pq.QuoteIdentifier(refs.Table), pq.QuoteIdentifier(refs.IDColumn))
	if err := r.db.Conn(ctx).SelectContext(ctx, &locked, query, id); err != nil {
		return false, err
	}
	return len(locked) > 0, nil
}

// CountReferences counts the rows of every referencing table that point at id
func (r *ReferenceRepository) CountReferences(ctx context.Context, refs domain.EntityRefs, id string) ([]domain.ReferenceCount, error) {
	counts := make([]domain.ReferenceCount, 0, len(refs.References))
	for _, ref := range refs.References {
		var n int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
			pq.QuoteIdentifier(ref.Table), pq.QuoteIdentifier(ref.Column))
		if err := r.db.Conn(ctx).GetContext(ctx, &n, query, id); err != nil {
			return nil, fmt.Errorf("count %s references: %w", ref.Table, err)
		}
		counts = append(counts, domain.ReferenceCount{Ref: ref, Count: n})
	}
	return counts, nil
}

// DeleteOwned removes the rows of one owned child table
func (r *ReferenceRepository) DeleteOwned(ctx context.Context, ref domain.TableRef, id string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		pq.QuoteIdentifier(ref.Table), pq.QuoteIdentifier(ref.Column))

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", ref.Table, err)
	}
	return result.RowsAffected()
}

// DeleteEntity removes the entity row itself
func (r *ReferenceRepository) DeleteEntity(ctx context.Context, kind domain.EntityKind, refs domain.EntityRefs, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		pq.QuoteIdentifier(refs.Table), pq.QuoteIdentifier(refs.IDColumn))

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound(string(kind))
	}
	return nil
}
