package service

import (
	"context"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/agritrack/agritrack-backend/pkg/metrics"
)

// Guard refuses deletes that would orphan dependent records and removes the
// records an entity owns together with it.
type Guard struct {
	uow       UnitOfWork
	batches   BatchStore
	refs      ReferenceStore
	graph     map[domain.EntityKind]domain.EntityRefs
	publisher EventPublisher
	metrics   *metrics.Collector
	logger    *logger.Logger
}

// NewGuard creates a lifecycle guard over domain.ReferenceGraph
func NewGuard(uow UnitOfWork, batches BatchStore, refs ReferenceStore, publisher EventPublisher, m *metrics.Collector, log *logger.Logger) *Guard {
	return &Guard{
		uow:       uow,
		batches:   batches,
		refs:      refs,
		graph:     domain.ReferenceGraph,
		publisher: publisherOrNop(publisher),
		metrics:   m,
		logger:    log.WithComponent("guard"),
	}
}

func (g *Guard) entityRefs(kind domain.EntityKind) (domain.EntityRefs, error) {
	refs, ok := g.graph[kind]
	if !ok {
		return domain.EntityRefs{}, errors.Validation(map[string]string{
			"kind": "must be one of: batch, farmer, customer, market, warehouse",
		})
	}
	return refs, nil
}

// visible hides entities that belong to another warehouse from a scoped
// caller. Farmers, customers and markets are shared by every warehouse.
func (g *Guard) visible(ctx context.Context, scope Scope, kind domain.EntityKind, id string) error {
	if scope.WarehouseID == "" {
		return nil
	}

	switch kind {
	case domain.KindBatch:
		batch, err := g.batches.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !scope.Allows(batch.WarehouseID) {
			return errors.NotFound(string(kind))
		}
	case domain.KindWarehouse:
		if !scope.Allows(id) {
			return errors.NotFound(string(kind))
		}
	}
	return nil
}

// CanDelete reports whether the entity may be deleted and, if not, what still
// refers to it.
func (g *Guard) CanDelete(ctx context.Context, scope Scope, kind domain.EntityKind, id string) (domain.Verdict, error) {
	refs, err := g.entityRefs(kind)
	if err != nil {
		return domain.Verdict{}, err
	}

	exists, err := g.refs.Exists(ctx, refs, id)
	if err != nil {
		return domain.Verdict{}, err
	}
	if !exists {
		return domain.Verdict{}, errors.NotFound(string(kind))
	}
	if err := g.visible(ctx, scope, kind, id); err != nil {
		return domain.Verdict{}, err
	}

	counts, err := g.refs.CountReferences(ctx, refs, id)
	if err != nil {
		return domain.Verdict{}, err
	}
	return domain.Decide(kind, id, counts), nil
}

// Delete removes the entity and everything it owns. The entity row is locked
// and its references are counted again inside the unit of work, so a
// reference added after CanDelete still blocks the delete.
func (g *Guard) Delete(ctx context.Context, scope Scope, kind domain.EntityKind, id string) error {
	refs, err := g.entityRefs(kind)
	if err != nil {
		return err
	}

	steps := []database.Step{
		func(ctx context.Context) error {
			found, err := g.refs.Lock(ctx, refs, id)
			if err != nil {
				return err
			}
			if !found {
				return errors.NotFound(string(kind))
			}
			if err := g.visible(ctx, scope, kind, id); err != nil {
				return err
			}

			counts, err := g.refs.CountReferences(ctx, refs, id)
			if err != nil {
				return err
			}
			if verdict := domain.Decide(kind, id, counts); !verdict.Allowed {
				return errors.ReferentialIntegrity(string(kind), verdict.Reason)
			}
			return nil
		},
	}
	for _, owned := range refs.Owned {
		owned := owned
		steps = append(steps, func(ctx context.Context) error {
			removed, err := g.refs.DeleteOwned(ctx, owned, id)
			if err != nil {
				return err
			}
			g.logger.Debug().Str("table", owned.Table).Int64("rows", removed).Str("owner_id", id).Msg("owned rows removed")
			return nil
		})
	}
	steps = append(steps, func(ctx context.Context) error {
		return g.refs.DeleteEntity(ctx, kind, refs, id)
	})

	operation := "delete " + string(kind)
	if err := g.uow.Run(ctx, operation, steps...); err != nil {
		switch {
		case errors.Is(err, errors.ErrReferentialIntegrity):
			g.metrics.DeleteBlocked(string(kind))
			g.logger.Info().Str("kind", string(kind)).Str("id", id).Err(err).Msg("delete refused")
		case errors.IsNotFound(err):
		default:
			g.metrics.UnitOfWorkFailed(operation)
		}
		return err
	}

	g.metrics.Deleted(string(kind))
	g.publisher.EntityDeleted(ctx, kind, id)
	g.logger.Info().Str("kind", string(kind)).Str("id", id).Msg("entity deleted")
	return nil
}
