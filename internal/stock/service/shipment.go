package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/agritrack/agritrack-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// TransportInput is a vehicle assigned to a shipment
type TransportInput struct {
	VehicleID     string
	CarriedWeight decimal.Decimal
}

// CreateShipmentInput holds the batches and vehicles of a shipment
type CreateShipmentInput struct {
	MarketID     string
	OrderID      string
	ShipmentDate time.Time
	BatchIDs     []string
	Transports   []TransportInput
}

// ShipmentService records shipments of whole batches to markets
type ShipmentService struct {
	uow       UnitOfWork
	shipments ShipmentStore
	batches   BatchStore
	refs      ReferenceStore
	publisher EventPublisher
	metrics   *metrics.Collector
	logger    *logger.Logger
	clock     Clock
}

// NewShipmentService creates a new shipment service
func NewShipmentService(
	uow UnitOfWork,
	shipments ShipmentStore,
	batches BatchStore,
	refs ReferenceStore,
	publisher EventPublisher,
	m *metrics.Collector,
	log *logger.Logger,
) *ShipmentService {
	return &ShipmentService{
		uow:       uow,
		shipments: shipments,
		batches:   batches,
		refs:      refs,
		publisher: publisherOrNop(publisher),
		metrics:   m,
		logger:    log.WithComponent("shipments"),
		clock:     SystemClock,
	}
}

// CreateShipment writes the shipment, one link per batch and one assignment
// per vehicle in a single unit of work. Every batch must exist.
func (s *ShipmentService) CreateShipment(ctx context.Context, in CreateShipmentInput) (*domain.Shipment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	shipment := &domain.Shipment{
		ID:           domain.NewID(domain.PrefixShipment),
		MarketID:     in.MarketID,
		ShipmentDate: domain.DateOf(in.ShipmentDate),
		BatchIDs:     in.BatchIDs,
		Transports:   make([]domain.TransportAssignment, len(in.Transports)),
	}
	if in.ShipmentDate.IsZero() {
		shipment.ShipmentDate = domain.DateOf(s.clock())
	}
	if in.OrderID != "" {
		shipment.OrderID = &in.OrderID
	}
	for i, t := range in.Transports {
		shipment.Transports[i] = domain.TransportAssignment{
			ShipmentID:    shipment.ID,
			VehicleID:     strings.TrimSpace(t.VehicleID),
			CarriedWeight: t.CarriedWeight,
		}
	}

	steps := []database.Step{
		func(ctx context.Context) error {
			found, err := s.refs.Exists(ctx, domain.ReferenceGraph[domain.KindMarket], in.MarketID)
			if err != nil {
				return err
			}
			if !found {
				return errors.NotFound("market")
			}

			existing, err := s.batches.ExistingIDs(ctx, in.BatchIDs)
			if err != nil {
				return err
			}
			for _, id := range in.BatchIDs {
				if !existing[id] {
					return errors.NotFound("batch " + id)
				}
			}
			return nil
		},
		func(ctx context.Context) error { return s.shipments.InsertShipment(ctx, shipment) },
	}
	for _, batchID := range in.BatchIDs {
		link := domain.BatchShipment{ShipmentID: shipment.ID, BatchID: batchID}
		steps = append(steps, func(ctx context.Context) error { return s.shipments.LinkBatch(ctx, link) })
	}
	for _, t := range shipment.Transports {
		t := t
		steps = append(steps, func(ctx context.Context) error { return s.shipments.InsertTransport(ctx, t) })
	}

	const operation = "create shipment"
	if err := s.uow.Run(ctx, operation, steps...); err != nil {
		if !errors.IsNotFound(err) {
			s.metrics.UnitOfWorkFailed(operation)
		}
		return nil, err
	}

	s.publisher.ShipmentCreated(ctx, shipment)
	s.logger.Info().
		Str("shipment_id", shipment.ID).
		Str("market_id", shipment.MarketID).
		Int("batches", len(shipment.BatchIDs)).
		Msg("shipment created")

	return shipment, nil
}

func (in CreateShipmentInput) validate() error {
	problems := fieldErrors{}
	problems.require("market_id", in.MarketID)
	if len(in.BatchIDs) == 0 {
		problems["batch_ids"] = "at least one batch is required"
	}

	seen := make(map[string]bool, len(in.BatchIDs))
	for _, id := range in.BatchIDs {
		if seen[id] {
			problems["batch_ids"] = "batch " + id + " is listed twice"
		}
		seen[id] = true
	}

	for i, t := range in.Transports {
		prefix := fmt.Sprintf("transports[%d].", i)
		problems.require(prefix+"vehicle_id", t.VehicleID)
		problems.nonNegative(prefix+"carried_weight", t.CarriedWeight)
	}
	return problems.err()
}
