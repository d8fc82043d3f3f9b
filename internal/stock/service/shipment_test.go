package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const market = "MKT00000001"

func TestShipmentService_CreateShipment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.addEntity("markets", market)
	first := h.seedBatch(t, warehouseA, "Tomato", "5", date(2024, 8, 1))
	second := h.seedBatch(t, warehouseA, "Onion", "5", date(2024, 8, 1))

	shipment, err := h.shipments.CreateShipment(ctx, CreateShipmentInput{
		MarketID:     market,
		OrderID:      "ORD00000001",
		ShipmentDate: date(2024, 3, 20),
		BatchIDs:     []string{first.ID, second.ID},
		Transports:   []TransportInput{{VehicleID: "TRK-7", CarriedWeight: testutil.Kg("10")}},
	})
	require.NoError(t, err)

	assert.True(t, domain.HasPrefix(shipment.ID, domain.PrefixShipment))
	require.NotNil(t, shipment.OrderID)
	assert.Len(t, h.store.state.batchShipments, 2)
	require.Len(t, h.store.state.transports, 1)
	assert.Equal(t, shipment.ID, h.store.state.transports[0].ShipmentID)
	assert.Contains(t, h.publisher.names(), "shipment.created")

	verdict, err := h.guard.CanDelete(ctx, Scope{}, domain.KindBatch, first.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
	assert.Contains(t, verdict.Reason, "1 shipment")

	verdict, err = h.guard.CanDelete(ctx, Scope{}, domain.KindMarket, market)
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
}

func TestShipmentService_CreateShipment_UnknownBatch(t *testing.T) {
	h := newHarness(t)
	h.store.addEntity("markets", market)
	known := h.seedBatch(t, warehouseA, "Tomato", "5", date(2024, 8, 1))

	_, err := h.shipments.CreateShipment(context.Background(), CreateShipmentInput{
		MarketID: market,
		BatchIDs: []string{known.ID, "BCH0000DEAD"},
	})

	appErr := requireCode(t, err, "NOT_FOUND")
	assert.Contains(t, appErr.Message, "BCH0000DEAD")
	assert.Empty(t, h.store.state.shipments)
	assert.Empty(t, h.store.state.batchShipments)
}

func TestShipmentService_CreateShipment_UnknownMarket(t *testing.T) {
	h := newHarness(t)
	batch := h.seedBatch(t, warehouseA, "Tomato", "5", date(2024, 8, 1))

	_, err := h.shipments.CreateShipment(context.Background(), CreateShipmentInput{
		MarketID: "MKT00000404",
		BatchIDs: []string{batch.ID},
	})
	requireCode(t, err, "NOT_FOUND")
}

func TestShipmentService_CreateShipment_RollsBack(t *testing.T) {
	h := newHarness(t)
	h.store.addEntity("markets", market)
	batch := h.seedBatch(t, warehouseA, "Tomato", "5", date(2024, 8, 1))
	h.store.failOn["InsertTransport"] = stderrors.New("broken pipe")

	_, err := h.shipments.CreateShipment(context.Background(), CreateShipmentInput{
		MarketID:   market,
		BatchIDs:   []string{batch.ID},
		Transports: []TransportInput{{VehicleID: "TRK-1", CarriedWeight: testutil.Kg("5")}},
	})

	requireCode(t, err, "TRANSACTION_ERROR")
	assert.Empty(t, h.store.state.shipments)
	assert.Empty(t, h.store.state.batchShipments)
}

func TestShipmentService_CreateShipment_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.shipments.CreateShipment(context.Background(), CreateShipmentInput{
		BatchIDs:   []string{"BCH00000001", "BCH00000001"},
		Transports: []TransportInput{{VehicleID: "", CarriedWeight: testutil.Kg("-1")}},
	})

	appErr := requireCode(t, err, "VALIDATION_ERROR")
	assert.Contains(t, appErr.Details, "market_id")
	assert.Contains(t, appErr.Details["batch_ids"], "twice")
	assert.Contains(t, appErr.Details, "transports[0].vehicle_id")
	assert.Contains(t, appErr.Details, "transports[0].carried_weight")
}
