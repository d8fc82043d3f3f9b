package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/internal/stock/repository"
	"github.com/agritrack/agritrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepository_Insert(t *testing.T) {
	mockDB := newMock(t)
	repo := repository.NewOrderRepository(mockDB.Wrapped)
	ctx := context.Background()
	orderDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	created := time.Now()

	mockDB.ExpectQuery("INSERT INTO orders (id, customer_id, market_id, order_date)").
		WithArgs("ORD00000001", "CUS00000001", nil, orderDate).
		WillReturnRows(testutil.MockRows("created_at").AddRow(created))
	mockDB.ExpectExec("INSERT INTO purchases").
		WithArgs("PUR00000001", "ORD00000001", "Tomato", "", "Roma", "8", "1.25").
		WillReturnResult(sqlmock.NewResult(0, 1))

	order := &domain.Order{ID: "ORD00000001", CustomerID: "CUS00000001", OrderDate: orderDate}
	require.NoError(t, repo.InsertOrder(ctx, order))
	assert.Equal(t, created, order.CreatedAt)

	require.NoError(t, repo.InsertPurchase(ctx, &domain.Purchase{
		ID:          "PUR00000001",
		OrderID:     "ORD00000001",
		CropName:    "Tomato",
		CropVariety: "Roma",
		Quantity:    testutil.Kg("8"),
		UnitPrice:   testutil.Kg("1.25"),
	}))
	mockDB.ExpectationsWereMet(t)
}

func TestShipmentRepository_Insert(t *testing.T) {
	mockDB := newMock(t)
	repo := repository.NewShipmentRepository(mockDB.Wrapped)
	ctx := context.Background()
	shipped := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	orderID := "ORD00000001"

	mockDB.ExpectQuery("INSERT INTO shipments").
		WithArgs("SHP00000001", "MKT00000001", orderID, shipped).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectExec("INSERT INTO batch_shipments").
		WithArgs("SHP00000001", "BCH00000001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO shipment_transports").
		WithArgs("SHP00000001", "TRK-7", "950.5").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.InsertShipment(ctx, &domain.Shipment{
		ID:           "SHP00000001",
		MarketID:     "MKT00000001",
		OrderID:      &orderID,
		ShipmentDate: shipped,
	}))
	require.NoError(t, repo.LinkBatch(ctx, domain.BatchShipment{ShipmentID: "SHP00000001", BatchID: "BCH00000001"}))
	require.NoError(t, repo.InsertTransport(ctx, domain.TransportAssignment{
		ShipmentID:    "SHP00000001",
		VehicleID:     "TRK-7",
		CarriedWeight: testutil.Kg("950.5"),
	}))
	mockDB.ExpectationsWereMet(t)
}
