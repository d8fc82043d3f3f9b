package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/agritrack/agritrack-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// OrderLine is one requested crop of an order
type OrderLine struct {
	CropName    string
	CropType    string
	CropVariety string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateOrderInput holds a customer order with its lines
type CreateOrderInput struct {
	CustomerID string
	MarketID   string
	OrderDate  time.Time
	Lines      []OrderLine
}

// OrderService records customer orders and allocates stock to every line
type OrderService struct {
	uow       UnitOfWork
	orders    OrderStore
	allocator *Allocator
	publisher EventPublisher
	metrics   *metrics.Collector
	logger    *logger.Logger
	clock     Clock
}

// NewOrderService creates a new order service
func NewOrderService(uow UnitOfWork, orders OrderStore, allocator *Allocator, publisher EventPublisher, m *metrics.Collector, log *logger.Logger) *OrderService {
	return &OrderService{
		uow:       uow,
		orders:    orders,
		allocator: allocator,
		publisher: publisherOrNop(publisher),
		metrics:   m,
		logger:    log.WithComponent("orders"),
		clock:     SystemClock,
	}
}

// WithClock replaces the clock used to date orders that carry no date
func (s *OrderService) WithClock(clock Clock) *OrderService {
	s.clock = clock
	return s
}

// CreateOrder writes the order, then a purchase and its allocations for each
// line, all in one unit of work. Lines that cannot be fully served keep their
// shortfall; the order still succeeds.
func (s *OrderService) CreateOrder(ctx context.Context, scope Scope, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:         domain.NewID(domain.PrefixOrder),
		CustomerID: in.CustomerID,
		OrderDate:  domain.DateOf(in.OrderDate),
		Purchases:  make([]domain.Purchase, len(in.Lines)),
	}
	if in.OrderDate.IsZero() {
		order.OrderDate = domain.DateOf(s.clock())
	}
	if in.MarketID != "" {
		order.MarketID = &in.MarketID
	}

	steps := []database.Step{
		func(ctx context.Context) error { return s.orders.InsertOrder(ctx, order) },
	}
	for i, line := range in.Lines {
		order.Purchases[i] = domain.Purchase{
			ID:          domain.NewID(domain.PrefixPurchase),
			OrderID:     order.ID,
			CropName:    strings.TrimSpace(line.CropName),
			CropType:    strings.TrimSpace(line.CropType),
			CropVariety: strings.TrimSpace(line.CropVariety),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		}
		purchase := &order.Purchases[i]

		steps = append(steps,
			func(ctx context.Context) error { return s.orders.InsertPurchase(ctx, purchase) },
			func(ctx context.Context) error {
				key := domain.NewCropKey(purchase.CropName, purchase.CropType, purchase.CropVariety)
				plan, err := s.allocator.Allocate(ctx, scope, purchase.ID, key, purchase.Quantity)
				if err != nil {
					return err
				}
				purchase.Allocations = plan.Allocations
				purchase.Shortfall = plan.Shortfall
				return nil
			},
		)
	}

	const operation = "create order"
	if err := s.uow.Run(ctx, operation, steps...); err != nil {
		s.metrics.UnitOfWorkFailed(operation)
		return nil, err
	}

	rows := 0
	allocated, shortfall := decimal.Zero, decimal.Zero
	for _, p := range order.Purchases {
		rows += len(p.Allocations)
		shortfall = shortfall.Add(p.Shortfall)
		for _, a := range p.Allocations {
			allocated = allocated.Add(a.Quantity)
		}
	}
	s.metrics.Allocated(rows, allocated, shortfall)
	s.publisher.OrderAllocated(ctx, order, scope.WarehouseID)

	s.logger.Info().
		Str("order_id", order.ID).
		Int("lines", len(order.Purchases)).
		Str("allocated", allocated.String()).
		Str("shortfall", shortfall.String()).
		Msg("order created")

	return order, nil
}

func (in CreateOrderInput) validate() error {
	problems := fieldErrors{}
	problems.require("customer_id", in.CustomerID)
	if len(in.Lines) == 0 {
		problems["lines"] = "at least one line is required"
	}
	for i, line := range in.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		problems.require(prefix+"crop_name", line.CropName)
		problems.positive(prefix+"quantity", line.Quantity)
		problems.nonNegative(prefix+"unit_price", line.UnitPrice)
	}
	return problems.err()
}
