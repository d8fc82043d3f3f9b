package handler

import (
	"net/http"

	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders *service.OrderService
	logger *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: log,
	}
}

type orderLineRequest struct {
	CropName    string          `json:"crop_name" validate:"required,max=100"`
	CropType    string          `json:"crop_type" validate:"max=100"`
	CropVariety string          `json:"crop_variety" validate:"max=100"`
	Quantity    decimal.Decimal `json:"quantity" validate:"decimal_positive"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"decimal_non_negative"`
}

type createOrderRequest struct {
	CustomerID string             `json:"customer_id" validate:"required"`
	MarketID   string             `json:"market_id"`
	OrderDate  string             `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	Lines      []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// Create places an order and allocates each line FEFO in one transaction.
// A line that cannot be fully served reports its shortfall; the order still commits.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	orderDate, err := parseDate("order_date", req.OrderDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.CreateOrderInput{
		CustomerID: req.CustomerID,
		MarketID:   req.MarketID,
		OrderDate:  orderDate,
		Lines:      make([]service.OrderLine, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, service.OrderLine{
			CropName:    line.CropName,
			CropType:    line.CropType,
			CropVariety: line.CropVariety,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	order, err := h.orders.CreateOrder(r.Context(), scopeOf(r), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, order)
}
