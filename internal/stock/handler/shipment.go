package handler

import (
	"net/http"

	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ShipmentHandler handles shipment endpoints
type ShipmentHandler struct {
	shipments *service.ShipmentService
	logger    *logger.Logger
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(shipments *service.ShipmentService, log *logger.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		shipments: shipments,
		logger:    log,
	}
}

type createShipmentRequest struct {
	MarketID     string   `json:"market_id" validate:"required"`
	OrderID      string   `json:"order_id"`
	ShipmentDate string   `json:"shipment_date" validate:"omitempty,datetime=2006-01-02"`
	BatchIDs     []string `json:"batch_ids" validate:"required,min=1,dive,required"`
	Transports   []struct {
		VehicleID     string          `json:"vehicle_id" validate:"required,max=32"`
		CarriedWeight decimal.Decimal `json:"carried_weight" validate:"decimal_non_negative"`
	} `json:"transports" validate:"dive"`
}

// Create records a shipment of whole batches to a market
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	shipmentDate, err := parseDate("shipment_date", req.ShipmentDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.CreateShipmentInput{
		MarketID:     req.MarketID,
		OrderID:      req.OrderID,
		ShipmentDate: shipmentDate,
		BatchIDs:     req.BatchIDs,
	}
	for _, t := range req.Transports {
		in.Transports = append(in.Transports, service.TransportInput{
			VehicleID:     t.VehicleID,
			CarriedWeight: t.CarriedWeight,
		})
	}

	shipment, err := h.shipments.CreateShipment(r.Context(), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, shipment)
}
