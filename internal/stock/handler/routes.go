package handler

import "github.com/go-chi/chi/v5"

// Handlers bundles every stock handler for route registration
type Handlers struct {
	Batches     *BatchHandler
	Allocations *AllocationHandler
	Orders      *OrderHandler
	Shipments   *ShipmentHandler
	Entities    *EntityHandler
	Dashboard   *DashboardHandler
}

// Routes mounts the stock API on r. The caller owns middleware.
func (h Handlers) Routes(r chi.Router) {
	r.Route("/batches", func(r chi.Router) {
		r.Get("/", h.Batches.List)
		r.Post("/", h.Batches.Create)
		r.Get("/{id}", h.Batches.Get)
		r.Put("/{id}", h.Batches.Update)
		r.Put("/{id}/status", h.Batches.UpdateStatus)
		r.Get("/{id}/available", h.Batches.Available)
		r.Get("/{id}/allocations", h.Batches.Allocations)
	})

	r.Get("/candidates", h.Allocations.Candidates)
	r.Post("/allocations/preview", h.Allocations.Preview)

	r.Post("/orders", h.Orders.Create)
	r.Post("/shipments", h.Shipments.Create)

	r.Route("/entities/{kind}/{id}", func(r chi.Router) {
		r.Get("/deletable", h.Entities.CanDelete)
		r.Delete("/", h.Entities.Delete)
	})

	r.Get("/dashboard/stats", h.Dashboard.GetStats)
}
