package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/riderly/riderledger/internal/middlewares"
)

func NewRouter(api *API, defaultRiderID string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middlewares.Rider(defaultRiderID))
	r.Use(middlewares.AuditLogger(api.log))

	r.Route("/api/rider", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", api.GetOrders)
			r.Get("/recent", api.GetRecentOrders)
			r.Get("/search", api.SearchOrders)
			r.Get("/range", api.GetOrdersByRange)
			r.Get("/statistics", api.GetOrderStatistics)
			r.Get("/{orderID}", api.GetOrder)
			r.Patch("/{orderID}/status", api.UpdateOrderStatus)
		})

		r.Get("/income", api.GetIncome)
		r.Get("/income/trend", api.GetIncomeTrend)

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", api.SubmitWithdrawal)
			r.Get("/", api.GetWithdrawals)
			r.Patch("/{withdrawalID}", api.ResolveWithdrawal)
		})
	})
	return r
}
