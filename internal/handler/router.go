package handler

import (
	"net/http"

	"github.com/segyhp/fleet-charges/internal/observability"
	"github.com/segyhp/fleet-charges/pkg/response"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter registers every route of the API. CORS wraps the router so that
// preflight requests are answered before route method matching.
func NewRouter(charges *ChargeHandler, health *HealthHandler, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(observability.LoggingMiddleware(logger))

	// Health check
	if health != nil {
		router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
		router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)
	}
	if metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/charges", charges.ListCharges).Methods(http.MethodGet)
	api.HandleFunc("/charges", charges.CreateCharge).Methods(http.MethodPost)
	api.HandleFunc("/charges/preview", charges.PreviewCharge).Methods(http.MethodPost)
	api.HandleFunc("/charges/{id}", charges.GetCharge).Methods(http.MethodGet)
	api.HandleFunc("/charges/{id}", charges.UpdateCharge).Methods(http.MethodPut)
	api.HandleFunc("/charges/{id}", charges.DeleteCharge).Methods(http.MethodDelete)
	api.HandleFunc("/charges/{id}/installments", charges.ListInstallments).Methods(http.MethodGet)
	api.HandleFunc("/charges/{id}/status", charges.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/charges/{id}/validate", charges.ValidateCharge).Methods(http.MethodPost)
	api.HandleFunc("/charges/{id}/invalidate", charges.InvalidateCharge).Methods(http.MethodPost)
	api.HandleFunc("/installments/{id}/paid", charges.MarkPaid).Methods(http.MethodPost)
	api.HandleFunc("/installments/{id}/unpaid", charges.MarkUnpaid).Methods(http.MethodPost)

	return response.CORSMiddleware(router)
}
