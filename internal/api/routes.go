package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Performance ingestion, optimizer runs, and the decision log
	api.HandleFunc("/accounts/{accountID}/performance", handler.IngestPerformance).Methods("POST")
	api.HandleFunc("/accounts/{accountID}/runs", handler.TriggerRun).Methods("POST")
	api.HandleFunc("/accounts/{accountID}/decisions", handler.GetDecisions).Methods("GET")
	api.HandleFunc("/batches/{batchID}", handler.GetBatch).Methods("GET")
	api.HandleFunc("/batches/{batchID}", handler.UndoBatch).Methods("DELETE")

	// Impact measurement
	api.HandleFunc("/accounts/{accountID}/impact", handler.GetImpact).Methods("GET")
	api.HandleFunc("/accounts/{accountID}/impact/summary", handler.GetImpactSummary).Methods("GET")
	api.HandleFunc("/accounts/{accountID}/health-score", handler.GetAccountHealth).Methods("GET")
	api.HandleFunc("/accounts/{accountID}/benchmarks/{name}", handler.GetBenchmark).Methods("GET")

	return r
}
