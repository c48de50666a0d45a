package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/adverge/ppc-decision-engine/internal/config"
	"github.com/adverge/ppc-decision-engine/internal/database"
	"github.com/adverge/ppc-decision-engine/internal/impact"
	"github.com/adverge/ppc-decision-engine/internal/metrics"
	"github.com/adverge/ppc-decision-engine/internal/models"
	"github.com/adverge/ppc-decision-engine/internal/optimizer"
	"github.com/adverge/ppc-decision-engine/internal/redis"
	"github.com/gorilla/mux"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db        *database.DB
	optimizer *optimizer.Optimizer
	evaluator *impact.Evaluator
	redis     *redis.Client
	cfg       *config.Config
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, opt *optimizer.Optimizer, evaluator *impact.Evaluator, redisClient *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		db:        db,
		optimizer: opt,
		evaluator: evaluator,
		redis:     redisClient,
		cfg:       cfg,
	}
}

// TriggerRun handles POST /accounts/{accountID}/runs
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]

	summary, err := h.optimizer.Run(r.Context(), accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCache(r.Context(), accountID)
	if h.redis != nil {
		ttl := time.Duration(h.cfg.Impact.SummaryCacheTTL) * time.Second
		if err := h.redis.SetBenchmark(r.Context(), accountID, "universal_roas", summary.UniversalROAS, ttl); err != nil {
			log.Printf("Warning: failed to cache benchmark for %s: %v", accountID, err)
		}
	}
	respondJSON(w, http.StatusCreated, summary)
}

// IngestPerformance handles POST /accounts/{accountID}/performance. It is
// the direct-upload path for weekly report rows, used when the Kafka
// ingestion pipeline is not in front of this service.
func (h *Handler) IngestPerformance(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]

	var records []*models.PerformanceRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		http.Error(w, "no performance rows in request", http.StatusBadRequest)
		return
	}
	for _, rec := range records {
		rec.AccountID = accountID
	}

	if err := h.db.SavePerformanceBatch(records); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCache(r.Context(), accountID)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"account_id": accountID,
		"rows":       len(records),
	})
}

// GetBenchmark handles GET /accounts/{accountID}/benchmarks/{name}
func (h *Handler) GetBenchmark(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if h.redis == nil {
		http.Error(w, "benchmark cache not configured", http.StatusServiceUnavailable)
		return
	}

	value, err := h.redis.GetBenchmark(r.Context(), vars["accountID"], vars["name"])
	if err != nil {
		http.Error(w, "benchmark not cached: "+vars["name"], http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": vars["accountID"],
		"name":       vars["name"],
		"value":      value,
	})
}

// GetDecisions handles GET /accounts/{accountID}/decisions
func (h *Handler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]

	from, to, err := parseDateRange(r, 90)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	decisionType := r.URL.Query().Get("type")

	decisions, err := h.db.GetDecisions(accountID, from, to, decisionType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, decisions)
}

// GetBatch handles GET /batches/{batchID}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]

	decisions, err := h.db.GetDecisionsByBatch(batchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(decisions) == 0 {
		http.Error(w, "batch not found: "+batchID, http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, decisions)
}

// UndoBatch handles DELETE /batches/{batchID}
func (h *Handler) UndoBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]

	decisions, err := h.db.GetDecisionsByBatch(batchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(decisions) == 0 {
		http.Error(w, "batch not found: "+batchID, http.StatusNotFound)
		return
	}

	deleted, err := h.db.DeleteDecisionBatch(batchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidateCache(r.Context(), decisions[0].AccountID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id": batchID,
		"deleted":  deleted,
	})
}

// GetImpact handles GET /accounts/{accountID}/impact
func (h *Handler) GetImpact(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]

	records, _, err := h.impactRecords(r, accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// GetImpactSummary handles GET /accounts/{accountID}/impact/summary
func (h *Handler) GetImpactSummary(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	filters := models.ImpactFilters{
		MatureOnly:    r.URL.Query().Get("mature_only") == "true",
		ValidatedOnly: r.URL.Query().Get("validated_only") == "true",
	}

	if h.redis != nil {
		if cached, err := h.redis.GetImpactSummary(r.Context(), accountID, filters); err == nil {
			metrics.ImpactComputations.WithLabelValues("hit").Inc()
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}
	metrics.ImpactComputations.WithLabelValues("miss").Inc()

	records, _, err := h.impactRecords(r, accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summary := impact.Summarize(records, filters, h.cfg.Impact.HorizonDays)

	if h.redis != nil {
		ttl := time.Duration(h.cfg.Impact.SummaryCacheTTL) * time.Second
		if err := h.redis.SetImpactSummary(r.Context(), accountID, filters, summary, ttl); err != nil {
			log.Printf("Warning: failed to cache impact summary: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetAccountHealth handles GET /accounts/{accountID}/health-score
func (h *Handler) GetAccountHealth(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]

	health, err := h.db.GetAccountHealth(accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, health)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	// Check database
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// impactRecords loads the decisions in the requested range and measures them.
func (h *Handler) impactRecords(r *http.Request, accountID string) ([]*models.ImpactRecord, models.ImpactFilters, error) {
	filters := models.ImpactFilters{
		MatureOnly:    r.URL.Query().Get("mature_only") == "true",
		ValidatedOnly: r.URL.Query().Get("validated_only") == "true",
	}

	from, to, err := parseDateRange(r, 90)
	if err != nil {
		return nil, filters, err
	}

	decisions, err := h.db.GetDecisions(accountID, from, to, "")
	if err != nil {
		return nil, filters, err
	}

	records, err := h.evaluator.EvaluateAll(accountID, decisions)
	if err != nil {
		return nil, filters, err
	}
	return records, filters, nil
}

func (h *Handler) invalidateCache(ctx context.Context, accountID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.InvalidateAccount(ctx, accountID); err != nil {
		log.Printf("Warning: failed to invalidate cache for %s: %v", accountID, err)
	}
}

// parseDateRange reads from/to query params (YYYY-MM-DD), defaulting to the
// trailing defaultDays ending now. The to date is inclusive.
func parseDateRange(r *http.Request, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -defaultDays)
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
