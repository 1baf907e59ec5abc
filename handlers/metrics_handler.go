package handlers

import (
	"net/http"

	"github.com/resolvd/llm-governor/services/gateway"
	"github.com/resolvd/llm-governor/utils"
	"go.uber.org/zap"
)

// MetricsSource provides the aggregated governance metrics snapshot
type MetricsSource interface {
	Metrics() gateway.Metrics
}

// MetricsHandler exposes limiter, ledger, and breaker metrics for an
// external telemetry collector
type MetricsHandler struct {
	source MetricsSource
	logger *zap.Logger
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(source MetricsSource, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		source: source,
		logger: logger,
	}
}

// HandleMetrics handles GET /v1/metrics
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.source.Metrics()); err != nil {
		h.logger.Error("failed to write metrics response", zap.Error(err))
	}
}
