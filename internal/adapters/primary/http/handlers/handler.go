package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/primary/http/middleware"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/services"
)

type Handler struct {
	scoringSvc *services.ScoringService
	txStore    ports.TransactionStore
}

func New(scoringSvc *services.ScoringService, txStore ports.TransactionStore) *Handler {
	return &Handler{scoringSvc: scoringSvc, txStore: txStore}
}

// RegisterRoutes wires the serving surface. Health and metrics stay open;
// everything touching the model or the data requires the API key.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", middleware.APIKey(apiKey))
	authed.POST("/predict", h.Predict)
	authed.GET("/data", h.Data)
}
