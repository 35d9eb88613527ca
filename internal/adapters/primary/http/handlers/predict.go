package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/primary/http/dto"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/primary/http/middleware"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:   "ok",
		ModelURI: h.scoringSvc.Model().URI(),
	})
}

func (h *Handler) Predict(c *gin.Context) {
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	class, err := h.scoringSvc.Score(payload)
	if err != nil {
		log.WithError(err).Error("prediction failed")
		mapDomainError(c, err)
		return
	}

	middleware.CountPrediction(class)
	c.JSON(http.StatusOK, dto.PredictResponse{Prediction: class})
}

func (h *Handler) bindPayload(c *gin.Context) (map[string]float64, bool) {
	if h.scoringSvc.Schema().Open() {
		var req dto.OpenPredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return nil, false
		}
		return req.Data, true
	}

	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, false
	}
	return req, true
}

func (h *Handler) Data(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	rows, err := h.txStore.Recent(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("data preview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
