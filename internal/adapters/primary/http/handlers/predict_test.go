package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/services"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/testutil"
)

const testKey = "test-key"

func setupRouter(manifest domain.FeatureManifest, scorer domain.Scorer) (*testutil.MockTransactionStore, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	schema := services.BuildSchema(manifest)
	model := &domain.ServingModel{ModelName: "fraud_model", Version: 1, Scorer: scorer}
	scoringSvc := services.NewScoringService(schema, model)
	txStore := new(testutil.MockTransactionStore)

	h := New(scoringSvc, txStore)
	r := gin.New()
	h.RegisterRoutes(r, testKey)
	return txStore, r
}

func postPredict(r *gin.Engine, key string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth_NoAuthRequired(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{})

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "models:/fraud_model/Production", resp["model_uri"])
}

func TestPredict_HappyPath(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"amount", "step"}, &testutil.StaticScorer{Class: 1, Width: 2})

	w := postPredict(r, testKey, map[string]float64{"amount": 9000})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["prediction"])
}

func TestPredict_MissingKeyUnauthorized(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{})

	w := postPredict(r, "", map[string]float64{"a": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPredict_WrongKeyUnauthorized(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{})

	w := postPredict(r, "wrong", map[string]float64{"a": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPredict_UnknownFeatureRejected(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a", "b"}, &testutil.StaticScorer{})

	w := postPredict(r, testKey, map[string]float64{"z": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPredict_MalformedPayloadRejected(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{})

	w := postPredict(r, testKey, map[string]interface{}{"a": "not-a-float"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPredict_OpenSchemaRequiresDataEnvelope(t *testing.T) {
	_, r := setupRouter(nil, &testutil.StaticScorer{Class: 0})

	w := postPredict(r, testKey, map[string]interface{}{"amount": 1.0})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = postPredict(r, testKey, map[string]interface{}{"data": map[string]float64{"amount": 1.0}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredict_ScoringFailureIs500(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{Err: assert.AnError})

	w := postPredict(r, testKey, map[string]float64{"a": 1})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestData_ReturnsRecentRows(t *testing.T) {
	txStore, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{})

	rows := []*domain.Transaction{{Step: 1, Type: "PAYMENT", Amount: 42}}
	txStore.On("Recent", mock.Anything, 2).Return(rows, nil)

	req, _ := http.NewRequest("GET", "/data?limit=2", nil)
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Len(t, resp, 1)
	assert.Equal(t, "PAYMENT", resp[0]["type"])
}

func TestData_InvalidLimit(t *testing.T) {
	_, r := setupRouter(domain.FeatureManifest{"a"}, &testutil.StaticScorer{})

	req, _ := http.NewRequest("GET", "/data?limit=zero", nil)
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
