package dto

// PredictRequest is the closed-schema payload: manifest feature names to
// values, omitted names defaulting to 0.0 before scoring.
type PredictRequest map[string]float64

// OpenPredictRequest is the fallback payload used when no feature manifest
// exists; the caller supplies whatever feature set the model expects.
type OpenPredictRequest struct {
	Data map[string]float64 `json:"data" binding:"required"`
}

type PredictResponse struct {
	Prediction int `json:"prediction"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	ModelURI string `json:"model_uri"`
}
