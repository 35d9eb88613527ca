package domain

// Transaction is one row of the payment simulator dataset the fraud model is
// trained on. Stored in SQLite by the ingest job and previewed over /data.
type Transaction struct {
	Step           int     `json:"step"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	NameOrig       string  `json:"nameOrig"`
	OldBalanceOrg  float64 `json:"oldbalanceOrg"`
	NewBalanceOrig float64 `json:"newbalanceOrig"`
	NameDest       string  `json:"nameDest"`
	OldBalanceDest float64 `json:"oldbalanceDest"`
	NewBalanceDest float64 `json:"newbalanceDest"`
	IsFraud        int     `json:"isFraud"`
	IsFlaggedFraud int     `json:"isFlaggedFraud"`
}
