package models

// ClassifyURLRequest asks the service to download and classify images.
type ClassifyURLRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,dive,required,url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BatchResponse is returned by the classify and session endpoints.
type BatchResponse struct {
	Batch      *Batch     `json:"batch"`
	Statistics Statistics `json:"statistics"`
	Single     bool       `json:"single"`
	ReportName string     `json:"report_name,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Backend     string `json:"backend"`
	Timestamp   string `json:"timestamp"`
}
