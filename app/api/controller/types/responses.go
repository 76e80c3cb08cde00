package types

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	PageID  string `json:"pageId,omitempty"`
}

// RoutesResponse documents the API surface on unmatched paths.
type RoutesResponse struct {
	Error  string   `json:"error"`
	Routes []string `json:"routes"`
}

// AssetResponse carries a signed asset URL.
type AssetResponse struct {
	URL string `json:"url"`
}

// HealthResponse is the health probe body.
type HealthResponse struct {
	Status string `json:"status"`
}
