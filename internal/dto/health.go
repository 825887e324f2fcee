package dto

// Health is the fixed payload of the status endpoint.
type Health struct {
	Status    string            `json:"status"`
	Model     string            `json:"model"`
	Endpoints map[string]string `json:"endpoints"`
}
