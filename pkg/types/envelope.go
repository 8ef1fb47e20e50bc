package types

// SuccessEnvelope wraps every successful API response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the machine-readable error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
