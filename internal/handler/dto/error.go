// Package dto defines request and response bodies for the HTTP API.
package dto

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure. Detail is only set in development.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(code, message, detail string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Detail: detail}}
}
