package models

// APIStatus is the value of the envelope status field.
type APIStatus string

// Envelope statuses.
const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the JSON envelope every endpoint answers with. Result
// carries the session view or history payload; Message carries human-readable
// detail and is the only populated field on errors.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success wraps a payload in an ok envelope.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage wraps a payload in an ok envelope with detail text.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error builds an error envelope from a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
