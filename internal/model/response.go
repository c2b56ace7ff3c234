package model

// Response is the envelope used for error responses
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *string     `json:"error,omitempty"`
	Message string      `json:"message"`
}

// ErrorResponse builds a Response carrying only an error message.
func ErrorResponse(errMsg, message string) Response {
	return Response{
		Error:   &errMsg,
		Message: message,
	}
}
