package model

// Response is the envelope every API reply is wrapped in.
type Response struct {
	Data    any     `json:"data,omitempty"`
	Error   *string `json:"error,omitempty"`
	Message string  `json:"message"`
}

// ErrorResponse builds a failed envelope carrying msg.
func ErrorResponse(msg string) Response {
	return Response{Error: &msg, Message: "Error"}
}
