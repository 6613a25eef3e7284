package common

type ErrorResponse struct {
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

// NewCodedErrorResponse carries a machine readable code and the payload that
// explains the failure.
func NewCodedErrorResponse(code, message string, data interface{}) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}
