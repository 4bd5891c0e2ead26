package handler

type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewValidationErrorResponse reports per-field form errors.
func NewValidationErrorResponse(errs map[string]string) *Response {
	return &Response{
		Status:  "error",
		Message: "Validation failed",
		Errors:  errs,
	}
}
