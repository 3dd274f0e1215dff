package errors

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse renders err the way the operator API returns it
func NewErrorResponse(err error) ErrorResponse {
	details := GetReportableDetails(err)
	if len(details) == 0 {
		details = nil
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display:       GetHint(err),
			InternalError: err.Error(),
			Details:       details,
		},
	}
}
