package types

import "errors"

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// CodedError is implemented by build errors that carry a stable code and
// the identifier (IP, property, trigger, device name) they refer to.
type CodedError interface {
	error
	Code() string
	Subject() string
}

// NewErrorResponse builds a consistent API error payload.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// ErrorResponseFor unwraps a CodedError from err; anything else is
// reported under fallbackCode.
func ErrorResponseFor(err error, fallbackCode string) ErrorResponse {
	var coded CodedError
	if errors.As(err, &coded) {
		return NewErrorResponse(coded.Code(), coded.Error(), coded.Subject())
	}
	return NewErrorResponse(fallbackCode, err.Error(), nil)
}
