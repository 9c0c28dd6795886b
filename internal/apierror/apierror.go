package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/blnkfinance/recordlist/model"
	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrBadRequest         ErrorCode = "BAD_REQUEST"
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrPreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrDownstream         ErrorCode = "DOWNSTREAM_FAILED"
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromActionResult converts a failed record action into an APIError. It returns nil on success.
func FromActionResult(result model.ActionResult, action string) error {
	switch result {
	case model.ResultSuccess:
		return nil
	case model.ResultPreconditionFailed:
		return APIError{Code: ErrPreconditionFailed, Message: action + " is not allowed for this record"}
	case model.ResultNotFound:
		return APIError{Code: ErrNotFound, Message: "record no longer present in its box"}
	case model.ResultDownstreamFailed:
		return APIError{Code: ErrDownstream, Message: action + " was rejected or failed at the notary"}
	}
	return APIError{Code: ErrInternalServer, Message: "unknown action result " + result.String()}
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput, ErrBadRequest:
		return http.StatusBadRequest
	case ErrPreconditionFailed:
		return http.StatusUnprocessableEntity
	case ErrDownstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
