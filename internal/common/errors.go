package common

import (
	"errors"
	"net/http"
)

// Error codes shared across the gateway. The payment flow maps its failure
// taxonomy onto these: configuration problems and bad input are the caller's
// to fix, provider rejections carry the provider's own status, and upstream
// connectivity problems are retryable by re-invoking the action.
const (
	CodeConfigMissing    = "CONFIG_MISSING"
	CodeInvalidParams    = "INVALID_PARAMS"
	CodeProviderRejected = "PROVIDER_REJECTED"
	CodeUpstream         = "UPSTREAM_UNAVAILABLE"
	CodeOrderDataInvalid = "ORDER_DATA_INVALID"
	CodeOrderNotFound    = "ORDER_NOT_FOUND"
	CodeCheckoutInFlight = "CHECKOUT_IN_FLIGHT"
	CodeSimulationFailed = "SIMULATION_FAILED"
	CodeSimulationReplay = "SIMULATION_ALREADY_DONE"
	CodeInternal         = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ConfigError reports a missing operator-supplied setting.
func ConfigError(message string) *AppError {
	return NewAppError(CodeConfigMissing, message, http.StatusBadRequest, nil)
}

// ValidationError reports invalid caller input.
func ValidationError(message string) *AppError {
	return NewAppError(CodeInvalidParams, message, http.StatusBadRequest, nil)
}

// ProviderError carries a payment provider rejection with the provider's status.
func ProviderError(message string, status int, err error) *AppError {
	if status < 400 {
		status = http.StatusBadGateway
	}
	return NewAppError(CodeProviderRejected, message, status, err)
}

// UpstreamError reports a network-level failure talking to a collaborator.
func UpstreamError(message string, err error) *AppError {
	return NewAppError(CodeUpstream, message, http.StatusBadGateway, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// WriteError renders err through the canonical error envelope, mapping
// AppError codes and statuses and falling back to a 500 for anything else.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		JSONError(w, http.StatusInternalServerError, CodeInternal, "unknown error", nil)
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = CodeInternal
		}
		JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
}
