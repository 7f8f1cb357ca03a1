// Package errors provides standardized error handling for conformance checking.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a check failure. The orchestrator stops the run on every
// kind except KindProtocol, which is reported per-request by the stub server.
type Kind string

const (
	KindConfiguration    Kind = "CONFIGURATION"
	KindAuthentication   Kind = "AUTHENTICATION"
	KindDataInsufficient Kind = "DATA_INSUFFICIENT"
	KindTransport        Kind = "TRANSPORT"
	KindProtocol         Kind = "PROTOCOL_VIOLATION"
)

// CheckError represents a structured conformance failure.
type CheckError struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("CheckError[%s]: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a CheckError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// NewConfigurationError creates a fatal settings error; nothing has touched
// the network yet when this is raised.
func NewConfigurationError(message, details string) *CheckError {
	return &CheckError{
		Kind:      KindConfiguration,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationFailure creates a failed-conformance auth error.
func NewAuthenticationFailure(message, details string) *CheckError {
	return &CheckError{
		Kind:      KindAuthentication,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataInsufficiencyError signals that the returned data has too little
// variation to exercise a claimed capability.
func NewDataInsufficiencyError(message, details string) *CheckError {
	return &CheckError{
		Kind:      KindDataInsufficient,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError wraps a network-level failure reaching url.
func NewTransportError(url string, err error) *CheckError {
	return &CheckError{
		Kind:      KindTransport,
		Message:   fmt.Sprintf("request to %s failed", url),
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// NewProtocolViolation describes a malformed inbound envelope or request.
func NewProtocolViolation(message, details string) *CheckError {
	return &CheckError{
		Kind:      KindProtocol,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Wire-level error responses
// ==========================

// ResponseCode is an error code carried in a {code, message} response body.
type ResponseCode string

const (
	CodeAccessDenied    ResponseCode = "AccessDenied"
	CodeBadRequest      ResponseCode = "BadRequest"
	CodeNoSuchFootprint ResponseCode = "NoSuchFootprint"
	CodeNotImplemented  ResponseCode = "NotImplemented"
	CodeTokenExpired    ResponseCode = "TokenExpired"
	CodeInternalError   ResponseCode = "InternalError"
)

// ErrorResponse is the wire shape used by both sides of the protocol.
type ErrorResponse struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var recognizedResponseCodes = map[ResponseCode]bool{
	CodeAccessDenied:    true,
	CodeBadRequest:      true,
	CodeNoSuchFootprint: true,
	CodeNotImplemented:  true,
	CodeTokenExpired:    true,
	CodeInternalError:   true,
}

// IsRecognizedResponseCode reports whether code is one of the six protocol
// error codes.
func IsRecognizedResponseCode(code string) bool {
	return recognizedResponseCodes[ResponseCode(code)]
}
