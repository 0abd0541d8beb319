// Package errors provides unified error handling for the interview platform.
// Every failure surfaced to the frontend carries a Code and, where the user can
// act on it, a remediation Hint.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies an AppError.
type Code string

const (
	Unknown  Code = "UNKNOWN"
	Internal Code = "INTERNAL"

	// Capture permissions. Blocked needs manual action in system settings,
	// denied can be retried by prompting again.
	PermissionDenied  Code = "PERMISSION_DENIED"
	PermissionBlocked Code = "PERMISSION_BLOCKED"

	// Capture devices.
	DeviceNotFound   Code = "DEVICE_NOT_FOUND"
	DeviceInUse      Code = "DEVICE_IN_USE"
	DeviceConstraint Code = "DEVICE_CONSTRAINT"

	// Speech recognition. No-speech is benign, the others end the listen cycle.
	RecognitionNoSpeech    Code = "RECOGNITION_NO_SPEECH"
	RecognitionAborted     Code = "RECOGNITION_ABORTED"
	RecognitionNotAllowed  Code = "RECOGNITION_NOT_ALLOWED"
	RecognitionUnsupported Code = "RECOGNITION_UNSUPPORTED"

	Network        Code = "NETWORK"
	CaptureInvalid Code = "CAPTURE_INVALID"

	InvalidPhase    Code = "INVALID_PHASE"
	InvalidArgument Code = "INVALID_ARGUMENT"
	AlreadyAnswered Code = "ALREADY_ANSWERED"
	NotFound        Code = "NOT_FOUND"
	Storage         Code = "STORAGE"
)

// Domain is reported in gRPC ErrorInfo details.
const Domain = "interview-coach"

var grpcCodeMap = map[Code]codes.Code{
	Unknown:                codes.Unknown,
	Internal:               codes.Internal,
	PermissionDenied:       codes.PermissionDenied,
	PermissionBlocked:      codes.PermissionDenied,
	DeviceNotFound:         codes.NotFound,
	DeviceInUse:            codes.Unavailable,
	DeviceConstraint:       codes.FailedPrecondition,
	RecognitionNoSpeech:    codes.OutOfRange,
	RecognitionAborted:     codes.Aborted,
	RecognitionNotAllowed:  codes.PermissionDenied,
	RecognitionUnsupported: codes.Unimplemented,
	Network:                codes.Unavailable,
	CaptureInvalid:         codes.FailedPrecondition,
	InvalidPhase:           codes.FailedPrecondition,
	InvalidArgument:        codes.InvalidArgument,
	AlreadyAnswered:        codes.AlreadyExists,
	NotFound:               codes.NotFound,
	Storage:                codes.Internal,
}

var defaultHints = map[Code]string{
	PermissionDenied:  "Allow camera and microphone access when prompted, then try again.",
	PermissionBlocked: "Camera and microphone are blocked. Re-enable them in your system privacy settings and reload.",
	DeviceNotFound:    "No camera or microphone was found. Connect a device and try again.",
	DeviceInUse:       "Another application is using the camera or microphone. Close it and try again.",
	DeviceConstraint:  "The connected device does not support the requested capture settings.",
	Network:           "The interview service is unreachable. Check your connection and retry.",
}

// AppError is the base error type with structured code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Hint     string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status with an ErrorInfo detail attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	info := &errdetails.ErrorInfo{Reason: string(e.Code), Domain: Domain, Metadata: e.Metadata}
	if e.Hint != "" {
		info.Metadata = e.metadataWith("hint", e.Hint)
	}
	if withDetails, err := st.WithDetails(info); err == nil {
		return withDetails
	}
	return st
}

func (e *AppError) metadataWith(key, value string) map[string]string {
	m := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		m[k] = v
	}
	m[key] = value
	return m
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Hint: defaultHints[code]}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	e := New(code, msg)
	e.Cause = err
	return e
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.Domain == Domain {
			e := &AppError{Code: Code(info.Reason), Message: st.Message()}
			for k, v := range info.Metadata {
				if k == "hint" {
					e.Hint = v
					continue
				}
				e.WithMetadata(k, v)
			}
			return e
		}
	}
	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message()}
}

func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.NotFound:
		return NotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return Network
	case codes.PermissionDenied:
		return PermissionDenied
	case codes.FailedPrecondition:
		return InvalidPhase
	case codes.AlreadyExists:
		return AlreadyAnswered
	case codes.Internal:
		return Internal
	default:
		return Unknown
	}
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable returns true if the caller may reasonably try the operation again.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case Network, PermissionDenied, DeviceInUse, RecognitionNoSpeech:
		return true
	default:
		return false
	}
}

// IsBenign reports errors that are logged and swallowed rather than surfaced.
func IsBenign(err error) bool {
	return IsCode(err, RecognitionNoSpeech)
}
