// Package fault defines the failure taxonomy for the video processing
// pipeline. Every stage wraps its failures in a *Error carrying a Code;
// the worker uses the code to decide between queue-level retry and an
// immediate terminal failure.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies a class of pipeline failure.
type Code string

const (
	// CodeSourceUnavailable indicates the source could not be fetched
	// (network error, unsupported or geo-blocked URL, corrupt stream).
	CodeSourceUnavailable Code = "SourceUnavailable"
	// CodeInvalidMedia indicates the acquired file is unreadable or uses
	// an unsupported container. Deterministic for a given input.
	CodeInvalidMedia Code = "InvalidMedia"
	// CodeInvalidClipBounds indicates clip selection produced a
	// non-positive duration. Deterministic for a given input.
	CodeInvalidClipBounds Code = "InvalidClipBounds"
	// CodeTranscodeFailed indicates the encoder failed.
	CodeTranscodeFailed Code = "TranscodeFailed"
	// CodeUploadFailed indicates the artifact could not be published.
	CodeUploadFailed Code = "UploadFailed"
	// CodeInternal catches anything unanticipated, including panics
	// recovered by the worker. Treated as non-transient.
	CodeInternal Code = "InternalProcessingError"
)

// retryable codes are eligible for queue-level retry with backoff.
// Deterministic-input errors and internal faults fail immediately.
var retryable = map[Code]bool{
	CodeSourceUnavailable: true,
	CodeTranscodeFailed:   true,
	CodeUploadFailed:      true,
}

// Error is a classified pipeline failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err under code. A nil err returns nil. An err that is
// already classified keeps its original code.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Code: code, Err: err}
}

// Errorf classifies a newly formatted error under code.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the classification of err, or CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInternal
}

// Retryable reports whether err is a transient-candidate failure that the
// queue should redeliver.
func Retryable(err error) bool {
	return retryable[CodeOf(err)]
}
