package vonsim

import (
	"errors"
	"fmt"
)

// Error is a structured simulation error carrying the operation that
// failed, the process it concerns (if any), and a classification code.
type Error struct {
	Op    string       // Operation that failed (e.g., "resolve", "load", "fetch")
	PID   int          // Process ID (0 if not applicable)
	Code  SimErrorCode // High-level error category
	Msg   string       // Human-readable message
	Inner error        // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.PID != 0 {
		return fmt.Sprintf("vonsim: %s (op=%s pid=%d)", msg, e.Op, e.PID)
	}
	if e.Op != "" {
		return fmt.Sprintf("vonsim: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("vonsim: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// SimErrorCode names the high-level error categories from the error
// table: each maps to one of the policies (deferred, fatal-to-process,
// logged-and-continue, or fatal-to-run).
type SimErrorCode string

const (
	// ErrCodePartitionExhausted: no free partition large enough. Non-fatal;
	// the caller defers the process into a pending list for later retry.
	ErrCodePartitionExhausted SimErrorCode = "partition exhausted"
	// ErrCodeOutOfBounds: a logical address fell outside the owning
	// process's partition. Fatal to that process.
	ErrCodeOutOfBounds SimErrorCode = "logical address out of bounds"
	// ErrCodeNoPartition: a process attempted an access before it was
	// ever allocated a partition. Fatal to that process.
	ErrCodeNoPartition SimErrorCode = "process owns no partition"
	// ErrCodeMalformedProgram: a process file failed to parse. Non-fatal
	// at the run level; that file is skipped.
	ErrCodeMalformedProgram SimErrorCode = "malformed program file"
	// ErrCodeUnknownInstruction: Execute saw an opcode it doesn't model.
	// Logged and treated as a no-op.
	ErrCodeUnknownInstruction SimErrorCode = "unknown instruction"
	// ErrCodeNoPCBs: no usable process was loaded at all. Fatal to the run.
	ErrCodeNoPCBs SimErrorCode = "no usable process control blocks"
	// ErrCodeUnclassified covers errors WrapError receives that didn't
	// already carry one of the codes above.
	ErrCodeUnclassified SimErrorCode = "unclassified error"
)

// NewError creates a structured error.
func NewError(op string, code SimErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewProcessError creates a structured error naming the affected process.
func NewProcessError(op string, pid int, code SimErrorCode, msg string) *Error {
	return &Error{Op: op, PID: pid, Code: code, Msg: msg}
}

// WrapError wraps an existing error with simulator context, preserving
// an inner *Error's code and PID if present.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if e, ok := inner.(*Error); ok {
		return &Error{Op: op, PID: e.PID, Code: e.Code, Msg: e.Msg, Inner: e.Inner}
	}
	return &Error{Op: op, Code: ErrCodeUnclassified, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code SimErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
