package vonsim

import (
	"errors"
	"fmt"
	"testing"
)

func TestStructuredError_FormatsOpAndMessage(t *testing.T) {
	err := NewError("resolve", ErrCodeOutOfBounds, "logical address 512 out of range")

	if err.Op != "resolve" {
		t.Errorf("Expected Op=resolve, got %s", err.Op)
	}
	if err.Code != ErrCodeOutOfBounds {
		t.Errorf("Expected Code=ErrCodeOutOfBounds, got %s", err.Code)
	}

	expected := "vonsim: logical address 512 out of range (op=resolve)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestProcessError_IncludesPID(t *testing.T) {
	err := NewProcessError("fetch", 7, ErrCodeNoPartition, "process owns no partition")

	if err.PID != 7 {
		t.Errorf("Expected PID=7, got %d", err.PID)
	}

	expected := "vonsim: process owns no partition (op=fetch pid=7)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError_PreservesInnerCodeAndPID(t *testing.T) {
	inner := NewProcessError("resolve", 3, ErrCodeOutOfBounds, "oob")
	wrapped := WrapError("fetch", inner)

	if wrapped.Code != ErrCodeOutOfBounds {
		t.Errorf("Expected wrapped code to carry through, got %s", wrapped.Code)
	}
	if wrapped.PID != 3 {
		t.Errorf("Expected wrapped PID to carry through, got %d", wrapped.PID)
	}
	if wrapped.Op != "fetch" {
		t.Errorf("Expected wrapped Op to be updated, got %s", wrapped.Op)
	}
}

func TestWrapError_PlainErrorGetsUnclassifiedCode(t *testing.T) {
	wrapped := WrapError("load", fmt.Errorf("disk read failed"))
	if wrapped.Code != ErrCodeUnclassified {
		t.Errorf("Expected ErrCodeUnclassified, got %s", wrapped.Code)
	}
	if !errors.Is(wrapped, wrapped) {
		t.Error("expected an *Error to satisfy errors.Is against itself")
	}
}

func TestWrapError_NilReturnsNil(t *testing.T) {
	if WrapError("op", nil) != nil {
		t.Error("expected WrapError(nil) to return nil")
	}
}

func TestIsCode_MatchesAndMisses(t *testing.T) {
	err := NewError("step", ErrCodePartitionExhausted, "no free partition")

	if !IsCode(err, ErrCodePartitionExhausted) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, ErrCodeNoPCBs) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, ErrCodePartitionExhausted) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestError_IsComparesByCode(t *testing.T) {
	a := &Error{Code: ErrCodeMalformedProgram}
	b := &Error{Code: ErrCodeMalformedProgram, Op: "different-op"}

	if !errors.Is(a, b) {
		t.Error("two *Error values with the same code should satisfy errors.Is")
	}
}
