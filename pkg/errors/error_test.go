package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test 1: ErrorDetails carries the severity and category of its code
func TestNewErrorDetails_ClassifiesCode(t *testing.T) {
	details := NewErrorDetails("order type has no lane mapping", string(ErrUnroutableOrderType), "orderType")

	assert.Equal(t, SeverityHigh, details.Severity)
	assert.Equal(t, CategoryValidation, details.Category)

	details = NewErrorDetails("settlement transaction failed", string(ErrCommitFailed), "")
	assert.Equal(t, SeverityCritical, details.Severity)
	assert.Equal(t, CategoryDatabase, details.Category)
}

// Test 2: An unknown code falls back to medium/unknown
func TestClassify_UnknownCode(t *testing.T) {
	severity, category := Classify(ErrorCode("no_such_code"))

	assert.Equal(t, SeverityMedium, severity)
	assert.Equal(t, CategoryUnknown, category)
}

// Test 3: NewErrorDetailsWithObject keeps the classification and the object
func TestNewErrorDetailsWithObject(t *testing.T) {
	details := NewErrorDetailsWithObject("maker vanished during commit", string(ErrMakerGone), "makerOrderID", "m1")

	assert.Equal(t, "m1", details.Object)
	assert.Equal(t, SeverityMedium, details.Severity)
	assert.Equal(t, CategoryBusinessLogic, details.Category)
}

// Test 4: ErrorCodeEquals matches on the code, not the message
func TestErrorCodeEquals(t *testing.T) {
	details := NewErrorDetails("duplicate insert event", string(ErrDuplicateOrderEvent), "orderID")

	assert.True(t, ErrorCodeEquals(details, string(ErrDuplicateOrderEvent)))
	assert.False(t, ErrorCodeEquals(details, string(ErrEnqueueFailed)))
	assert.False(t, ErrorCodeEquals(fmt.Errorf("plain error"), string(ErrDuplicateOrderEvent)))
}

// Test 5: Wrap keeps the cause reachable and captures a stack trace
func TestErrorTracer_Wrap(t *testing.T) {
	cause := fmt.Errorf("broker unavailable")
	traced := NewTracer("failed to publish market update").Wrap(cause)

	assert.Equal(t, "failed to publish market update", traced.Error())
	assert.True(t, errors.Is(traced, cause))
	require.NotNil(t, traced.StackTrace())
}

// Test 6: Wrapping an already traced error does not re-capture the stack
func TestErrorTracer_WrapPreservesExistingStack(t *testing.T) {
	inner := TracerFromError(fmt.Errorf("connection reset"))
	outer := NewTracer("failed to publish market update").Wrap(inner)

	assert.Same(t, inner, outer.Unwrap())
	assert.Equal(t, inner.StackTrace(), outer.StackTrace())
}

// Test 7: TracerFromError reuses the cause's message
func TestTracerFromError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	traced := TracerFromError(cause)

	assert.Equal(t, "connection reset", traced.Error())
	assert.True(t, errors.Is(traced, cause))
}
