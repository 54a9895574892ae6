package errors

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "order type has no lane mapping".
	Message string

	// Code (required) is the user-defined error code string.
	// E.g. "unroutable_order_type".
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occurred on, if any.
	Object interface{}

	// Severity is derived from Code via Classify.
	Severity Severity

	// Category is derived from Code via Classify.
	Category Category
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
// Severity and category are resolved from the code.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	severity, category := Classify(ErrorCode(code))
	return &ErrorDetails{
		Message:  message,
		Code:     code,
		Field:    field,
		Severity: severity,
		Category: category,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	details := NewErrorDetails(message, code, field)
	details.Object = object
	return details
}

// Error() is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code string) bool {
	errDetails, ok := err.(*ErrorDetails)
	if !ok {
		return false
	}

	return errDetails.Code == code
}
