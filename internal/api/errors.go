package api

import (
	"errors"
	"fmt"
	"time"
)

const invalidInputErrorTemplateConstant = "%s: %s"

// APIError is the uniform failure type surfaced by every client operation.
// StatusCode 0 marks transport-level failures where no response was received.
type APIError struct {
	Message    string
	StatusCode int
	Data       any
	Timestamp  time.Time
}

// Error returns the user-presentable message.
func (apiError *APIError) Error() string {
	return apiError.Message
}

// AsAPIError unwraps err into an *APIError when one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError, true
	}
	return nil, false
}

// InvalidInputError surfaces validation issues for operation inputs before
// any network call is made.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}
