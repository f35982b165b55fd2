package liqpay

import (
	"fmt"
	"strings"
)

// ParamValidationError reports invalid or missing checkout parameters and
// signature mismatches. It signals a programming error or a tampered payload:
// fatal for the request, never retried.
type ParamValidationError struct {
	Reason string
	Fields []string
}

func (e *ParamValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("liqpay: %s", e.Reason)
	}
	return fmt.Sprintf("liqpay: %s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

func newValidationError(reason string, fields ...string) *ParamValidationError {
	return &ParamValidationError{Reason: reason, Fields: fields}
}
