package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrHardwareAbsent   = errors.New("hardware absent")
	ErrMiddlewareComm   = errors.New("middleware communication error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrNotFound         = errors.New("not found")
	ErrTimedOut         = errors.New("timed out")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotReady         = errors.New("middleware not ready")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInvalidOperation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short, stable label for the marker carried by err. It is used
// for metric labels and the error_kind log field.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrHardwareAbsent):
		return "hardware_absent"
	case errors.Is(err, ErrMiddlewareComm):
		return "middleware_comm"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimedOut):
		return "timed_out"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	default:
		return "invalid_operation"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
