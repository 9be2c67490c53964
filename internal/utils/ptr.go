package utils

import (
	"strings"
	"time"
)

func Ptr[T any](v T) *T {
	return &v
}

// OrZero dereferences v, or returns the zero value of T for nil.
func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// StringOrNil trims s and returns nil when nothing is left.
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// UTC copies an optional timestamp into UTC.
func UTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return Ptr(t.UTC())
}
