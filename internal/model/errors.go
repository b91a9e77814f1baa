package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate     = errors.New("invalid calendar date")
	ErrInvalidAmount   = errors.New("unparsable amount")
	ErrZeroAmount      = errors.New("amount must not be zero")
	ErrUnknownCurrency = errors.New("currency not configured")
)

// InvalidRecordError rejects a raw record before it reaches the core.
type InvalidRecordError struct {
	Row   int // 1-based file row including header; 0 if unknown
	Field string
	Value string
	Err   error
}

func (e *InvalidRecordError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidRecordError) Unwrap() error { return e.Err }
