package schedule

import (
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("invalid input")

var (
	ErrInvalidStartDate  = fmt.Errorf("%w: start date is required", ErrInvalidInput)
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	ErrEmptyRates        = fmt.Errorf("%w: at least one rate is required", ErrInvalidInput)
	ErrInvalidGSTRate    = fmt.Errorf("%w: gst rate must be between 0 and 1", ErrInvalidInput)
	ErrInvalidDuration   = fmt.Errorf("%w: duration must be at least one year", ErrInvalidInput)
)
