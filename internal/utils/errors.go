package utils

import "errors"

// ErrInvalidDate is returned for well-formed tokens outside the calendar, e.g. 31.04.2025
var ErrInvalidDate = errors.New("date is not a valid calendar date")
