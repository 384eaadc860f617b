package common

import "errors"

// ErrorInvalidInput marks malformed arguments rejected before any I/O.
var ErrorInvalidInput = errors.New("invalid input")
