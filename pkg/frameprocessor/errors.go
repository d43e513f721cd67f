package frameprocessor

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is returned when a quantum is empty or does not fit
// the output buffer. The missing part of the output is filled with silence.
var ErrMalformedInput = errors.New("malformed input quantum")

// ConfigurationError is returned when a configuration is rejected.
// The previously accepted configuration stays in effect.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
