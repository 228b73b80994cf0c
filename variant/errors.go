package variant

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration reports an override that cannot be accepted.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrFrozen reports a mutation attempted after Freeze.
	ErrFrozen = errors.New("configuration is frozen")
)

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%v: %s: %s", ErrInvalidConfiguration, e.Key, e.Reason)
	}
	return fmt.Sprintf("%v: %s %s. Got: %v", ErrInvalidConfiguration, e.Key, e.Reason, e.Value)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
