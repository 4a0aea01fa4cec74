package deployconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigValidationError lists settings that are missing or unusable.
type ConfigValidationError struct {
	Network string
	Missing []string
	Invalid []string
}

func (e *ConfigValidationError) Error() string {
	var parts []string

	switch len(e.Missing) {
	case 0:
	case 1:
		parts = append(parts, fmt.Sprintf("%s is required", e.Missing[0]))
	default:
		parts = append(parts, fmt.Sprintf("the following settings are required: %s", strings.Join(e.Missing, "; ")))
	}
	parts = append(parts, e.Invalid...)

	msg := strings.Join(parts, "; ")
	if e.Network != "" {
		return fmt.Sprintf("invalid config for network '%s': %s", e.Network, msg)
	}
	return msg
}

// ForNetwork tags a ConfigValidationError inside err with network.
func ForNetwork(err error, network string) error {
	var validationErr *ConfigValidationError
	if errors.As(err, &validationErr) {
		validationErr.Network = network
	}
	return err
}
