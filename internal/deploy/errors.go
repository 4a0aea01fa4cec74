package deploy

import (
	"fmt"
	"strings"
)

// MissingCredentialsError lists the environment variables a remote deployment needs.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}
