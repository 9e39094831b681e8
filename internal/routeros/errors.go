package routeros

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	goros "github.com/go-routeros/routeros/v3"
)

// ValidationError describes a user-supplied invalid value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// isRetryableError reports whether a failed command is worth one reconnect.
// Device-level errors (bad command, permission denied) are final.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}

	var deviceErr *goros.DeviceError
	if errors.As(err, &deviceErr) {
		return false
	}

	message := strings.ToLower(err.Error())
	if strings.Contains(message, "broken pipe") {
		return true
	}
	if strings.Contains(message, "connection reset") {
		return true
	}
	if strings.Contains(message, "use of closed network connection") {
		return true
	}
	if strings.Contains(message, "connection refused") {
		return true
	}
	if strings.Contains(message, "timeout") {
		return true
	}
	return false
}
