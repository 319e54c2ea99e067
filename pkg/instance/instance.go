package instance

import (
	"os"
	"strings"
)

// GetID returns the worker instance identifier, falling back to the host
// name and then to a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
