package space

import (
	"fmt"

	"github.com/pricingops/space-go/internal/cache"
)

// ConfigError reports an invalid client or cache configuration. It is
// surfaced synchronously from New and is fatal to client startup.
type ConfigError = cache.ConfigError

// APIError is a failed platform call. Remote errors propagate to the
// caller unchanged; the cache layer only runs its population and
// invalidation steps after a successful call.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("space: %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}
