// Package lifecycle holds shared timing defaults for component start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds how long a component may take to start or stop.
const DefaultTimeout = 15 * time.Second
