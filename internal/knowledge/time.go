package knowledge

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to control timestamps in assertions.
var timeNow = time.Now

// Now returns the current UTC time formatted as RFC3339.
func Now() string {
	return timeNow().UTC().Format(time.RFC3339)
}
