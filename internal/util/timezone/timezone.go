package timezone

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// currentLocation holds the process-wide display timezone.
var currentLocation *time.Location

// Initialize sets the timezone used for event timestamps. An empty name
// falls back to the TZ environment variable, then UTC.
func Initialize(name string) {
	if name == "" {
		name = os.Getenv("TZ")
	}
	if name == "" {
		name = "UTC"
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("Failed to load timezone %s: %v. Falling back to UTC.", name, err)
		currentLocation = time.UTC
		return
	}

	log.Infof("Timezone set to %s", name)
	currentLocation = loc
}

// Now returns the current time in the configured timezone.
func Now() time.Time {
	if currentLocation == nil {
		Initialize("")
	}
	return time.Now().In(currentLocation)
}

// Format formats t in the configured timezone.
func Format(t time.Time, layout string) string {
	if currentLocation == nil {
		Initialize("")
	}
	return t.In(currentLocation).Format(layout)
}

// ISO8601 formats t as RFC 3339 in the configured timezone.
func ISO8601(t time.Time) string {
	return Format(t, time.RFC3339)
}
