package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether a named flag is switched on. A flag named
// "disable_fulfillment" is read from the FLAG_DISABLE_FULFILLMENT
// environment variable; truthy values are 1, true, yes and on.
func Enabled(name string) bool {
	raw, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
