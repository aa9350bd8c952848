package config

import (
	"os"
	"strings"
	"time"
)

const zoneinfoMarker = "/zoneinfo/"

// SystemTimezone returns the IANA name of the local zone, or "UTC" when it
// cannot be determined.
func SystemTimezone() string {
	return systemTimezone("/etc/timezone", "/etc/localtime")
}

func systemTimezone(timezoneFile, localtimeLink string) string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); validZone(tz) {
		return tz
	}

	if data, err := os.ReadFile(timezoneFile); err == nil {
		if tz := strings.TrimSpace(string(data)); validZone(tz) {
			return tz
		}
	}

	if target, err := os.Readlink(localtimeLink); err == nil {
		if i := strings.LastIndex(target, zoneinfoMarker); i >= 0 {
			if tz := target[i+len(zoneinfoMarker):]; validZone(tz) {
				return tz
			}
		}
	}

	return "UTC"
}

func validZone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
