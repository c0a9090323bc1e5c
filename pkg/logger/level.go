package logger

import "strings"

// ParseLevel maps a textual level (as found in LOG_LEVEL) to a level
// constant. Unknown values fall back to INFO.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "info", "":
		return INFO
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "silence", "silent", "none":
		return SILENCE
	}

	return INFO
}
