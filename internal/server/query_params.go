package server

import (
	"strconv"
	"strings"
)

// parseOptionalBool treats empty input as false.
func parseOptionalBool(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
