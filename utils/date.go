package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseExpiry parses card expirations like "09/27" or "09/2027" into a
// month and a four digit year.
func ParseExpiry(s string) (month, year int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid expiry format: %q", s)
	}

	month, err = strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid expiry month: %q", parts[0])
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid expiry year: %q", parts[1])
	}
	switch len(parts[1]) {
	case 2:
		year += 2000
	case 4:
	default:
		return 0, 0, fmt.Errorf("invalid expiry year: %q", parts[1])
	}

	return month, year, nil
}
