package evm

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHexUint64 parses a 0x-prefixed hex quantity.
func ParseHexUint64(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("hex quantity %q: missing 0x prefix", s)
	}
	digits := s[2:]
	if digits == "" {
		return 0, fmt.Errorf("hex quantity %q: no digits", s)
	}
	for _, r := range digits {
		if !isHexDigit(r) {
			return 0, fmt.Errorf("hex quantity %q: invalid digit %q", s, r)
		}
	}
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("hex quantity %q: %w", s, err)
	}
	return n, nil
}

// FormatHexUint64 renders n as a 0x-prefixed hex quantity.
func FormatHexUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
