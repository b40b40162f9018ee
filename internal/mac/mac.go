// Package mac canonicalizes MAC addresses from the formats seen in the
// wild (colon, dash, dot separated and bare hex) into a single lowercase
// colon-separated representation used as the host identity key.
package mac

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat is returned for input that cannot be canonicalized
var ErrInvalidFormat = errors.New("invalid MAC address format")

// Normalize converts a MAC address to lowercase colon-separated form,
// 6 groups of 2 hex digits. Accepted inputs include aa:bb:cc:dd:ee:ff,
// AA-BB-CC-DD-EE-FF, aabb.ccdd.eeff and aabbccddeeff.
func Normalize(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, "-", ":")
	s = strings.ReplaceAll(s, ".", ":")

	parts := strings.Split(s, ":")

	if len(parts) == 3 {
		// Cisco triplet form aabb.ccdd.eeff, each group splits into octets
		var expanded []string
		for _, part := range parts {
			if len(part)%2 != 0 {
				return "", fmt.Errorf("%w: %s", ErrInvalidFormat, input)
			}
			for i := 0; i < len(part); i += 2 {
				expanded = append(expanded, part[i:i+2])
			}
		}
		parts = expanded
	}

	if len(parts) != 6 {
		clean := strings.ReplaceAll(s, ":", "")
		if len(clean) != 12 {
			return "", fmt.Errorf("%w: %s", ErrInvalidFormat, input)
		}
		parts = make([]string, 0, 6)
		for i := 0; i < 12; i += 2 {
			parts = append(parts, clean[i:i+2])
		}
	}

	for _, part := range parts {
		if len(part) != 2 || !isHex(part[0]) || !isHex(part[1]) {
			return "", fmt.Errorf("%w: %s", ErrInvalidFormat, input)
		}
	}

	return strings.Join(parts, ":"), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
