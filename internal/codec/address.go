package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeAddress uppercases an address cell and strips one leading
// address-space letter ("D100" -> "100"). Blank input yields "0".
// Value, trigger and return addresses all go through here.
func NormalizeAddress(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "0"
	}
	if r, size := utf8.DecodeRuneInString(s); !unicode.IsDigit(r) {
		s = s[size:]
	}
	if s == "" {
		return "0"
	}
	return s
}

// ParseAddress normalizes raw and converts it to a register address.
func ParseAddress(raw string) (int, error) {
	s := NormalizeAddress(raw)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("address %q is not a register number", raw)
	}
	return n, nil
}
