package pix

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrEmptyAmount    = errors.New("amount string cannot be empty")
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

// ParseAmount converts a provider decimal string into integer cents. The
// conversion is purely textual, never through a float: "1" parses to 100,
// "1.5" and "1.50" to 150. More than two fraction digits or any non-digit
// character is rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}

	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(fracPart) > 2 {
		return 0, fmt.Errorf("invalid amount %q: more than two fraction digits", s)
	}

	var units int64
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q: unexpected character %q", s, c)
		}
		digit := int64(c - '0')
		if units > (math.MaxInt64-digit)/10 {
			return 0, fmt.Errorf("invalid amount %q: overflow", s)
		}
		units = units*10 + digit
	}
	// The whole-unit total still has to survive the shift into cents
	if units > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("invalid amount %q: overflow", s)
	}
	cents := units * 100

	// Right-pad the fraction to two digits: "5" means fifty cents
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	for i, c := range fracPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q: unexpected character %q", s, c)
		}
		if i == 0 {
			cents += int64(c-'0') * 10
		} else {
			cents += int64(c - '0')
		}
	}

	return cents, nil
}

// FormatAmount renders integer cents as the provider decimal string
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
