package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain"
)

const (
	maxCustomerField = 100
	maxQuery         = 50
	maxQuantity      = 99
)

var (
	reQ  = regexp.MustCompile(`^[\p{L}\p{N} _'.,\-]*$`)
	reCI = regexp.MustCompile(`^[^\p{C}<>]+$`)
)

// CustomerName trims and requires a non-blank name of reasonable length.
func CustomerName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxCustomerField {
		return "", false
	}
	return s, true
}

// CustomerID is the identity document number (CI). Any printable text is
// accepted ("1234567-1B", "LP 123/45") except angle brackets.
func CustomerID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxCustomerField {
		return "", false
	}
	return s, reCI.MatchString(s)
}

// Q validates a search term. Empty means "everything".
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxQuery {
		s = string([]rune(s)[:maxQuery])
	}
	return s, reQ.MatchString(s)
}

// Quantity parses a requested quantity. Values below 1 are passed through
// (they remove the entry); large values are clamped.
func Quantity(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return ClampQuantity(n), true
}

// ClampQuantity caps n at the largest quantity one entry may hold.
func ClampQuantity(n int) int {
	if n > maxQuantity {
		return maxQuantity
	}
	return n
}

// Page parses a page number, defaulting to 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ID validates a positive numeric product id.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func Kind(s string) (domain.CartKind, bool) {
	k := domain.CartKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}
