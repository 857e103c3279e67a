package declaration

import (
	"strings"

	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
)

// nissLength is the fixed width of a national identification number as the
// declaration service expects it.
const nissLength = 11

// NormalizeNISS brings a worker's national number into the fixed-width
// numeric form the declaration service accepts: punctuation and spaces
// stripped, left-padded with zeros to 11 digits. Input that is not numeric
// after stripping, or longer than 11 digits, cannot be normalized and fails
// fast with a validation error.
func NormalizeNISS(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
			// separator characters people type into forms
		default:
			return "", domainerr.NewValidationFailed("national number contains invalid characters", "nationalNumber")
		}
	}

	digits := b.String()
	if digits == "" {
		return "", domainerr.NewValidationFailed("national number is empty", "nationalNumber")
	}
	if len(digits) > nissLength {
		return "", domainerr.NewValidationFailed("national number is too long", "nationalNumber")
	}

	return strings.Repeat("0", nissLength-len(digits)) + digits, nil
}
