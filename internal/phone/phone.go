// Package phone canonicalizes user-supplied phone numbers so that every
// spelling of one number maps to one ledger entry and one identity.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalid = errors.New("invalid phone number")

// Normalizer parses numbers with a default region for inputs lacking a
// country code.
type Normalizer struct {
	defaultRegion string
}

func NewNormalizer(defaultRegion string) *Normalizer {
	return &Normalizer{defaultRegion: strings.ToUpper(defaultRegion)}
}

// Normalize returns the E.164 form of raw, e.g. "+1 (555) 123-4567" -> "+15551234567".
// Numbers are accepted when their length is possible for the region; carrier
// range validity is not required.
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}

	num, err := phonenumbers.Parse(raw, n.defaultRegion)
	if err != nil {
		return "", ErrInvalid
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalid
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// PlaceholderEmail derives the synthetic email of a phone-only account from a
// normalized number: "+15551234567" -> "15551234567@domain".
func PlaceholderEmail(normalized, domain string) string {
	return strings.TrimPrefix(normalized, "+") + "@" + domain
}
