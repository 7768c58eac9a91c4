package reminder

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// LinkGenerator builds messaging deep links such as https://wa.me/48600100200?text=...
type LinkGenerator struct {
	base string
}

func NewLinkGenerator(base string) *LinkGenerator {
	return &LinkGenerator{base: base}
}

// Generate returns the deep link for phone with text prefilled. Only the digits
// of phone are used; a phone without digits is a configuration error.
func (g *LinkGenerator) Generate(phone, text string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", fmt.Errorf("%w: no phone number", ErrConfiguration)
	}
	if g.base == "" {
		return "", fmt.Errorf("%w: messaging.linkbase is empty", ErrConfiguration)
	}

	query := url.Values{}
	query.Set("text", text)
	return g.base + digits.String() + "?" + query.Encode(), nil
}
