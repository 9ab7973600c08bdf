package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	separatorRe = regexp.MustCompile(`[\s\-.]+`)
	legacyRe    = regexp.MustCompile(`^([A-Z]{3})([0-9]{4})$`)
	mercosulRe  = regexp.MustCompile(`^([A-Z]{3})([0-9][A-Z][0-9]{2})$`)
)

// ParsedPlate holds a vehicle plate in canonical form.
type ParsedPlate struct {
	Letters  string
	Digits   string
	Mercosul bool
}

// String renders the plate as "ABC-1234" or "ABC-1D23".
func (p ParsedPlate) String() string {
	return p.Letters + "-" + p.Digits
}

// ParsePlate recognises the legacy Brazilian format (ABC1234) and the Mercosul
// format (ABC1D23), ignoring case, spaces, dots and hyphens.
func ParsePlate(raw string) (ParsedPlate, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = separatorRe.ReplaceAllString(s, "")

	if m := mercosulRe.FindStringSubmatch(s); m != nil {
		return ParsedPlate{Letters: m[1], Digits: m[2], Mercosul: true}, nil
	}
	if m := legacyRe.FindStringSubmatch(s); m != nil {
		return ParsedPlate{Letters: m[1], Digits: m[2]}, nil
	}
	return ParsedPlate{}, fmt.Errorf("unable to parse plate: %q", raw)
}

// NormalizePlate returns the canonical plate, or the trimmed upper-case input
// when it is not a recognised plate.
func NormalizePlate(raw string) string {
	if p, err := ParsePlate(raw); err == nil {
		return p.String()
	}
	return strings.ToUpper(strings.TrimSpace(raw))
}
