// Package phone turns user-typed phone numbers into the digit-only contact keys
// used as WhatsApp destinations and as login aliases.
package phone

import "strings"

// AliasDomain is the synthetic email domain used for phone-based credentials.
const AliasDomain = "claudia.ai"

// MinLocalDigits is the minimum number of digits forms accept for a local number.
const MinLocalDigits = 7

// CountryCode is a selectable dialing prefix.
type CountryCode struct {
	Code    string
	Country string
}

// CountryCodes lists the prefixes offered by the registration and login forms.
var CountryCodes = []CountryCode{
	{Code: "+57", Country: "Colombia"},
	{Code: "+52", Country: "México"},
	{Code: "+54", Country: "Argentina"},
	{Code: "+56", Country: "Chile"},
	{Code: "+51", Country: "Perú"},
	{Code: "+593", Country: "Ecuador"},
	{Code: "+58", Country: "Venezuela"},
	{Code: "+34", Country: "España"},
	{Code: "+1", Country: "Estados Unidos"},
}

// Digits removes every non-digit character from s.
func Digits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Normalize concatenates the country code digits and the local number digits.
// A leading trunk zero is dropped, and numbers that already carry the country
// code are returned unchanged.
func Normalize(raw, countryCode string) string {
	cleaned := Digits(raw)
	code := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")

	switch {
	case strings.HasPrefix(cleaned, "0"):
		return code + cleaned[1:]
	case strings.HasPrefix(cleaned, code):
		return cleaned
	default:
		return code + cleaned
	}
}

// LocalDigits reports how many digits raw contains.
func LocalDigits(raw string) int {
	return len(Digits(raw))
}

// Alias returns the synthetic login email for a normalized number.
func Alias(digits string) string {
	return digits + "@" + AliasDomain
}

// FromAlias extracts the digits from an alias email.
func FromAlias(email string) (string, bool) {
	local, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok || domain != AliasDomain || local == "" {
		return "", false
	}
	if Digits(local) != local {
		return "", false
	}
	return local, true
}
