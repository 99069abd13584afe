// Package geo resolves visitor IP addresses to ISO country codes for
// country-keyed rules.
package geo

import "errors"

// ErrUnknown is returned when the country for an IP cannot be determined.
// Country rules treat it as an empty needle, so unknown origins simply fail
// to match rather than aborting evaluation.
var ErrUnknown = errors.New("country unknown")

// Resolver looks up the ISO 3166-1 alpha-2 country code for an IP address.
type Resolver interface {
	CountryCode(ip string) (string, error)
}

// Static resolves from a fixed ip -> country map. Useful in tests and for
// deployments without a geo database.
type Static map[string]string

func (s Static) CountryCode(ip string) (string, error) {
	cc, ok := s[ip]
	if !ok {
		return "", ErrUnknown
	}
	return cc, nil
}

// Unavailable is the resolver used when no geo database is configured.
// Every lookup reports an unknown country.
type Unavailable struct{}

func (Unavailable) CountryCode(string) (string, error) { return "", ErrUnknown }
