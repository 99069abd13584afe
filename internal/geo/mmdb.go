package geo

import (
	"fmt"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// MMDB resolves countries from a MaxMind GeoIP2/GeoLite2 database file.
// The reader is safe for concurrent lookups.
type MMDB struct {
	db *maxminddb.Reader
}

// mmdbRecord maps the country portion of the GeoLite2 record structure.
type mmdbRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// OpenMMDB opens a MaxMind database at path.
func OpenMMDB(path string) (*MMDB, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb: %w", err)
	}
	return &MMDB{db: db}, nil
}

func (m *MMDB) CountryCode(ip string) (string, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("invalid IP address: %w", err)
	}

	var record mmdbRecord
	if err := m.db.Lookup(addr).Decode(&record); err != nil {
		return "", fmt.Errorf("mmdb lookup failed: %w", err)
	}
	if record.Country.ISOCode == "" {
		return "", ErrUnknown
	}
	return record.Country.ISOCode, nil
}

func (m *MMDB) Close() error {
	return m.db.Close()
}
