package store

import (
	"regexp"
	"strings"
)

// DSN type identifiers returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite"
)

// Opts holds store configuration collected from Options.
type Opts struct {
	DSN string
}

// Option configures the store.
type Option func(*Opts)

// WithSQLiteDSN configures a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as postgres or sqlite. URL-style and
// key=value PostgreSQL connection strings are recognized; anything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// serialPattern extracts the serial value from inputs like "SN: 12345",
// "sn.12345" or "SN 12345".
var serialPattern = regexp.MustCompile(`(?i)SN[:.]?\s*(\w+)`)

// HasSerialPrefix reports whether the input looks like a serial-number
// submission (an "SN"-prefixed value).
func HasSerialPrefix(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	return strings.HasPrefix(lower, "sn:") || strings.HasPrefix(lower, "sn.") || strings.HasPrefix(lower, "sn ")
}

// NormalizeSerial strips the "SN" prefix and surrounding noise from a
// user-supplied serial number.
func NormalizeSerial(input string) string {
	if m := serialPattern.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return strings.TrimSpace(strings.ReplaceAll(input, "SN:", ""))
}
