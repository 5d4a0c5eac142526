// internal/config/database.go
package config

import (
	"fmt"
	"strings"
)

// DSN builds the postgres connection string. Timestamps are stored in UTC;
// an empty password is omitted so local trust-auth setups work unchanged.
func (d *DatabaseConfig) DSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", d.Host),
		fmt.Sprintf("port=%s", d.Port),
		fmt.Sprintf("user=%s", d.User),
	}
	if d.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", d.Password))
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", d.Database),
		fmt.Sprintf("sslmode=%s", d.SSLMode),
		"TimeZone=UTC",
	)
	return strings.Join(parts, " ")
}
