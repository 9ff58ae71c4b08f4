package database

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// mysqlEscaper mirrors the backslash escaping MySQL applies to string
// literals when NO_BACKSLASH_ESCAPES is off.
var mysqlEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
	"'", `\'`,
	`"`, `\"`,
	`\`, `\\`,
)

// MySQLDialect implements the Dialect interface for MySQL and MariaDB.
// It also satisfies query.Dialect through structural typing.
type MySQLDialect struct{}

func (d *MySQLDialect) Name() string                 { return "mysql" }
func (d *MySQLDialect) DriverName() string           { return "mysql" }
func (d *MySQLDialect) Placeholder(index int) string { return "?" }

// DSN parses dsn with the driver and turns on parseTime so DATETIME columns
// scan as time.Time.
func (d *MySQLDialect) DSN(dsn string) (string, error) {
	if dsn == "" {
		return "", errEmptyDSN
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (d *MySQLDialect) Escape(s string) string {
	return mysqlEscaper.Replace(s)
}

func (d *MySQLDialect) QuoteIdent(name string) string {
	return quoteParts(name, "`")
}
