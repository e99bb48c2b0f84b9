package schema

import (
	"fmt"
	"strings"
)

// Dialect captures the few SQL differences between the supported sources.
type Dialect struct {
	Name  string
	quote byte
}

var (
	MySQL    = Dialect{Name: "mysql", quote: '`'}
	Postgres = Dialect{Name: "postgres", quote: '"'}
	SQLite   = Dialect{Name: "sqlite", quote: '"'}
)

func ForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver: %s", driver)
	}
}

func (d Dialect) QuoteIdent(name string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteTable quotes each dot-separated part, so "reports.surveyData"
// addresses a table in another schema or database.
func (d Dialect) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

func (d Dialect) SelectAll(table string) string {
	return "SELECT * FROM " + d.QuoteTable(table)
}

func (d Dialect) CountRows(table string) string {
	return "SELECT COUNT(1) FROM " + d.QuoteTable(table)
}

// ProbeColumns returns a query that yields the column list and no rows.
func (d Dialect) ProbeColumns(table string) string {
	return d.SelectAll(table) + " LIMIT 0"
}
