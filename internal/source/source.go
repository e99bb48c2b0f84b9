package source

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/dyne/tabledump/internal/config"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// Record is one row keyed by column name.
type Record map[string]any

// ResultSet is a fully buffered query result.
type ResultSet struct {
	Columns []string
	Records []Record
}

func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// Source is an open connection to the database a table is exported from.
type Source interface {
	Driver() string
	ReadAll(ctx context.Context, table string) (*ResultSet, error)
	Columns(ctx context.Context, table string) ([]string, error)
	Count(ctx context.Context, table string) (int64, error)
	Close() error
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.Source) (Source, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = MySQLDSN(cfg)
		}
		return openSQL(ctx, "mysql", dsn)
	case config.DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = SQLiteDSN(cfg.Path)
		}
		return openSQL(ctx, "sqlite", dsn)
	case config.DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = PostgresDSN(cfg)
		}
		return openPgx(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// MySQLDSN builds a go-sql-driver DSN. parseTime makes DATE and DATETIME
// columns scan as time.Time.
func MySQLDSN(cfg config.Source) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

func PostgresDSN(cfg config.Source) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	return u.String()
}

func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000", path)
}

// normalize turns driver-specific scan results into plain scalars.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case driver.Valuer:
		val, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return normalize(val)
	default:
		return v
	}
}
