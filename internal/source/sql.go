package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dyne/tabledump/internal/schema"
	_ "modernc.org/sqlite"
)

// SQL reads through database/sql; it serves the mysql and sqlite drivers.
type SQL struct {
	db      *sql.DB
	driver  string
	dialect schema.Dialect
}

func openSQL(ctx context.Context, driverName, dsn string) (*SQL, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", driverName, err)
	}
	return NewSQL(db, driverName)
}

// NewSQL wraps an already opened handle.
func NewSQL(db *sql.DB, driverName string) (*SQL, error) {
	d, err := schema.ForDriver(driverName)
	if err != nil {
		return nil, err
	}
	return &SQL{db: db, driver: driverName, dialect: d}, nil
}

func (s *SQL) Driver() string { return s.driver }

func (s *SQL) ReadAll(ctx context.Context, table string) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.SelectAll(table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %s: %w", table, err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(values[i])
		}
		rs.Records = append(rs.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return rs, nil
}

func (s *SQL) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ProbeColumns(table))
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	return cols, nil
}

func (s *SQL) Count(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, s.dialect.CountRows(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
