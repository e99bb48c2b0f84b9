package source

import (
	"context"
	"fmt"

	"github.com/dyne/tabledump/internal/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the part of *pgxpool.Pool the postgres source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type Pgx struct {
	db Querier
}

func openPgx(ctx context.Context, dsn string) (*Pgx, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPgx(pool), nil
}

func NewPgx(db Querier) *Pgx {
	return &Pgx{db: db}
}

func (p *Pgx) Driver() string { return "postgres" }

func (p *Pgx) ReadAll(ctx context.Context, table string) (*ResultSet, error) {
	rows, err := p.db.Query(ctx, schema.Postgres.SelectAll(table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()
	cols := fieldNames(rows)
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %s: %w", table, err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if i < len(values) {
				rec[c] = normalize(values[i])
			}
		}
		rs.Records = append(rs.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return rs, nil
}

func (p *Pgx) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := p.db.Query(ctx, schema.Postgres.ProbeColumns(table))
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", table, err)
	}
	cols := fieldNames(rows)
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", table, err)
	}
	return cols, nil
}

func (p *Pgx) Count(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := p.db.QueryRow(ctx, schema.Postgres.CountRows(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

func (p *Pgx) Close() error {
	p.db.Close()
	return nil
}

func fieldNames(rows pgx.Rows) []string {
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols
}
