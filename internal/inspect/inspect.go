package inspect

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dyne/tabledump/internal/config"
	"github.com/dyne/tabledump/internal/log"
	"github.com/dyne/tabledump/internal/source"
)

type OpenFunc func(ctx context.Context, cfg config.Source) (source.Source, error)

// Run prints the table's columns and row count, and flags any difference
// between the columns and the configured CSV header.
func Run(ctx context.Context, cfg *config.Config, open OpenFunc, out io.Writer, logger *log.Logger) error {
	if open == nil {
		open = source.Open
	}
	src, err := open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	cols, err := src.Columns(ctx, cfg.Table)
	if err != nil {
		return err
	}
	count, err := src.Count(ctx, cfg.Table)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Table %s (%s, %d rows)\n", cfg.Table, src.Driver(), count)
	fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
	if len(cfg.Fields) > 0 {
		missing, extra := diff(cfg.Fields, cols)
		if len(missing) > 0 {
			fmt.Fprintf(out, "  header fields missing from table: %s\n", strings.Join(missing, ", "))
		}
		if len(extra) > 0 {
			fmt.Fprintf(out, "  table columns not in header: %s\n", strings.Join(extra, ", "))
		}
		if len(missing) == 0 && len(extra) == 0 {
			fmt.Fprintln(out, "  header matches table")
		}
	}
	logger.Infof("inspect complete")
	return nil
}

func diff(fields, cols []string) (missing, extra []string) {
	have := map[string]struct{}{}
	for _, c := range cols {
		have[c] = struct{}{}
	}
	want := map[string]struct{}{}
	for _, f := range fields {
		want[f] = struct{}{}
		if _, ok := have[f]; !ok {
			missing = append(missing, f)
		}
	}
	for _, c := range cols {
		if _, ok := want[c]; !ok {
			extra = append(extra, c)
		}
	}
	return missing, extra
}
