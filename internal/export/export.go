package export

import (
	"context"
	"fmt"
	"time"

	"github.com/dyne/tabledump/internal/config"
	"github.com/dyne/tabledump/internal/csvout"
	"github.com/dyne/tabledump/internal/log"
	"github.com/dyne/tabledump/internal/source"
	"github.com/dyne/tabledump/internal/transform"
	"github.com/google/uuid"
)

type OpenFunc func(ctx context.Context, cfg config.Source) (source.Source, error)

type Options struct {
	Config *config.Config
	Logger *log.Logger
	// Open defaults to source.Open.
	Open OpenFunc
}

type Summary struct {
	RunID    string
	Table    string
	OutPath  string
	Fields   []string
	Rows     int
	Duration time.Duration
}

// Run reads every row of the configured table, formats the date columns and
// writes the result to the configured CSV file.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := transform.ParseStringPolicy(cfg.StringDates)
	if err != nil {
		return nil, err
	}
	transformers, err := transform.BuildAll(cfg.Columns, policy)
	if err != nil {
		return nil, err
	}
	open := opts.Open
	if open == nil {
		open = source.Open
	}
	logger := opts.Logger
	sum := &Summary{RunID: uuid.NewString(), Table: cfg.Table, OutPath: cfg.Output.Path}

	logger.Infof("run %s: connect %s", sum.RunID, cfg.Source.Driver)
	src, err := open(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warnf("close %s source: %v", src.Driver(), err)
		}
	}()

	rs, err := src.ReadAll(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	logger.Infof("read %d rows from %s", rs.Len(), cfg.Table)

	fields := cfg.Fields
	if len(fields) == 0 {
		fields = rs.Columns
	}
	sum.Fields = fields
	for i, rec := range rs.Records {
		if err := transform.Apply(rec, transformers, transform.RowContext{Table: cfg.Table, Index: i}); err != nil {
			return nil, err
		}
	}
	logger.Debugf("transformed %d rows with %d column transforms", rs.Len(), len(transformers))

	n, err := csvout.WriteFile(cfg.Output.Path, fields, rs.Records, csvout.Options{LineEnding: lineEnding(cfg.Output.LineEnding)})
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", cfg.Output.Path, err)
	}
	sum.Rows = n
	sum.Duration = time.Since(start)
	logger.Infof("wrote %d rows to %s in %s", n, cfg.Output.Path, sum.Duration.Round(time.Millisecond))
	return sum, nil
}

func lineEnding(name string) string {
	if name == config.LineEndingLF {
		return csvout.LF
	}
	return csvout.CRLF
}
