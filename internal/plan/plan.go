package plan

import (
	"fmt"
	"io"
	"sort"

	"github.com/dyne/tabledump/internal/config"
	"github.com/dyne/tabledump/internal/log"
	"github.com/dyne/tabledump/internal/transform"
)

// Run prints what an export with cfg would do, without connecting.
func Run(cfg *config.Config, out io.Writer, logger *log.Logger) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := transform.ParseStringPolicy(cfg.StringDates)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Plan:")
	fmt.Fprintf(out, "- source: %s table %s\n", cfg.Source.Driver, cfg.Table)
	fmt.Fprintf(out, "- output: %s (%s, all fields quoted)\n", cfg.Output.Path, cfg.Output.LineEnding)
	if len(cfg.Fields) == 0 {
		fmt.Fprintln(out, "- header: table columns")
	} else {
		fmt.Fprintln(out, "- header:")
		for _, f := range cfg.Fields {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	cols := make([]string, 0, len(cfg.Columns))
	for c := range cfg.Columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	fmt.Fprintf(out, "- transforms (string dates: %s):\n", cfg.StringDates)
	if len(cols) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, c := range cols {
		tr, err := transform.Build(cfg.Columns[c], policy)
		if err != nil {
			return fmt.Errorf("column %s: %w", c, err)
		}
		name := "none"
		if tr != nil {
			name = tr.Name()
		}
		if tf, ok := tr.(*transform.TimeFormat); ok {
			name = fmt.Sprintf("%s %q", name, tf.Layout())
		}
		fmt.Fprintf(out, "  - %s: %s\n", c, name)
	}
	logger.Infof("plan complete")
	return nil
}
