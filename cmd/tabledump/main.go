package main

import (
	"fmt"
	"os"

	"github.com/dyne/tabledump/internal/config"
	"github.com/dyne/tabledump/internal/export"
	"github.com/dyne/tabledump/internal/inspect"
	"github.com/dyne/tabledump/internal/log"
	"github.com/dyne/tabledump/internal/plan"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	Verbose bool
	Quiet   bool
	Config  string
	EnvFile string
	Driver  string
	DSN     string
	Table   string
	Out     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootOpts := &globalOptions{}
	root := &cobra.Command{
		Use:           "tabledump",
		Short:         "Export a database table to a fully quoted CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&rootOpts.Verbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&rootOpts.Quiet, "quiet", false, "only log warnings")
	root.PersistentFlags().StringVar(&rootOpts.Config, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&rootOpts.EnvFile, "env-file", ".env", "file with TABLEDUMP_* credentials")
	root.PersistentFlags().StringVar(&rootOpts.Driver, "driver", "", "source driver (mysql|postgres|sqlite)")
	root.PersistentFlags().StringVar(&rootOpts.DSN, "dsn", "", "source DSN, overrides host/user/database settings")
	root.PersistentFlags().StringVar(&rootOpts.Table, "table", "", "table to export")

	root.AddCommand(exportCmd(rootOpts))
	root.AddCommand(inspectCmd(rootOpts))
	root.AddCommand(planCmd(rootOpts))
	return root
}

func exportCmd(rootOpts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Read every row of the table and write the CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, rootOpts)
			sum, err := export.Run(cmd.Context(), export.Options{Config: cfg, Logger: logger})
			if err != nil {
				return err
			}
			logger.Debugf("run %s finished: %d rows, fields %v", sum.RunID, sum.Rows, sum.Fields)
			return nil
		},
	}
	cmd.Flags().StringVar(&rootOpts.Out, "out", "", "output CSV file")
	return cmd
}

func inspectCmd(rootOpts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the table's columns and row count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return inspect.Run(cmd.Context(), cfg, nil, cmd.OutOrStdout(), newLogger(cmd, rootOpts))
		},
	}
}

func planCmd(rootOpts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the export plan without connecting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			return plan.Run(cfg, cmd.OutOrStdout(), newLogger(cmd, rootOpts))
		},
	}
	cmd.Flags().StringVar(&rootOpts.Out, "out", "", "output CSV file")
	return cmd
}

// loadConfig layers the YAML file, the env file, TABLEDUMP_* variables and
// finally command line flags.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.EnvFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if opts.Driver != "" {
		cfg.Source.Driver = opts.Driver
	}
	if opts.DSN != "" {
		cfg.Source.DSN = opts.DSN
	}
	if opts.Table != "" {
		cfg.Table = opts.Table
	}
	if opts.Out != "" {
		cfg.Output.Path = opts.Out
	}
	cfg.Finalize()
	return cfg, nil
}

func newLogger(cmd *cobra.Command, opts *globalOptions) *log.Logger {
	return log.New(log.ForVerbosity(opts.Verbose, opts.Quiet), cmd.ErrOrStderr())
}
