package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// String date policies for date columns that arrive as text instead of time values.
const (
	StringDatesParse       = "parse"
	StringDatesFail        = "fail"
	StringDatesPassthrough = "passthrough"
)

const (
	LineEndingCRLF = "crlf"
	LineEndingLF   = "lf"
)

const envPrefix = "TABLEDUMP_"

var DefaultFields = []string{"id", "date", "rating", "comment", "branch", "Teller_ID", "sentiment", "created_at", "updated_at"}

type Config struct {
	Source      Source                      `yaml:"source"`
	Table       string                      `yaml:"table"`
	Output      Output                      `yaml:"output"`
	Fields      []string                    `yaml:"fields"`
	Columns     map[string]*TransformConfig `yaml:"columns"`
	StringDates string                      `yaml:"string_dates"`
}

type Source struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"`
}

type Output struct {
	Path       string `yaml:"path"`
	LineEnding string `yaml:"line_ending"`
}

type TransformConfig struct {
	Type    string            `yaml:"type"`
	Layout  string            `yaml:"layout"`
	Pattern string            `yaml:"pattern"`
	Replace string            `yaml:"replace"`
	MaxLen  int               `yaml:"maxlen"`
	Salt    string            `yaml:"salt"`
	Map     map[string]string `yaml:"map"`
}

// Default mirrors the survey export this tool replaced: a local MySQL
// database, the surveyData table and surveyData_proper.csv.
func Default() *Config {
	cfg := base()
	cfg.Finalize()
	return cfg
}

// base holds the driver independent defaults. Connection defaults depend on
// the driver, which later layers may still change, so Finalize fills them.
func base() *Config {
	fields := make([]string, len(DefaultFields))
	copy(fields, DefaultFields)
	return &Config{
		Source:      Source{Driver: DriverMySQL},
		Table:       "surveyData",
		Output:      Output{Path: "surveyData_proper.csv", LineEnding: LineEndingCRLF},
		Fields:      fields,
		Columns:     DefaultColumns(),
		StringDates: StringDatesParse,
	}
}

var sourceDefaults = map[string]Source{
	DriverMySQL:    {Host: "localhost", Port: 3306, User: "root", Database: "dev_DBLikert"},
	DriverPostgres: {Host: "localhost", Port: 5432},
}

func DefaultColumns() map[string]*TransformConfig {
	return map[string]*TransformConfig{
		"date":       {Type: "date"},
		"created_at": {Type: "datetime"},
		"updated_at": {Type: "datetime"},
	}
}

// Load reads a YAML config and fills anything it leaves unset from the
// defaults. Driver specific connection settings are left to Finalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return base(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults(base())
	return cfg, nil
}

func (c *Config) applyDefaults(d *Config) {
	if c.Source.Driver == "" {
		c.Source.Driver = d.Source.Driver
	}
	if c.Table == "" {
		c.Table = d.Table
	}
	if c.Output.Path == "" {
		c.Output.Path = d.Output.Path
	}
	if c.Output.LineEnding == "" {
		c.Output.LineEnding = d.Output.LineEnding
	}
	if c.Fields == nil {
		c.Fields = d.Fields
	}
	// An explicit empty columns map disables the date transforms.
	if c.Columns == nil {
		c.Columns = d.Columns
	}
	if c.StringDates == "" {
		c.StringDates = d.StringDates
	}
	c.normalize()
}

func (c *Config) normalize() {
	c.Source.Driver = strings.ToLower(strings.TrimSpace(c.Source.Driver))
	c.Output.LineEnding = strings.ToLower(strings.TrimSpace(c.Output.LineEnding))
	c.StringDates = strings.ToLower(strings.TrimSpace(c.StringDates))
}

// Finalize runs once every layer has been applied. It normalizes enum values
// and fills the connection settings the chosen driver still lacks.
func (c *Config) Finalize() {
	c.normalize()
	d, ok := sourceDefaults[c.Source.Driver]
	if !ok {
		return
	}
	if c.Source.Host == "" {
		c.Source.Host = d.Host
	}
	if c.Source.Port == 0 {
		c.Source.Port = d.Port
	}
	if c.Source.User == "" {
		c.Source.User = d.User
	}
	if c.Source.Database == "" {
		c.Source.Database = d.Database
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing default
// .env file is not an error; a missing explicit file is.
func LoadEnvFile(path string, explicit bool) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides source settings from TABLEDUMP_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("DRIVER", &c.Source.Driver)
	str("DSN", &c.Source.DSN)
	str("HOST", &c.Source.Host)
	str("USER", &c.Source.User)
	str("PASSWORD", &c.Source.Password)
	str("DATABASE", &c.Source.Database)
	str("PATH", &c.Source.Path)
	if v, ok := lookup(envPrefix + "PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sPORT=%q: %v", ErrInvalid, envPrefix, v, err)
		}
		c.Source.Port = port
	}
	c.Source.Driver = strings.ToLower(c.Source.Driver)
	return nil
}

func (c *Config) Validate() error {
	switch c.Source.Driver {
	case DriverMySQL, DriverPostgres:
		if c.Source.DSN == "" && c.Source.Host == "" {
			return fmt.Errorf("%w: %s source needs dsn or host", ErrInvalid, c.Source.Driver)
		}
	case DriverSQLite:
		if c.Source.DSN == "" && c.Source.Path == "" {
			return fmt.Errorf("%w: sqlite source needs dsn or path", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalid, c.Source.Driver)
	}
	if strings.TrimSpace(c.Table) == "" {
		return fmt.Errorf("%w: table is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalid)
	}
	switch c.Output.LineEnding {
	case LineEndingCRLF, LineEndingLF:
	default:
		return fmt.Errorf("%w: line_ending must be crlf or lf, got %q", ErrInvalid, c.Output.LineEnding)
	}
	switch c.StringDates {
	case StringDatesParse, StringDatesFail, StringDatesPassthrough:
	default:
		return fmt.Errorf("%w: string_dates must be parse, fail or passthrough, got %q", ErrInvalid, c.StringDates)
	}
	seen := map[string]struct{}{}
	for _, f := range c.Fields {
		if f == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalid)
		}
		if _, ok := seen[f]; ok {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalid, f)
		}
		seen[f] = struct{}{}
	}
	return nil
}
