package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var (
	ErrNotTime       = errors.New("value is not a date/time")
	ErrMissingColumn = errors.New("column not in record")
)

// Layouts tried, in order, when a date column arrives as text.
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	DateTimeLayout,
	DateLayout,
}

type RowContext struct {
	Table  string
	Column string
	Index  int
}

type Transformer interface {
	Name() string
	Transform(value any, row RowContext) (any, error)
}

type StringPolicy int

const (
	StringParse StringPolicy = iota
	StringFail
	StringPassthrough
)

func ParseStringPolicy(s string) (StringPolicy, error) {
	switch strings.ToLower(s) {
	case "", "parse":
		return StringParse, nil
	case "fail":
		return StringFail, nil
	case "passthrough":
		return StringPassthrough, nil
	default:
		return 0, fmt.Errorf("unknown string date policy: %s", s)
	}
}

// TimeFormat renders time values with a fixed layout.
type TimeFormat struct {
	name   string
	layout string
	policy StringPolicy
}

func NewDateFormat(policy StringPolicy) *TimeFormat {
	return &TimeFormat{name: "DateFormat", layout: DateLayout, policy: policy}
}

func NewDateTimeFormat(policy StringPolicy) *TimeFormat {
	return &TimeFormat{name: "DateTimeFormat", layout: DateTimeLayout, policy: policy}
}

func NewTimeFormat(layout string, policy StringPolicy) *TimeFormat {
	return &TimeFormat{name: "TimeFormat", layout: layout, policy: policy}
}

func (t *TimeFormat) Name() string { return t.name }

func (t *TimeFormat) Layout() string { return t.layout }

func (t *TimeFormat) Transform(value any, row RowContext) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.Format(t.layout), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.Format(t.layout), nil
	case string:
		return t.fromString(v)
	case []byte:
		return t.fromString(string(v))
	default:
		if t.policy == StringPassthrough {
			return value, nil
		}
		return nil, fmt.Errorf("%w: got %T", ErrNotTime, value)
	}
}

func (t *TimeFormat) fromString(s string) (any, error) {
	switch t.policy {
	case StringPassthrough:
		return s, nil
	case StringFail:
		return nil, fmt.Errorf("%w: got string %q", ErrNotTime, s)
	}
	if strings.TrimSpace(s) == "" {
		return s, nil
	}
	for _, layout := range parseLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(t.layout), nil
		}
	}
	return nil, fmt.Errorf("%w: %q matches no known layout", ErrNotTime, s)
}

type HashSha256 struct {
	salt   string
	maxLen int
}

func NewHashSha256(salt string, maxLen int) *HashSha256 {
	return &HashSha256{salt: salt, maxLen: maxLen}
}

func (t *HashSha256) Name() string { return "HashSha256" }

func (t *HashSha256) Transform(value any, row RowContext) (any, error) {
	if value == nil {
		return nil, nil
	}
	sum := sha256.Sum256([]byte(t.salt + fmt.Sprint(value)))
	out := hex.EncodeToString(sum[:])
	if t.maxLen > 0 && t.maxLen < len(out) {
		out = out[:t.maxLen]
	}
	return out, nil
}

type RegexReplace struct {
	re   *regexp.Regexp
	repl string
}

func NewRegexReplace(pattern, repl string) (*RegexReplace, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexReplace{re: re, repl: repl}, nil
}

func (t *RegexReplace) Name() string { return "RegexReplace" }

func (t *RegexReplace) Transform(value any, row RowContext) (any, error) {
	if value == nil {
		return nil, nil
	}
	return t.re.ReplaceAllString(fmt.Sprint(value), t.repl), nil
}

type MapReplace struct{ m map[string]string }

func NewMapReplace(m map[string]string) *MapReplace { return &MapReplace{m: m} }

func (t *MapReplace) Name() string { return "MapReplace" }

func (t *MapReplace) Transform(value any, row RowContext) (any, error) {
	if value == nil {
		return nil, nil
	}
	s := fmt.Sprint(value)
	if v, ok := t.m[s]; ok {
		return v, nil
	}
	return s, nil
}

type SetNull struct{}

func (t *SetNull) Name() string { return "SetNull" }

func (t *SetNull) Transform(value any, row RowContext) (any, error) {
	return nil, nil
}

// Trim strips surrounding whitespace from text values and leaves others alone.
type Trim struct{}

func (t *Trim) Name() string { return "Trim" }

func (t *Trim) Transform(value any, row RowContext) (any, error) {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return value, nil
}

// Apply runs each column's transformer against rec in place. Columns are
// visited in name order so failures are reported deterministically.
func Apply(rec map[string]any, transformers map[string]Transformer, row RowContext) error {
	cols := make([]string, 0, len(transformers))
	for c := range transformers {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, col := range cols {
		value, ok := rec[col]
		if !ok {
			return fmt.Errorf("transform %s.%s: %w", row.Table, col, ErrMissingColumn)
		}
		row.Column = col
		out, err := transformers[col].Transform(value, row)
		if err != nil {
			return fmt.Errorf("transform %s.%s row %d: %w", row.Table, col, row.Index, err)
		}
		rec[col] = out
	}
	return nil
}
