package csvout

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dyne/tabledump/internal/source"
)

var ErrFieldMismatch = errors.New("record fields do not match header")

const (
	CRLF = "\r\n"
	LF   = "\n"
)

const timeLayout = "2006-01-02 15:04:05"

type Options struct {
	// LineEnding terminates every line; CRLF when empty.
	LineEnding string
}

// Writer writes CSV with every field wrapped in double quotes.
type Writer struct {
	w      *bufio.Writer
	fields []string
	known  map[string]struct{}
	eol    string
	rows   int
	err    error
}

func New(w io.Writer, fields []string, opts Options) *Writer {
	eol := opts.LineEnding
	if eol == "" {
		eol = CRLF
	}
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}
	return &Writer{w: bufio.NewWriter(w), fields: fields, known: known, eol: eol}
}

func (w *Writer) WriteHeader() error {
	return w.writeLine(w.fields)
}

// Write emits rec in header order. rec must carry exactly the header's keys.
func (w *Writer) Write(rec map[string]any) error {
	if err := w.check(rec); err != nil {
		return err
	}
	vals := make([]string, len(w.fields))
	for i, f := range w.fields {
		vals[i] = Format(rec[f])
	}
	if err := w.writeLine(vals); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *Writer) check(rec map[string]any) error {
	var missing, extra []string
	for _, f := range w.fields {
		if _, ok := rec[f]; !ok {
			missing = append(missing, f)
		}
	}
	for k := range rec {
		if _, ok := w.known[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return fmt.Errorf("%w: missing [%s] extra [%s]", ErrFieldMismatch, strings.Join(missing, ", "), strings.Join(extra, ", "))
}

func (w *Writer) writeLine(vals []string) error {
	if w.err != nil {
		return w.err
	}
	for i, v := range vals {
		if i > 0 {
			w.w.WriteByte(',')
		}
		w.w.WriteByte('"')
		w.w.WriteString(strings.ReplaceAll(v, `"`, `""`))
		w.w.WriteByte('"')
	}
	_, w.err = w.w.WriteString(w.eol)
	return w.err
}

func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Rows reports how many records have been written, header excluded.
func (w *Writer) Rows() int { return w.rows }

// Format renders a scalar the way it appears inside a CSV field.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(timeLayout)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// WriteFile writes header and records to path, replacing any existing file.
// Output goes to a temporary file in the same directory first, so a failed
// export never leaves a truncated CSV behind.
func WriteFile(path string, fields []string, records []source.Record, opts Options) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) (int, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, err
	}
	w := New(tmp, fields, opts)
	if err := w.WriteHeader(); err != nil {
		return fail(fmt.Errorf("write header: %w", err))
	}
	for i, rec := range records {
		if err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("write row %d: %w", i, err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flush output: %w", err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("chmod output: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("replace output: %w", err)
	}
	return w.Rows(), nil
}
