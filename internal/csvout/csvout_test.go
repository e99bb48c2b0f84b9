package csvout

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dyne/tabledump/internal/source"
)

func TestWriterQuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, []string{"id", "comment", "rating"}, Options{})
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	rows := []map[string]any{
		{"id": int64(1), "comment": `said "hi", left`, "rating": nil},
		{"id": int64(2), "comment": "line\nbreak", "rating": 4.5},
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	want := "\"id\",\"comment\",\"rating\"\r\n" +
		"\"1\",\"said \"\"hi\"\", left\",\"\"\r\n" +
		"\"2\",\"line\nbreak\",\"4.5\"\r\n"
	if buf.String() != want {
		t.Fatalf("output mismatch\nexpected: %q\nactual:   %q", want, buf.String())
	}
	if w.Rows() != 2 {
		t.Fatalf("unexpected row count: %d", w.Rows())
	}
}

func TestWriterLF(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, []string{"a"}, Options{LineEnding: LF})
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := w.Write(map[string]any{"a": true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if buf.String() != "\"a\"\n\"true\"\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestWriterFieldMismatch(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, []string{"id", "date"}, Options{})
	err := w.Write(map[string]any{"id": 1, "date": "x", "extra": 2})
	if !errors.Is(err, ErrFieldMismatch) || !strings.Contains(err.Error(), "extra [extra]") {
		t.Fatalf("expected extra key mismatch, got %v", err)
	}
	err = w.Write(map[string]any{"id": 1})
	if !errors.Is(err, ErrFieldMismatch) || !strings.Contains(err.Error(), "missing [date]") {
		t.Fatalf("expected missing key mismatch, got %v", err)
	}
	if w.Rows() != 0 {
		t.Fatalf("rejected records must not count: %d", w.Rows())
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 1, 5, 13, 45, 30, 0, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]byte("raw"), "raw"},
		{int64(-3), "-3"},
		{int32(7), "7"},
		{uint8(9), "9"},
		{float64(4.25), "4.25"},
		{float32(0.5), "0.5"},
		{false, "false"},
		{ts, "2024-01-05 13:45:30"},
	}
	for _, c := range cases {
		if got := Format(c.in); got != c.want {
			t.Fatalf("Format(%T %v) = %q, want %q", c.in, c.in, got, c.want)
		}
	}
}

func TestWriteFileOverwritesAndCountsLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "surveyData_proper.csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("stale content that must go away\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	records := []source.Record{
		{"id": int64(1), "date": "2024-01-05"},
		{"id": int64(2), "date": "2024-01-06"},
		{"id": int64(3), "date": "2024-01-07"},
	}
	n, err := WriteFile(path, []string{"id", "date"}, records, Options{})
	if err != nil {
		t.Fatalf("write file: %v", err)
	}
	if n != 3 {
		t.Fatalf("unexpected row count: %d", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Fatalf("old content survived: %q", string(data))
	}
	lines := strings.Split(strings.TrimSuffix(string(data), CRLF), CRLF)
	if len(lines) != 4 || lines[0] != `"id","date"` || lines[1] != `"1","2024-01-05"` {
		t.Fatalf("unexpected lines: %q", lines)
	}
	assertOnlyEntry(t, filepath.Dir(path))
}

func TestWriteFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	n, err := WriteFile(path, []string{"id", "date"}, nil, Options{})
	if err != nil {
		t.Fatalf("write file: %v", err)
	}
	if n != 0 {
		t.Fatalf("unexpected row count: %d", n)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "\"id\",\"date\"\r\n" {
		t.Fatalf("expected header only, got %q", string(data))
	}
}

func TestWriteFileMismatchKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(path, []byte("previous\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := WriteFile(path, []string{"id"}, []source.Record{{"id": 1, "surprise": 2}}, Options{})
	if !errors.Is(err, ErrFieldMismatch) {
		t.Fatalf("expected field mismatch, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "previous\n" {
		t.Fatalf("failed write clobbered the old file: %q", string(data))
	}
	assertOnlyEntry(t, dir)
}

func assertOnlyEntry(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries in %s", len(entries), dir)
	}
}
