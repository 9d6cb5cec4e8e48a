// Package jsonl reads and writes newline-delimited JSON files, the on-disk
// serialization format for sync. One complete JSON object per line; empty
// lines are ignored.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// LineError reports a line that failed to parse. A single bad line fails the
// whole read: sync import must never apply a partially parseable file.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invalid JSONL line %d in %s: %v", e.Line, e.Path, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// maxLineSize bounds a single record. Skill attachments carry base64 file
// content inline, so lines can be large.
const maxLineSize = 64 * 1024 * 1024

// Read parses every line of the file at path into a T. It returns a
// *LineError for the first malformed line.
func Read[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, &LineError{Path: path, Line: lineNum, Err: err}
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return out, nil
}

// Write serializes records to path, one JSON object per line. The file is
// replaced atomically so a crashed export never leaves a half-written file
// behind under the final name.
func Write[T any](path string, records []T) error {
	var buf bytes.Buffer
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record for %s: %w", path, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CountLines returns the number of non-empty lines in the file at path.
// Used for drift reporting; lines are not parsed.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return n, nil
}
