// Package jsonlio reads JSON Lines files, one object per line, as rows for
// import.
package jsonlio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// ReadResult contains the outcome of a JSONL read.
type ReadResult struct {
	Rows     []map[string]any
	Count    int
	Excluded int
}

// ValidateFile checks that the first line of the file is a JSON object
// carrying every key in required.
func ValidateFile(path string, required ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	if !scanner.Scan() {
		return errors.New("empty file")
	}

	line := strings.TrimSpace(scanner.Text())
	if len(line) == 0 || line[0] != '{' {
		return errors.New("first line is not a JSON object")
	}

	row, err := decodeLine(line)
	if err != nil {
		return fmt.Errorf("first line is not valid JSON: %w", err)
	}

	missing := lo.Filter(required, func(key string, _ int) bool {
		_, ok := row[key]
		return !ok
	})
	if len(missing) > 0 {
		return fmt.Errorf("missing keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadRows reads every object of a JSONL file. Lines that are not JSON
// objects are counted as excluded and skipped. Optionally limits the number
// of rows (pass 0 for no limit).
// An onProgress callback is called every 10,000 rows if non-nil.
func ReadRows(path string, limit int, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Allow up to 10MB per line
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	result := &ReadResult{}
	lineNum := 0

	for scanner.Scan() {
		if limit > 0 && result.Count >= limit {
			break
		}
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		row, err := decodeLine(line)
		if err != nil {
			result.Excluded++
			continue
		}

		result.Rows = append(result.Rows, row)
		result.Count++

		if onProgress != nil && result.Count%10000 == 0 {
			onProgress(result.Count)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file at line %d: %w", lineNum, err)
	}

	return result, nil
}

// decodeLine parses one object and flattens its values to types a SQL
// literal can carry: whole numbers become int64, other numbers float64,
// nested objects and arrays their compact JSON text.
func decodeLine(line string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("not an object")
	}

	row := make(map[string]any, len(raw))
	for k, v := range raw {
		flat, err := flatten(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		row[k] = flat
	}
	return row, nil
}

func flatten(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return nil, err
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	default:
		return val, nil
	}
}
