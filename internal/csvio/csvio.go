package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/cdtdelta/dbhelper/internal/model"
)

// ReadResult contains the outcome of a CSV read.
type ReadResult struct {
	Header []string
	Rows   []map[string]any
	Count  int
}

// ValidateHeader checks that the CSV file at path has a usable header: no
// empty or duplicate column names, and every name in required present.
// Returns an error describing the mismatch if validation fails.
func ValidateHeader(path string, required ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(newNullStripper(f))
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	return checkHeader(header, required)
}

func checkHeader(header, required []string) error {
	for i, col := range header {
		if strings.TrimSpace(col) == "" {
			return fmt.Errorf("header column %d is empty", i)
		}
	}
	if dups := lo.FindDuplicates(header); len(dups) > 0 {
		return fmt.Errorf("duplicate header columns: %s", strings.Join(dups, ", "))
	}
	if missing, _ := lo.Difference(required, header); len(missing) > 0 {
		return fmt.Errorf("missing header columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadRows reads every data row of the CSV file at path as column → value
// maps keyed by the header. Empty cells become nil when emptyAsNull is set.
// Optionally limits the number of rows (pass 0 for no limit).
// An onProgress callback is called every 10,000 rows if non-nil.
func ReadRows(path string, emptyAsNull bool, limit int, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(newNullStripper(f))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable field counts

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := checkHeader(header, nil); err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}

	result := &ReadResult{Header: header}
	for {
		if limit > 0 && result.Count >= limit {
			break
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", result.Count+1, err)
		}

		values := make(map[string]any, len(header))
		for i, col := range header {
			cell := safeIndex(row, i)
			if cell == "" && emptyAsNull {
				values[col] = nil
				continue
			}
			values[col] = cell
		}
		result.Rows = append(result.Rows, values)
		result.Count++

		if onProgress != nil && result.Count%10000 == 0 {
			onProgress(result.Count)
		}
	}

	return result, nil
}

// WriteRows writes rows as CSV to w. With no columns given, the sorted union
// of the rows' columns is used. NULL values are written as empty cells.
func WriteRows(w io.Writer, columns []string, rows []model.Row) error {
	if len(columns) == 0 {
		columns = model.Columns(rows)
	}

	writer := csv.NewWriter(w)

	// Write header
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range rows {
		record := lo.Map(columns, func(col string, _ int) string { return r.String(col) })
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// safeIndex returns the value at index i, or empty string if out of bounds.
func safeIndex(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// nullStripper wraps a reader and strips null bytes from the stream so the
// csv reader does not choke on them.
type nullStripper struct {
	r io.Reader
}

func newNullStripper(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (ns *nullStripper) Read(p []byte) (int, error) {
	n, err := ns.r.Read(p)
	if n > 0 {
		// Replace null bytes in place
		cleaned := strings.ReplaceAll(string(p[:n]), "\x00", "")
		copy(p, cleaned)
		n = len(cleaned)
	}
	return n, err
}
