package model

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Row is a single record returned by a SELECT, keyed by column name.
type Row map[string]any

// String returns the value of column as text. Missing columns and SQL NULL
// both yield an empty string.
func (r Row) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// Columns returns the sorted union of column names across rows.
func Columns(rows []Row) []string {
	cols := lo.Uniq(lo.FlatMap(rows, func(r Row, _ int) []string {
		return lo.Keys(r)
	}))
	sort.Strings(cols)
	return cols
}

// Result describes the outcome of an INSERT or UPDATE.
type Result struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id"`
}
