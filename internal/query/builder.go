package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// bindMarker stands in for a bound parameter inside a stored fragment until
// the fragment is rendered and the placeholder number is known.
const bindMarker = "\x00"

// DefaultJoin is the join kind used when AddJoin is given none.
const DefaultJoin = "LEFT JOIN"

// fragment is a stored SQL piece plus the arguments for its bind markers.
type fragment struct {
	sql  string
	args []any
}

// column is one entry of the value map used by INSERT and UPDATE.
type column struct {
	name string
	fragment
}

// Builder accumulates SQL fragments and renders them into statements.
//
// Each Build/Get method renders one clause and clears the accumulators that
// fed it, so a Builder can be reused for successive statements as long as each
// statement is populated before it is built. A Builder is not safe for
// concurrent use.
type Builder struct {
	exec   Executor
	bind   Dialect
	logger zerolog.Logger
	loc    *time.Location
	now    func() time.Time

	fields  []string
	tables  []string
	joins   []string
	filters []fragment
	values  []column
	orderBy []string
	offset  int
	limit   int

	args []any
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for executed statements.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger.With().Str("component", "query").Logger()
	}
}

// WithLocation sets the zone timestamps are normalized into. Default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// WithClock overrides the time source used for relative timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBindVars switches the builder from literal mode to bind mode: filter
// and write values render as placeholders from d and are collected for Args.
// A nil dialect uses DefaultDialect.
func WithBindVars(d Dialect) Option {
	return func(b *Builder) {
		if d == nil {
			d = DefaultDialect
		}
		b.bind = d
	}
}

// New creates a Builder that escapes and executes through exec.
// exec may be nil when statements are only rendered, never executed.
func New(exec Executor, opts ...Option) *Builder {
	b := &Builder{
		exec:   exec,
		logger: zerolog.Nop(),
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bound reports whether the builder renders placeholders instead of literals.
func (b *Builder) Bound() bool {
	return b.bind != nil
}

// Args returns the arguments collected for placeholders rendered so far and
// clears them. Always empty in literal mode.
func (b *Builder) Args() []any {
	args := b.args
	b.args = nil
	return args
}

// AddField appends column expressions to the SELECT list.
func (b *Builder) AddField(fields ...string) {
	b.fields = append(b.fields, fields...)
}

// ResetFields empties the SELECT list.
func (b *Builder) ResetFields() {
	b.fields = nil
}

// AddTable appends table names or aliases.
func (b *Builder) AddTable(tables ...string) {
	b.tables = append(b.tables, tables...)
}

// ResetTables empties the table list.
func (b *Builder) ResetTables() {
	b.tables = nil
}

// AddJoin appends "<kind> <table> ON <condition>". kind defaults to LEFT JOIN.
func (b *Builder) AddJoin(table, condition string, kind ...string) error {
	if table == "" || condition == "" {
		return fmt.Errorf("%w: join needs a table and a condition", ErrParameter)
	}
	joinKind := DefaultJoin
	if len(kind) > 0 && kind[0] != "" {
		joinKind = kind[0]
	}
	b.joins = append(b.joins, joinKind+" "+table+" ON "+condition)
	return nil
}

// PrepareJoins adds a LEFT JOIN for every table → condition pair, in table
// name order.
func (b *Builder) PrepareJoins(joins map[string]string) error {
	tables := lo.Keys(joins)
	sort.Strings(tables)
	for _, table := range tables {
		if err := b.AddJoin(table, joins[table]); err != nil {
			return err
		}
	}
	return nil
}

// ResetJoins empties the join list.
func (b *Builder) ResetJoins() {
	b.joins = nil
}

// AddValue stores column → value pairs for INSERT and UPDATE. Every value is
// escaped and rendered as a SQL literal (or collected as an argument in bind
// mode). Pairs are added in column name order; re-adding a column replaces it.
func (b *Builder) AddValue(pairs map[string]any) error {
	if pairs == nil {
		return fmt.Errorf("%w: expected column => value pairs", ErrParameter)
	}
	names := lo.Keys(pairs)
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty column name", ErrParameter)
		}
		f, err := b.valueFragment(pairs[name])
		if err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		b.setValue(name, f)
	}
	return nil
}

func (b *Builder) setValue(name string, f fragment) {
	for i := range b.values {
		if b.values[i].name == name {
			b.values[i].fragment = f
			return
		}
	}
	b.values = append(b.values, column{name: name, fragment: f})
}

// ResetValues empties the value map.
func (b *Builder) ResetValues() {
	b.values = nil
}

// AddFilter appends "field operator value" to the WHERE predicates. The
// operator defaults to "=". The value is escaped and quoted unless it is the
// text "null" or the operator is IN or BETWEEN, in which case the caller owns
// its SQL syntax and it is stored verbatim.
func (b *Builder) AddFilter(field, value string, operator ...string) error {
	op := "="
	if len(operator) > 0 {
		op = operator[0]
	}
	if field == "" || op == "" {
		return fmt.Errorf("%w: filter needs a field and an operator", ErrParameter)
	}

	lop := strings.ToLower(op)
	switch {
	case strings.ToLower(value) == "null", lop == "in", lop == "between":
		b.filters = append(b.filters, fragment{sql: field + " " + op + " " + value})
	case b.Bound():
		b.filters = append(b.filters, fragment{sql: field + " " + op + " " + bindMarker, args: []any{value}})
	default:
		b.filters = append(b.filters, fragment{sql: field + " " + op + " " + b.quote(value)})
	}
	return nil
}

// AddCustomFilter appends a trusted SQL boolean fragment as-is.
func (b *Builder) AddCustomFilter(statement string) error {
	if statement == "" {
		return fmt.Errorf("%w: custom filter is empty", ErrParameter)
	}
	b.filters = append(b.filters, fragment{sql: statement})
	return nil
}

// AddTableDataFilter translates a human readable condition and adds it as a
// filter on field. The translated value is already escaped.
func (b *Builder) AddTableDataFilter(field, condition string, values ...string) error {
	if field == "" || condition == "" {
		return fmt.Errorf("%w: table data filter needs a field and a condition", ErrParameter)
	}
	op, err := b.ConvertConditionToOperand(condition, values...)
	if err != nil {
		return err
	}
	if b.Bound() {
		b.filters = append(b.filters, op.boundFragment(field))
		return nil
	}
	b.filters = append(b.filters, fragment{sql: field + " " + op.Operator + " " + op.Literal()})
	return nil
}

// ResetFilters empties the WHERE predicates.
func (b *Builder) ResetFilters() {
	b.filters = nil
}

// AddOrderBy appends an ordering term. direction is matched case-insensitively
// against asc and desc; anything else leaves the direction off. An empty
// field is ignored.
func (b *Builder) AddOrderBy(field, direction string) {
	if field == "" {
		return
	}
	switch strings.ToLower(direction) {
	case "desc":
		b.orderBy = append(b.orderBy, field+" DESC")
	case "asc":
		b.orderBy = append(b.orderBy, field+" ASC")
	default:
		b.orderBy = append(b.orderBy, field)
	}
}

// ResetOrderBy empties the ordering terms.
func (b *Builder) ResetOrderBy() {
	b.orderBy = nil
}

// SetOffset sets the OFFSET for the next GetOffset. Zero means none.
func (b *Builder) SetOffset(offset int) {
	b.offset = offset
}

// ResetOffset clears the offset.
func (b *Builder) ResetOffset() {
	b.offset = 0
}

// SetLimit sets the LIMIT for the next GetLimit. Zero means none.
func (b *Builder) SetLimit(limit int) {
	b.limit = limit
}

// ResetLimit clears the limit.
func (b *Builder) ResetLimit() {
	b.limit = 0
}

// Reset clears every accumulator and any collected arguments.
func (b *Builder) Reset() {
	b.ResetFields()
	b.ResetTables()
	b.ResetJoins()
	b.ResetFilters()
	b.ResetValues()
	b.ResetOrderBy()
	b.ResetOffset()
	b.ResetLimit()
	b.args = nil
}

func (b *Builder) escape(s string) string {
	if b.exec == nil {
		return escapeQuotes(s)
	}
	return b.exec.Escape(s)
}

func (b *Builder) quote(s string) string {
	return "'" + b.escape(s) + "'"
}

// valueFragment renders v as a SQL literal, or as a bind marker in bind mode.
func (b *Builder) valueFragment(v any) (fragment, error) {
	lit, err := b.literal(v)
	if err != nil {
		return fragment{}, err
	}
	if b.Bound() && v != nil {
		if t, ok := v.(time.Time); ok {
			v = t.In(b.loc).Format(time.DateTime)
		}
		return fragment{sql: bindMarker, args: []any{v}}, nil
	}
	return fragment{sql: lit}, nil
}

func (b *Builder) literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return b.quote(val), nil
	case []byte:
		return b.quote(string(val)), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case time.Time:
		return b.quote(val.In(b.loc).Format(time.DateTime)), nil
	case fmt.Stringer:
		return b.quote(val.String()), nil
	default:
		return "", fmt.Errorf("%w: unsupported value type %T", ErrParameter, v)
	}
}

// expand replaces the bind markers in f with numbered placeholders and
// collects f's arguments.
func (b *Builder) expand(f fragment) string {
	if len(f.args) == 0 {
		return f.sql
	}
	parts := strings.Split(f.sql, bindMarker)
	var sb strings.Builder
	for i, part := range parts {
		sb.WriteString(part)
		if i < len(f.args) && i < len(parts)-1 {
			b.args = append(b.args, f.args[i])
			sb.WriteString(b.bind.Placeholder(len(b.args)))
		}
	}
	return sb.String()
}
