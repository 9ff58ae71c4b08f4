package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Condition is a human readable filter condition such as "contains" or
// "is between".
type Condition int

const (
	Contains Condition = iota
	DoesNotContain
	Equals
	DoesNotEqual
	GreaterThan
	LessThan
	BeginsWith
	EndsWith
	IsNull
	IsNotNull
	IsBetween
	IsIn

	numConditions
)

// conditionSpec describes how a condition renders. pattern wraps the escaped
// value for LIKE style matching; "%s" leaves it unchanged.
type conditionSpec struct {
	name     string
	operator string
	pattern  string
}

var conditionSpecs = [numConditions]conditionSpec{
	Contains:       {"contains", "ILIKE", "%%%s%%"},
	DoesNotContain: {"does not contain", "NOT LIKE", "%%%s%%"},
	Equals:         {"equals", "=", "%s"},
	DoesNotEqual:   {"does not equal", "!=", "%s"},
	GreaterThan:    {"is greater than", ">", "%s"},
	LessThan:       {"is less than", "<", "%s"},
	BeginsWith:     {"begins with", "ILIKE", "%s%%"},
	EndsWith:       {"ends with", "ILIKE", "%%%s"},
	IsNull:         {"is null", "IS", ""},
	IsNotNull:      {"is not null", "IS NOT", ""},
	IsBetween:      {"is between", "BETWEEN", ""},
	IsIn:           {"is in", "IN", ""},
}

// conditionNames maps every accepted spelling, aliases included, to its
// condition. Matching is case-sensitive.
var conditionNames = map[string]Condition{
	"contains":         Contains,
	"does not contain": DoesNotContain,
	"equals":           Equals,
	"is":               Equals,
	"does not equal":   DoesNotEqual,
	"is not":           DoesNotEqual,
	"is greater than":  GreaterThan,
	"is greater":       GreaterThan,
	"greater than":     GreaterThan,
	"is less than":     LessThan,
	"is less":          LessThan,
	"less than":        LessThan,
	"begins with":      BeginsWith,
	"ends with":        EndsWith,
	"is null":          IsNull,
	"is not null":      IsNotNull,
	"is between":       IsBetween,
	"is in":            IsIn,
}

// ParseCondition looks up a condition by name.
func ParseCondition(name string) (Condition, error) {
	c, ok := conditionNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a filter condition", ErrVocabulary, name)
	}
	return c, nil
}

// String returns the canonical name of c.
func (c Condition) String() string {
	if c < 0 || c >= numConditions {
		return "Condition(" + strconv.Itoa(int(c)) + ")"
	}
	return conditionSpecs[c].name
}

// Operator returns the SQL operator c translates to.
func (c Condition) Operator() string {
	if c < 0 || c >= numConditions {
		return ""
	}
	return conditionSpecs[c].operator
}

// Operand is a translated condition: a SQL operator plus its value.
type Operand struct {
	Condition Condition
	Operator  string
	// Value is the escaped value expression. BETWEEN renders as
	// 'lo' AND 'hi', IN as ('a','b'), the null checks as NULL; everything
	// else is the bare escaped value, unquoted.
	Value string

	// raw holds the unescaped values, pattern applied, for bind mode.
	raw []string
}

// Literal returns Value ready to follow the operator in a predicate.
func (o Operand) Literal() string {
	switch o.Condition {
	case IsNull, IsNotNull, IsBetween, IsIn:
		return o.Value
	}
	if strings.ToLower(o.Value) == "null" {
		return o.Value
	}
	return "'" + o.Value + "'"
}

func (o Operand) boundFragment(field string) fragment {
	prefix := field + " " + o.Operator + " "
	args := lo.ToAnySlice(o.raw)
	switch o.Condition {
	case IsNull, IsNotNull:
		return fragment{sql: prefix + o.Value}
	case IsBetween:
		return fragment{sql: prefix + bindMarker + " AND " + bindMarker, args: args}
	case IsIn:
		markers := strings.Repeat(bindMarker+",", len(o.raw))
		return fragment{sql: prefix + "(" + strings.TrimSuffix(markers, ",") + ")", args: args}
	default:
		return fragment{sql: prefix + bindMarker, args: args}
	}
}

// ConvertConditionToOperand translates a named condition and its values
// into an operator and an escaped value. "is between" takes exactly two
// values, sorted ascending; "is in" takes at least one; the null checks
// ignore values; every other condition takes exactly one.
func (b *Builder) ConvertConditionToOperand(condition string, values ...string) (Operand, error) {
	c, err := ParseCondition(condition)
	if err != nil {
		return Operand{}, err
	}
	op := Operand{Condition: c, Operator: c.Operator()}

	switch c {
	case IsNull, IsNotNull:
		op.Value = "NULL"

	case IsBetween:
		if len(values) != 2 {
			return Operand{}, fmt.Errorf("%w: a pair of values is expected for %q, got %d", ErrParameter, condition, len(values))
		}
		pair := sortBounds(values[0], values[1])
		op.raw = pair
		op.Value = b.quote(pair[0]) + " AND " + b.quote(pair[1])

	case IsIn:
		if len(values) == 0 {
			return Operand{}, fmt.Errorf("%w: a list of values is expected for %q", ErrParameter, condition)
		}
		op.raw = append([]string(nil), values...)
		op.Value = "(" + strings.Join(lo.Map(values, func(v string, _ int) string {
			return b.quote(v)
		}), ",") + ")"

	default:
		if len(values) != 1 {
			return Operand{}, fmt.Errorf("%w: a single value is expected for %q, got %d", ErrParameter, condition, len(values))
		}
		pattern := conditionSpecs[c].pattern
		op.raw = []string{fmt.Sprintf(pattern, values[0])}
		op.Value = fmt.Sprintf(pattern, b.escape(values[0]))
	}

	return op, nil
}

// sortBounds orders a BETWEEN pair low to high, numerically when both parse
// as numbers and lexically otherwise.
func sortBounds(a, b string) []string {
	pair := []string{a, b}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		if fb < fa {
			pair[0], pair[1] = b, a
		}
		return pair
	}
	sort.Strings(pair)
	return pair
}
