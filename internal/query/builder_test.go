package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/dbhelper/internal/model"
)

// fakeExecutor records statements and returns canned results.
type fakeExecutor struct {
	queries []string
	args    [][]any
	rows    []model.Row
	result  *model.Result
	err     error
}

func (f *fakeExecutor) Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (f *fakeExecutor) Query(_ context.Context, sql string, args ...any) ([]model.Row, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return f.rows, f.err
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, args ...any) (*model.Result, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return f.result, f.err
}

type dollarDialect struct{}

func (dollarDialect) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

func newTestBuilder(opts ...Option) (*Builder, *fakeExecutor) {
	exec := &fakeExecutor{}
	return New(exec, opts...), exec
}

func TestSelectDefaultsToStar(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("users")

	sql, err := b.BuildSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", sql)
}

func TestSelectFieldsInOrder(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddField("id")
	b.AddField("name", "email")
	b.AddTable("users u", "groups g")

	sql, err := b.BuildSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, email FROM users u, groups g", sql)
}

func TestSelectClearsAccumulators(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddField("id")
	b.AddTable("users")

	_, err := b.BuildSelectStatement()
	require.NoError(t, err)

	_, err = b.BuildSelectStatement()
	assert.ErrorIs(t, err, ErrPrecondition)

	b.AddTable("orders")
	sql, err := b.BuildSelectStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders", sql, "fields must not leak into the next statement")
}

func TestSelectWithoutTable(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddField("id")

	_, err := b.BuildSelectStatement()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestInsertStatement(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("users")
	require.NoError(t, b.AddValue(map[string]any{
		"name":    "O'Brien",
		"age":     42,
		"active":  true,
		"deleted": nil,
		"score":   1.5,
	}))

	sql, err := b.BuildInsertStatement()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO users (active, age, deleted, name, score) VALUES (TRUE, 42, NULL, 'O''Brien', 1.5)",
		sql)
}

func TestInsertClearsAndFailsSecondTime(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("users")
	require.NoError(t, b.AddValue(map[string]any{"name": "a"}))

	_, err := b.BuildInsertStatement()
	require.NoError(t, err)

	_, err = b.BuildInsertStatement()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestInsertPreconditions(t *testing.T) {
	t.Run("no values", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.AddTable("users")
		_, err := b.BuildInsertStatement()
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("two tables", func(t *testing.T) {
		b, _ := newTestBuilder()
		b.AddTable("users", "groups")
		require.NoError(t, b.AddValue(map[string]any{"name": "a"}))
		_, err := b.BuildInsertStatement()
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("no table", func(t *testing.T) {
		b, _ := newTestBuilder()
		require.NoError(t, b.AddValue(map[string]any{"name": "a"}))
		_, err := b.BuildInsertStatement()
		assert.ErrorIs(t, err, ErrPrecondition)
	})
}

func TestAddValueReplacesColumn(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("users")
	require.NoError(t, b.AddValue(map[string]any{"name": "a", "age": 1}))
	require.NoError(t, b.AddValue(map[string]any{"name": "b"}))

	sql, err := b.BuildInsertStatement()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (age, name) VALUES (1, 'b')", sql)
}

func TestAddValueRejectsBadInput(t *testing.T) {
	b, _ := newTestBuilder()

	assert.ErrorIs(t, b.AddValue(nil), ErrParameter)
	assert.ErrorIs(t, b.AddValue(map[string]any{"tags": []string{"a"}}), ErrParameter)
	assert.ErrorIs(t, b.AddValue(map[string]any{"": "x"}), ErrParameter)
}

func TestAddValueTime(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("events")
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, b.AddValue(map[string]any{"at": ts}))

	sql, err := b.BuildInsertStatement()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO events (at) VALUES ('2021-03-04 05:06:07')", sql)
}

func TestUpdateStatement(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("users")
	require.NoError(t, b.AddValue(map[string]any{"name": "bob", "age": 31}))

	sql, err := b.BuildUpdateStatement()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET age = 31, name = 'bob'", sql)

	_, err = b.BuildUpdateStatement()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestUpdateWithoutValuesIsPermissive(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddTable("users")

	sql, err := b.BuildUpdateStatement()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET ", sql)
}

func TestUpdateWithoutTable(t *testing.T) {
	b, _ := newTestBuilder()
	require.NoError(t, b.AddValue(map[string]any{"name": "bob"}))

	_, err := b.BuildUpdateStatement()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestJoins(t *testing.T) {
	b, _ := newTestBuilder()
	assert.Equal(t, "", b.BuildJoinStatement())

	require.NoError(t, b.AddJoin("groups g", "g.id = u.group_id"))
	require.NoError(t, b.AddJoin("roles r", "r.id = u.role_id", "INNER JOIN"))
	assert.Equal(t,
		"LEFT JOIN groups g ON g.id = u.group_id INNER JOIN roles r ON r.id = u.role_id",
		b.BuildJoinStatement())
	assert.Equal(t, "", b.BuildJoinStatement())
}

func TestAddJoinMissingParameters(t *testing.T) {
	b, _ := newTestBuilder()
	assert.ErrorIs(t, b.AddJoin("", "a = b"), ErrParameter)
	assert.ErrorIs(t, b.AddJoin("groups", ""), ErrParameter)
}

func TestPrepareJoins(t *testing.T) {
	b, _ := newTestBuilder()
	require.NoError(t, b.PrepareJoins(map[string]string{
		"roles":  "roles.id = users.role_id",
		"groups": "groups.id = users.group_id",
	}))
	assert.Equal(t,
		"LEFT JOIN groups ON groups.id = users.group_id LEFT JOIN roles ON roles.id = users.role_id",
		b.BuildJoinStatement())

	assert.ErrorIs(t, b.PrepareJoins(map[string]string{"roles": ""}), ErrParameter)
}

func TestWhereClause(t *testing.T) {
	b, _ := newTestBuilder()
	assert.Equal(t, "", b.BuildWhereClause())

	require.NoError(t, b.AddCustomFilter("a = 1"))
	require.NoError(t, b.AddCustomFilter("b = 2"))
	assert.Equal(t, "WHERE a = 1 OR b = 2", b.BuildWhereClause("or"))
	assert.Equal(t, "", b.BuildWhereClause(), "filters must be cleared after render")

	require.NoError(t, b.AddCustomFilter("a = 1"))
	require.NoError(t, b.AddCustomFilter("b = 2"))
	assert.Equal(t, "WHERE a = 1 AND b = 2", b.BuildWhereClause("xor"))
}

func TestAddFilter(t *testing.T) {
	b, _ := newTestBuilder()
	require.NoError(t, b.AddFilter("name", "O'Brien"))
	require.NoError(t, b.AddFilter("deleted_at", "NULL", "IS"))
	require.NoError(t, b.AddFilter("id", "(1,2,3)", "in"))
	require.NoError(t, b.AddFilter("age", "1 AND 5", "BETWEEN"))
	require.NoError(t, b.AddFilter("age", "30", ">"))

	assert.Equal(t,
		"WHERE name = 'O''Brien' AND deleted_at IS NULL AND id in (1,2,3) AND age BETWEEN 1 AND 5 AND age > '30'",
		b.BuildWhereClause())
}

func TestAddFilterMissingParameters(t *testing.T) {
	b, _ := newTestBuilder()
	assert.ErrorIs(t, b.AddFilter("", "x"), ErrParameter)
	assert.ErrorIs(t, b.AddFilter("name", "x", ""), ErrParameter)
	assert.ErrorIs(t, b.AddCustomFilter(""), ErrParameter)
}

func TestOrderBy(t *testing.T) {
	b, _ := newTestBuilder()
	assert.Equal(t, "", b.GetOrderBy())

	b.AddOrderBy("name", "desc")
	b.AddOrderBy("id", "ASC")
	b.AddOrderBy("created", "sideways")
	b.AddOrderBy("", "asc")
	assert.Equal(t, "ORDER BY name DESC, id ASC, created", b.GetOrderBy())
	assert.Equal(t, "", b.GetOrderBy())
}

func TestLimitOffsetOneShot(t *testing.T) {
	b, _ := newTestBuilder()
	assert.Equal(t, "", b.GetLimit())
	assert.Equal(t, "", b.GetOffset())

	b.SetLimit(10)
	b.SetOffset(20)
	assert.Equal(t, "LIMIT 10", b.GetLimit())
	assert.Equal(t, "", b.GetLimit())
	assert.Equal(t, "OFFSET 20", b.GetOffset())
	assert.Equal(t, "", b.GetOffset())

	b.SetLimit(0)
	assert.Equal(t, "", b.GetLimit())
}

func TestReset(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddField("id")
	b.AddTable("users")
	require.NoError(t, b.AddCustomFilter("a = 1"))
	b.SetLimit(3)
	b.Reset()

	assert.Equal(t, "", b.BuildWhereClause())
	assert.Equal(t, "", b.GetLimit())
	_, err := b.BuildSelectStatement()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestBuildQueryEndToEnd(t *testing.T) {
	b, _ := newTestBuilder()
	b.AddField("id", "name")
	b.AddTable("users")
	require.NoError(t, b.AddFilter("age", "30", ">"))
	b.AddOrderBy("name", "desc")
	b.SetLimit(5)

	sql, err := b.BuildQuery()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users  WHERE age > '30' ORDER BY name DESC  LIMIT 5", sql)
}

func TestBuildQueryWithoutTable(t *testing.T) {
	b, _ := newTestBuilder()
	_, err := b.BuildQuery()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestNilExecutorEscapes(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.AddFilter("name", "it's"))
	assert.Equal(t, "WHERE name = 'it''s'", b.BuildWhereClause())

	_, err := b.QuickSelect(context.Background())
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrParameter, ErrPrecondition, ErrVocabulary, ErrFormat}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
			}
		}
	}
}
