package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/dbhelper/internal/config"
	"github.com/cdtdelta/dbhelper/internal/database"
	"github.com/cdtdelta/dbhelper/internal/query"
)

// testEnv points the CLI at a fresh SQLite database with a users table and
// an empty config file location.
type testEnv struct {
	dir    string
	dbPath string
	cfg    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(config.EnvDriver, "")
	t.Setenv(config.EnvDSN, "")
	t.Setenv(config.EnvLogLevel, "")

	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		dbPath: filepath.Join(dir, "test.db"),
		cfg:    filepath.Join(dir, "dbhelper.yaml"),
	}

	db, err := database.OpenSQLite(env.dbPath)
	require.NoError(t, err)
	_, err = db.Exec(context.Background(),
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INT, created TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	return env
}

func (e *testEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.cfg, []byte(content), 0o644))
}

// run executes dbhelper with args against the test database and returns
// what it wrote to stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--config", e.cfg,
		"--dsn", e.dbPath,
		"--log-level", "error",
	}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

func TestSelectDryRun(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "select", "-t", "users", "-f", "name",
		"-w", "age>30", "--filter", "name:is in:bob,alice",
		"--order", "name:desc", "--limit", "5", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users  WHERE age > '30' AND name IN ('bob','alice') ORDER BY name DESC  LIMIT 5\n", out)
}

func TestSelectDryRunJoinAndOr(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "select", "-t", "users u",
		"-j", "orders o ON o.user_id = u.id", "--join-kind", "INNER JOIN",
		"-w", "u.name=O'Brien", "--custom", "o.total > 10", "--or", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users u INNER JOIN orders o ON o.user_id = u.id WHERE u.name = 'O''Brien' OR o.total > 10   \n", out)
}

func TestDryRunBindVars(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "database:\n  driver: postgres\n  bind_vars: true\n")

	out, err := env.run(t, "update", "-t", "users", "-s", "age=31", "-w", "name=bob", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET age = $1 WHERE name = $2\n  [1] = 31\n  [2] = bob\n", out)

	out, err = env.run(t, "select", "-t", "users", "--filter", "name:contains:bo", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users  WHERE name ILIKE $1   \n  [1] = %bo%\n", out)
}

func TestDryRunBindVarsQuestionMarks(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "database:\n  driver: mysql\n  bind_vars: true\n")

	out, err := env.run(t, "insert", "-t", "users", "-s", "name=bob", "-s", "age=30", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (age, name) VALUES (?, ?)\n  [1] = 30\n  [2] = bob\n", out)
}

func TestFlagsOverrideInvalidConfigDriver(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "database:\n  driver: oracle\n")

	_, err := env.run(t, "select", "-t", "users", "--dry-run")
	assert.ErrorContains(t, err, "database.driver")

	out, err := env.run(t, "--driver", "sqlite", "select", "-t", "users", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users     \n", out)
}

func TestInsertSelectUpdate(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "insert", "-t", "users", "-s", "name=bob", "-s", "age=30")
	require.NoError(t, err)
	assert.Equal(t, "1 row(s) affected, last insert id 1\n", out)

	_, err = env.run(t, "insert", "-t", "users", "-s", "name=alice", "-s", "age=25", "--set-null", "created")
	require.NoError(t, err)

	out, err = env.run(t, "select", "-t", "users", "-f", "name", "-f", "age", "--order", "name", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "age,name\n25,alice\n30,bob\n", out)

	out, err = env.run(t, "update", "-t", "users", "-s", "age=31", "-w", "name=bob")
	require.NoError(t, err)
	assert.Contains(t, out, "1 row(s) affected")

	out, err = env.run(t, "select", "-t", "users", "-f", "name", "-w", "age>=31", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "name\nbob\n", out)

	out, err = env.run(t, "select", "-t", "users", "-f", "name", "-f", "age", "--filter", "name:equals:alice")
	require.NoError(t, err)
	assert.Contains(t, out, "AGE")
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "bob")
}

func TestSelectNoRows(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "select", "-t", "users")
	require.NoError(t, err)
	assert.Equal(t, "(no rows)\n", out)
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	csvPath := filepath.Join(env.dir, "users.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("name,age,created\nalice,25,2024-01-02T03:04:05Z\ncarol,40,\n"), 0o644))

	out, err := env.run(t, "import", csvPath, "-t", "users", "--timestamp", "created", "--empty-null")
	require.NoError(t, err)
	assert.Equal(t, "imported 2 row(s) into users\n", out)

	out, err = env.run(t, "select", "-t", "users", "-f", "name", "-f", "created",
		"--time-filter", "created:is greater than:2024-01-01", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "created,name\n2024-01-02 03:04:05,alice\n", out)

	out, err = env.run(t, "select", "-t", "users", "-f", "name", "--filter", "created:is null", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "name\ncarol\n", out)
}

func TestImportErrors(t *testing.T) {
	env := newTestEnv(t)
	csvPath := filepath.Join(env.dir, "users.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,age\nbob,30\n"), 0o644))

	_, err := env.run(t, "import", csvPath, "-t", "users", "--timestamp", "created")
	assert.ErrorContains(t, err, "missing header columns: created")

	require.NoError(t, os.WriteFile(csvPath, []byte("name,created\nbob,not a date\n"), 0o644))
	_, err = env.run(t, "import", csvPath, "-t", "users", "--timestamp", "created")
	assert.ErrorIs(t, err, query.ErrFormat)
}

func TestCommandErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "--driver", "oracle", "select", "-t", "users")
	assert.ErrorContains(t, err, "unsupported driver")

	_, err = env.run(t, "select", "-t", "users", "-w", "age", "--dry-run")
	assert.ErrorContains(t, err, "no comparison operator")

	_, err = env.run(t, "select", "-t", "users", "--filter", "name:resembles:bob", "--dry-run")
	assert.ErrorIs(t, err, query.ErrVocabulary)

	_, err = env.run(t, "select", "-t", "users", "--time-filter", "created:contains:2024", "--dry-run")
	assert.ErrorIs(t, err, query.ErrVocabulary)

	_, err = env.run(t, "insert", "-t", "users", "--dry-run")
	assert.ErrorIs(t, err, query.ErrPrecondition)

	_, err = env.run(t, "insert", "-t", "users", "-s", "noequals")
	assert.ErrorContains(t, err, "expected column=value")
}

func TestFetch(t *testing.T) {
	env := newTestEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(r.Method + " " + r.Header.Get("X-Token") + " " + string(body)))
	}))
	defer server.Close()

	out, err := env.run(t, "fetch", server.URL, "-H", "X-Token=abc")
	require.NoError(t, err)
	assert.Equal(t, "GET abc ", out)

	out, err = env.run(t, "fetch", server.URL, "--post", "--json", "name=bob")
	require.NoError(t, err)
	assert.Equal(t, `POST  {"name":"bob"}`, out)

	_, err = env.run(t, "fetch", "not-a-url")
	assert.Error(t, err)
}

func TestSplitComparison(t *testing.T) {
	tests := []struct {
		in               string
		field, op, value string
		wantErr          bool
	}{
		{in: "age>30", field: "age", op: ">", value: "30"},
		{in: "age >= 30", field: "age", op: ">=", value: "30"},
		{in: "name!=bob", field: "name", op: "!=", value: "bob"},
		{in: "name=a=b", field: "name", op: "=", value: "a=b"},
		{in: "name=", field: "name", op: "=", value: ""},
		{in: "=bob", wantErr: true},
		{in: "name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			field, op, value, err := splitComparison(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestSplitCondition(t *testing.T) {
	field, cond, values, err := splitCondition("age:is between:10,20")
	require.NoError(t, err)
	assert.Equal(t, "age", field)
	assert.Equal(t, "is between", cond)
	assert.Equal(t, []string{"10", "20"}, values)

	_, cond, values, err = splitCondition("created:is null")
	require.NoError(t, err)
	assert.Equal(t, "is null", cond)
	assert.Nil(t, values)

	_, _, _, err = splitCondition("nocondition")
	assert.Error(t, err)
}

func TestImportJSONL(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "users.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"name": "dave", "age": 52, "created": "2024-01-05"}`+"\n"+
			"garbage\n"+
			`{"name": "erin", "age": 33, "created": ""}`+"\n"), 0o644))

	out, err := env.run(t, "import", path, "-t", "users", "--timestamp", "created", "--empty-null")
	require.NoError(t, err)
	assert.Equal(t, "imported 2 row(s) into users\n", out)

	out, err = env.run(t, "select", "-t", "users", "-f", "name", "-f", "age", "-f", "created", "--order", "name", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "age,created,name\n52,2024-01-05 00:00:00,dave\n33,,erin\n", out)
}
