package ygggo_mockdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDriver_QueryRow(t *testing.T) {
	f := NewMockClientFactory()
	users := NewDataTable("users", TypedCol[int64]("id"), TypedCol[string]("name")).AddRow(int64(7), "alice")
	f.GetOrCreateCommand("connA", "SELECT id, name FROM users WHERE id = ?").
		Enqueue(&CommandResults{ResultSet: []*DataTable{users}})

	db := f.OpenDB("connA")
	defer db.Close()

	var (
		id   int64
		name string
	)
	err := db.QueryRowContext(context.Background(), "SELECT id, name FROM users WHERE id = ?", 7).Scan(&id, &name)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "alice", name)

	// exhausted queue: an empty result has no rows
	err = db.QueryRowContext(context.Background(), "SELECT id, name FROM users WHERE id = ?", 7).Scan(&id, &name)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	cmds := f.CommandsCreated()
	require.NotEmpty(t, cmds)
	p, err := cmds[0].Parameters().At(0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Value())
}

func TestDriver_Exec(t *testing.T) {
	f := NewMockClientFactory()
	f.GetOrCreateCommand("connA", "INSERT INTO users (name) VALUES (?)").
		Enqueue(&CommandResults{RowsAffectedResult: 1, LastInsertIDResult: 42})

	db := f.OpenDB("connA")
	defer db.Close()

	res, err := db.ExecContext(context.Background(), "INSERT INTO users (name) VALUES (?)", "bob")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestDriver_ScriptedFailure(t *testing.T) {
	f := NewMockClientFactory()
	f.GetOrCreateCommand("connA", "DELETE FROM T").Enqueue(&CommandResults{ShouldThrowOnExecute: true})

	db := f.OpenDB("connA")
	defer db.Close()

	_, err := db.ExecContext(context.Background(), "DELETE FROM T")
	assert.ErrorIs(t, err, ErrDataAccess)
}

func TestDriver_OpenFailure(t *testing.T) {
	f := NewMockClientFactory()
	f.GetOrCreate("connA").ShouldThrowOnOpen = true

	db := f.OpenDB("connA")
	defer db.Close()

	err := db.PingContext(context.Background())
	assert.ErrorIs(t, err, ErrDataAccess)
}

func TestDriver_MultipleResultSets(t *testing.T) {
	f := NewMockClientFactory()
	a := NewDataTable("a", Col("n")).AddRow(int64(1)).AddRow(int64(2))
	b := NewDataTable("b", Col("s")).AddRow("x")
	f.GetOrCreateCommand("connA", "CALL report()").Enqueue(&CommandResults{ResultSet: []*DataTable{a, b}})

	db := f.OpenDB("connA")
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), "CALL report()")
	require.NoError(t, err)
	defer rows.Close()

	var nums []int64
	for rows.Next() {
		var n int64
		require.NoError(t, rows.Scan(&n))
		nums = append(nums, n)
	}
	assert.Equal(t, []int64{1, 2}, nums)

	require.True(t, rows.NextResultSet())
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, cols)
	require.True(t, rows.Next())
	var s string
	require.NoError(t, rows.Scan(&s))
	assert.Equal(t, "x", s)
	assert.False(t, rows.Next())
	assert.False(t, rows.NextResultSet())
	require.NoError(t, rows.Err())
}

func TestDriver_OutputParameter(t *testing.T) {
	f := NewMockClientFactory()
	f.GetOrCreateCommand("connA", "CALL sp_insert(?, ?)").Enqueue(&CommandResults{
		RowsAffectedResult: 1,
		OutParameters:      map[string]any{"ret": 13, "total": int64(99)},
	})

	db := f.OpenDB("connA")
	defer db.Close()

	var (
		ret   int64
		total = int64(5)
	)
	_, err := db.ExecContext(context.Background(), "CALL sp_insert(?, ?)",
		sql.Named("ret", sql.Out{Dest: &ret}),
		sql.Named("total", sql.Out{Dest: &total, In: true}),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(13), ret)
	assert.Equal(t, int64(99), total)

	cmd := f.CommandsCreated()[0]
	p, ok := cmd.Parameters().Get("total")
	require.True(t, ok)
	assert.Equal(t, DirectionInputOutput, p.Direction())
}

func TestDriver_Transactions(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	f.GetOrCreateCommand("connA", "UPDATE t SET a = 1").Enqueue(&CommandResults{RowsAffectedResult: 3})

	db := f.OpenDB("connA")
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	require.NoError(t, err)
	res, err := tx.ExecContext(ctx, "UPDATE t SET a = 1")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(3), n)

	conns := f.ConnectionsCreated()
	require.Len(t, conns, 1)
	mtx := conns[0].CurrentTransaction()
	require.NotNil(t, mtx)
	assert.Equal(t, IsolationSerializable, mtx.IsolationLevel())
	assert.Same(t, mtx, f.CommandsCreated()[0].Transaction())

	require.NoError(t, tx.Commit())
	assert.True(t, mtx.IsCommitted())

	f.GetOrCreate("connA").ShouldThrowOnCommit = true
	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, tx.Commit(), ErrDataAccess)
}

func TestDriver_MockConnectionOf(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	db := f.OpenDB("Data Source=db1;Database=App")
	defer db.Close()

	c, err := db.Conn(ctx)
	require.NoError(t, err)
	defer c.Close()

	mc, err := MockConnectionOf(c)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, mc.State())
	assert.Equal(t, "app", mc.Database())
	assert.Equal(t, "db1", mc.DataSource())
}

func TestDriver_MockConnectionOfForeignDriver(t *testing.T) {
	ctx := context.Background()
	sf, err := NewSQLiteClientFactory(ctx)
	require.NoError(t, err)
	defer sf.Close()

	c, err := sf.DB().Conn(ctx)
	require.NoError(t, err)
	defer c.Close()
	_, err = MockConnectionOf(c)
	assert.True(t, errors.Is(err, errNoMockConn))
}

type userRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func TestDriver_SQLX(t *testing.T) {
	f := NewMockClientFactory()
	users := NewDataTable("users", Col("id"), Col("name")).
		AddRow(int64(1), "alice").
		AddRow(int64(2), "bob")
	q := f.GetOrCreateCommand("connA", "SELECT id, name FROM users")
	q.Enqueue(&CommandResults{ResultSet: []*DataTable{users}}, &CommandResults{ResultSet: []*DataTable{users}})

	db := f.OpenSQLX("connA")
	defer db.Close()

	var all []userRow
	require.NoError(t, db.Select(&all, "SELECT id, name FROM users"))
	assert.Equal(t, []userRow{{1, "alice"}, {2, "bob"}}, all)

	var first userRow
	require.NoError(t, db.Get(&first, "SELECT id, name FROM users"))
	assert.Equal(t, userRow{1, "alice"}, first)
}

func TestDriver_TelemetryWrapsWithOtelsql(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	f := NewMockClientFactory()
	f.SetTracerProvider(tp)
	f.EnableTelemetry(true)
	f.GetOrCreateCommand("connA", "SELECT 1").Enqueue(&CommandResults{
		ResultSet: []*DataTable{NewDataTable("t", Col("v")).AddRow(int64(1))},
	})

	db := f.OpenDB("connA")
	defer db.Close()

	var v int64
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 1").Scan(&v))
	assert.Equal(t, int64(1), v)

	var ours, theirs int
	for _, s := range exporter.GetSpans() {
		if strings.HasPrefix(s.Name, "ygggo_mockdb.") {
			ours++
		} else {
			theirs++
		}
	}
	assert.Positive(t, ours)
	assert.Positive(t, theirs, "expected database/sql spans from otelsql")
}
