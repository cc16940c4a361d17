package ygggo_mockdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

// DriverName is the name reported to sqlx for the mock driver. Queries use ? placeholders.
const DriverName = "ygggo_mockdb"

// Connector exposes the factory's script through database/sql. Every physical
// connection is a recorded MockConnection opened with connectionString, so the
// script flags and result queues apply exactly as they do for direct callers.
func (f *MockClientFactory) Connector(connectionString string) driver.Connector {
	return &mockConnector{factory: f, connectionString: connectionString}
}

// OpenDB returns a *sql.DB backed by the script. When telemetry is enabled the
// handle is instrumented with otelsql using the factory's tracer provider.
func (f *MockClientFactory) OpenDB(connectionString string) *sql.DB {
	c := f.Connector(connectionString)
	f.mu.Lock()
	enabled, tp, mp := f.telemetryEnabled, f.tracerProvider, f.meterProvider
	f.mu.Unlock()
	if !enabled {
		return sql.OpenDB(c)
	}
	opts := []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", "mock")),
	}
	if tp != nil {
		opts = append(opts, otelsql.WithTracerProvider(tp))
	}
	if mp != nil {
		opts = append(opts, otelsql.WithMeterProvider(mp))
	}
	return otelsql.OpenDB(c, opts...)
}

// OpenSQLX is OpenDB wrapped in an sqlx handle.
func (f *MockClientFactory) OpenSQLX(connectionString string) *sqlx.DB {
	return sqlx.NewDb(f.OpenDB(connectionString), DriverName)
}

type mockDriver struct {
	factory *MockClientFactory
}

// Open treats name as the connection string.
func (d mockDriver) Open(name string) (driver.Conn, error) {
	return (&mockConnector{factory: d.factory, connectionString: name}).Connect(context.Background())
}

type mockConnector struct {
	factory          *MockClientFactory
	connectionString string
}

func (c *mockConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn := c.factory.NewConnection(c.connectionString)
	if err := conn.Open(ctx); err != nil {
		return nil, err
	}
	return &driverConn{conn: conn}, nil
}

func (c *mockConnector) Driver() driver.Driver { return mockDriver{factory: c.factory} }

type driverConn struct {
	conn *MockConnection
}

var (
	_ driver.ConnBeginTx        = (*driverConn)(nil)
	_ driver.ConnPrepareContext = (*driverConn)(nil)
	_ driver.ExecerContext      = (*driverConn)(nil)
	_ driver.QueryerContext     = (*driverConn)(nil)
	_ driver.NamedValueChecker  = (*driverConn)(nil)
	_ driver.RowsNextResultSet  = (*driverRows)(nil)
)

func (c *driverConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *driverConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := NewMockCommand(c.conn).Prepare(ctx); err != nil {
		return nil, err
	}
	return &driverStmt{conn: c, query: query}, nil
}

func (c *driverConn) Close() error { return c.conn.Close() }

func (c *driverConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *driverConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	tx, err := c.conn.Begin(ctx, isolationFromSQL(sql.IsolationLevel(opts.Isolation)))
	if err != nil {
		return nil, err
	}
	return driverTx{tx: tx}, nil
}

// CheckNamedValue lets sql.Out through untouched and defers everything else
// to the default conversion.
func (c *driverConn) CheckNamedValue(nv *driver.NamedValue) error {
	if _, ok := nv.Value.(sql.Out); ok {
		return nil
	}
	return driver.ErrSkip
}

// command builds a recorded MockCommand enlisted in the current transaction.
func (c *driverConn) command(query string) *MockCommand {
	cmd := c.conn.factory.NewCommand(c.conn)
	cmd.SetCommandText(query)
	cmd.tx = c.conn.CurrentTransaction()
	return cmd
}

func (c *driverConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cmd := c.command(query)
	if err := bindArgs(cmd, args); err != nil {
		return nil, err
	}
	r, err := cmd.execute(ctx, "ExecuteNonQuery")
	if err != nil {
		return nil, err
	}
	if err := copyOutArgs(cmd, args); err != nil {
		return nil, err
	}
	return driverResult{lastInsertID: r.LastInsertIDResult, rowsAffected: r.RowsAffectedResult}, nil
}

func (c *driverConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cmd := c.command(query)
	if err := bindArgs(cmd, args); err != nil {
		return nil, err
	}
	r, err := cmd.execute(ctx, "ExecuteReader")
	if err != nil {
		return nil, err
	}
	if err := copyOutArgs(cmd, args); err != nil {
		return nil, err
	}
	return &driverRows{tables: r.ResultSet, row: -1}, nil
}

// bindArgs turns database/sql arguments into mock parameters. Named arguments
// keep their name; sql.Out arguments become Output or InputOutput parameters.
func bindArgs(cmd *MockCommand, args []driver.NamedValue) error {
	for _, nv := range args {
		p := &MockParameter{}
		p.SetName(nv.Name)
		value := nv.Value
		if out, ok := value.(sql.Out); ok {
			p.SetDirection(DirectionOutput)
			value = nil
			if out.In {
				p.SetDirection(DirectionInputOutput)
				if rv := reflect.ValueOf(out.Dest); rv.Kind() == reflect.Pointer && !rv.IsNil() {
					value = rv.Elem().Interface()
				}
			}
		}
		p.SetValue(value)
		p.SetDbType(DbTypeOf(value))
		if _, err := cmd.params.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// copyOutArgs assigns the values of output parameters to their sql.Out destinations.
func copyOutArgs(cmd *MockCommand, args []driver.NamedValue) error {
	for _, nv := range args {
		out, ok := nv.Value.(sql.Out)
		if !ok || nv.Name == "" {
			continue
		}
		p, ok := cmd.params.Get(nv.Name)
		if !ok {
			continue
		}
		if err := assignOut(out.Dest, p.Value()); err != nil {
			return fmt.Errorf("output parameter %s: %w", nv.Name, err)
		}
	}
	return nil
}

func assignOut(dest, value any) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(value)
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return invalidCast("destination %T is not a non-nil pointer", dest)
	}
	dv = dv.Elem()
	if value == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}
	sv := reflect.ValueOf(value)
	switch {
	case sv.Type().AssignableTo(dv.Type()):
		dv.Set(sv)
	case sv.Type().ConvertibleTo(dv.Type()) && sv.Kind() != reflect.String && dv.Kind() != reflect.String:
		dv.Set(sv.Convert(dv.Type()))
	default:
		return invalidCast("cannot assign %T to %s", value, dv.Type())
	}
	return nil
}

type driverStmt struct {
	conn  *driverConn
	query string
}

var (
	_ driver.StmtExecContext  = (*driverStmt)(nil)
	_ driver.StmtQueryContext = (*driverStmt)(nil)
)

func (s *driverStmt) Close() error  { return nil }
func (s *driverStmt) NumInput() int { return -1 }

func (s *driverStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

func (s *driverStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

func (s *driverStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *driverStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func namedValues(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

type driverTx struct {
	tx *MockTransaction
}

func (t driverTx) Commit() error   { return t.tx.Commit() }
func (t driverTx) Rollback() error { return t.tx.Rollback() }

type driverResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r driverResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r driverResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// driverRows iterates scripted tables for database/sql, one result set per table.
type driverRows struct {
	tables []*DataTable
	table  int
	row    int
}

func (r *driverRows) current() *DataTable {
	if r.table >= len(r.tables) {
		return nil
	}
	return r.tables[r.table]
}

func (r *driverRows) Columns() []string {
	t := r.current()
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (r *driverRows) ColumnTypeScanType(index int) reflect.Type {
	t := r.current()
	if t == nil {
		return anyType
	}
	return t.ColumnType(index)
}

func (r *driverRows) Close() error { return nil }

func (r *driverRows) Next(dest []driver.Value) error {
	t := r.current()
	if t == nil || r.row+1 >= len(t.Rows) {
		return io.EOF
	}
	r.row++
	row := t.Rows[r.row]
	for i := range dest {
		if i >= len(row) {
			dest[i] = nil
			continue
		}
		v, err := driver.DefaultParameterConverter.ConvertValue(row[i])
		if err != nil {
			v = row[i]
		}
		dest[i] = v
	}
	return nil
}

func (r *driverRows) HasNextResultSet() bool { return r.table+1 < len(r.tables) }

func (r *driverRows) NextResultSet() error {
	if !r.HasNextResultSet() {
		return io.EOF
	}
	r.table++
	r.row = -1
	return nil
}

var errNoMockConn = errors.New("ygggo_mockdb: not a mock driver connection")

// MockConnectionOf returns the MockConnection behind a database/sql connection.
func MockConnectionOf(c *sql.Conn) (*MockConnection, error) {
	var mc *MockConnection
	err := c.Raw(func(raw any) error {
		dc, ok := raw.(*driverConn)
		if !ok {
			return errNoMockConn
		}
		mc = dc.conn
		return nil
	})
	return mc, err
}
