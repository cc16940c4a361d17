package ygggo_mockdb

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SQLClientFactory implements DatabaseFactory on top of a *sql.DB, so code
// written against the interfaces can run against a real database.
type SQLClientFactory struct {
	db               *sql.DB
	connectionString string
	positional       bool
}

// NewSQLClientFactory wraps db. connectionString is informational; every
// connection is drawn from db.
func NewSQLClientFactory(db *sql.DB, connectionString string) *SQLClientFactory {
	return &SQLClientFactory{db: db, connectionString: connectionString}
}

// NewMySQLClientFactory opens a MySQL handle without connecting. Both MySQL DSNs
// and key=value connection strings are accepted.
func NewMySQLClientFactory(connectionString string) (*SQLClientFactory, error) {
	dsn := connectionString
	if !looksLikeMySQLDSN(connectionString) {
		b, err := ParseConnectionString(connectionString)
		if err != nil {
			return nil, err
		}
		dsn = b.MySQLDSN()
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return NewSQLClientFactory(sql.OpenDB(connector), connectionString).BindNamedAsPositional(true), nil
}

// BindNamedAsPositional makes commands rewrite @name and :name placeholders to
// '?' and pass the values positionally. The MySQL driver needs this; SQLite
// binds names itself.
func (f *SQLClientFactory) BindNamedAsPositional(on bool) *SQLClientFactory {
	f.positional = on
	return f
}

// DB returns the underlying handle.
func (f *SQLClientFactory) DB() *sql.DB { return f.db }

// Close closes the underlying handle.
func (f *SQLClientFactory) Close() error { return f.db.Close() }

func (f *SQLClientFactory) CreateConnection() DatabaseConn {
	return NewSQLConnection(f, f.connectionString)
}

func (f *SQLClientFactory) CreateCommand() DatabaseCommand { return NewSQLCommand(nil) }

func (f *SQLClientFactory) CreateParameter() DatabaseParameter { return &SQLParameter{} }

func (f *SQLClientFactory) CreateConnectionStringBuilder() *ConnectionStringBuilder {
	return NewConnectionStringBuilder()
}

// SQLConnection holds one *sql.Conn from the factory's pool while open.
type SQLConnection struct {
	factory          *SQLClientFactory
	connectionString string
	builder          *ConnectionStringBuilder
	conn             *sql.Conn
	tx               *SQLTransaction
}

// NewSQLConnection returns a closed connection.
func NewSQLConnection(factory *SQLClientFactory, connectionString string) *SQLConnection {
	c := &SQLConnection{factory: factory}
	c.SetConnectionString(connectionString)
	return c
}

func (c *SQLConnection) ConnectionString() string { return c.connectionString }

func (c *SQLConnection) SetConnectionString(connectionString string) {
	c.connectionString = connectionString
	b, err := parseAnyConnectionString(connectionString)
	if err != nil {
		b = NewConnectionStringBuilder()
	}
	c.builder = b
}

func (c *SQLConnection) Database() string {
	v, _ := c.builder.Get(KeyDatabase)
	return v
}

func (c *SQLConnection) DataSource() string {
	v, _ := c.builder.Get(KeyDataSource)
	return v
}

func (c *SQLConnection) State() ConnectionState {
	if c.conn != nil {
		return StateOpen
	}
	return StateClosed
}

// Open takes a connection from the pool. Opening an open connection is a no-op.
func (c *SQLConnection) Open(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, err := c.factory.db.Conn(ctx)
	if err != nil {
		return &DataAccessError{Op: "Open", Message: "cannot open connection", Err: err}
	}
	c.conn = conn
	return nil
}

// Close rolls back an open transaction and returns the connection to the pool.
func (c *SQLConnection) Close() error {
	var err error
	if c.tx != nil {
		err = c.tx.Rollback()
		c.tx = nil
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.conn = nil
	}
	return err
}

func (c *SQLConnection) BeginTx(ctx context.Context, level IsolationLevel) (DatabaseTx, error) {
	if c.tx != nil {
		return nil, newDataAccessError("BeginTransaction", "cannot begin transaction when transaction already open")
	}
	if c.conn == nil {
		return nil, newDataAccessError("BeginTransaction", "cannot begin transaction on closed connection")
	}
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: level.sqlIsolation()})
	if err != nil {
		return nil, &DataAccessError{Op: "BeginTransaction", Message: "cannot begin transaction", Err: err}
	}
	c.tx = &SQLTransaction{conn: c, tx: tx, level: level}
	return c.tx, nil
}

func (c *SQLConnection) CreateCommand() DatabaseCommand { return NewSQLCommand(c) }

// SQLTransaction wraps *sql.Tx.
type SQLTransaction struct {
	conn  *SQLConnection
	tx    *sql.Tx
	level IsolationLevel
}

func (t *SQLTransaction) Connection() DatabaseConn       { return t.conn }
func (t *SQLTransaction) IsolationLevel() IsolationLevel { return t.level }

func (t *SQLTransaction) Commit() error {
	t.detach()
	if err := t.tx.Commit(); err != nil {
		return &DataAccessError{Op: "commit", Message: "commit failed", Err: err}
	}
	return nil
}

func (t *SQLTransaction) Rollback() error {
	t.detach()
	if err := t.tx.Rollback(); err != nil {
		return &DataAccessError{Op: "rollback", Message: "rollback failed", Err: err}
	}
	return nil
}

func (t *SQLTransaction) detach() {
	if t.conn != nil && t.conn.tx == t {
		t.conn.tx = nil
	}
}

// SQLParameter is the parameter type of the database/sql provider.
type SQLParameter struct {
	parameterFields
}

// NewSQLParameter returns an input parameter with the given name and value.
// An empty name binds the value positionally.
func NewSQLParameter(name string, value any) *SQLParameter {
	p := &SQLParameter{}
	p.name = name
	p.value = value
	return p
}

// SQLParameterCollection is the parameter collection of SQLCommand.
type SQLParameterCollection struct {
	parameterList[*SQLParameter]
}

// NewSQLParameterCollection returns an empty collection.
func NewSQLParameterCollection() *SQLParameterCollection {
	return &SQLParameterCollection{parameterList[*SQLParameter]{provider: "sql"}}
}

// sqlExecutor is satisfied by *sql.Conn and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLCommand executes against an SQLConnection, inside its transaction when one is set.
type SQLCommand struct {
	conn        *SQLConnection
	tx          *SQLTransaction
	text        string
	commandType CommandType
	timeout     time.Duration
	params      *SQLParameterCollection
	prepared    bool
	cancel      context.CancelFunc
}

// NewSQLCommand returns a command bound to conn, which may be nil.
func NewSQLCommand(conn *SQLConnection) *SQLCommand {
	return &SQLCommand{conn: conn, timeout: DefaultCommandTimeout, params: NewSQLParameterCollection()}
}

func (c *SQLCommand) Connection() DatabaseConn {
	if c.conn == nil {
		return nil
	}
	return c.conn
}

func (c *SQLCommand) SetConnection(conn DatabaseConn) error {
	if conn == nil {
		c.conn = nil
		return nil
	}
	sc, ok := conn.(*SQLConnection)
	if !ok {
		return invalidCast("%T is not an sql connection", conn)
	}
	c.conn = sc
	return nil
}

func (c *SQLCommand) Transaction() DatabaseTx {
	if c.tx == nil {
		return nil
	}
	return c.tx
}

func (c *SQLCommand) SetTransaction(tx DatabaseTx) error {
	if tx == nil {
		c.tx = nil
		return nil
	}
	st, ok := tx.(*SQLTransaction)
	if !ok {
		return invalidCast("%T is not an sql transaction", tx)
	}
	c.tx = st
	return nil
}

func (c *SQLCommand) CommandText() string                { return c.text }
func (c *SQLCommand) SetCommandText(text string)         { c.text = text }
func (c *SQLCommand) CommandType() CommandType           { return c.commandType }
func (c *SQLCommand) SetCommandType(t CommandType)       { c.commandType = t }
func (c *SQLCommand) Timeout() time.Duration             { return c.timeout }
func (c *SQLCommand) SetTimeout(d time.Duration)         { c.timeout = d }
func (c *SQLCommand) Parameters() DatabaseParameters     { return c.params }
func (c *SQLCommand) CreateParameter() DatabaseParameter { return &SQLParameter{} }
func (c *SQLCommand) IsPrepared() bool                   { return c.prepared }

func (c *SQLCommand) validate(op string) error {
	if c.conn == nil {
		return newDataAccessError(op, "cannot perform %s when no connection specified", op)
	}
	if c.conn.conn == nil {
		return newDataAccessError(op, "cannot perform %s when connection is not open", op)
	}
	return nil
}

// Prepare checks the statement against the server.
func (c *SQLCommand) Prepare(ctx context.Context) error {
	if err := c.validate("Prepare"); err != nil {
		return err
	}
	query, _, _, err := c.bind()
	if err != nil {
		return err
	}
	stmt, err := c.conn.conn.PrepareContext(ctx, query)
	if err != nil {
		return &DataAccessError{Op: "Prepare", Message: "prepare failed", Err: err}
	}
	c.prepared = true
	return stmt.Close()
}

// Cancel aborts the statement in flight, if any.
func (c *SQLCommand) Cancel() error {
	if err := c.validate("Cancel"); err != nil {
		return err
	}
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// statement expands the command text according to the command type.
func (c *SQLCommand) statement() string {
	switch c.commandType {
	case CommandStoredProcedure:
		marks := strings.TrimSuffix(strings.Repeat("?, ", c.params.Len()), ", ")
		return fmt.Sprintf("CALL %s(%s)", c.text, marks)
	case CommandTableDirect:
		return "SELECT * FROM " + c.text
	default:
		return c.text
	}
}

func (c *SQLCommand) executor() sqlExecutor {
	if c.tx != nil {
		return c.tx.tx
	}
	return c.conn.conn
}

func (c *SQLCommand) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	return ctx, cancel
}

// outBinding ties an output parameter to the destination handed to the driver.
type outBinding struct {
	param DatabaseParameter
	dest  *any
}

// args converts the parameters into database/sql arguments. Names lose a
// leading '@', ':' or '$' so they satisfy sql.Named.
func (c *SQLCommand) args() ([]any, []outBinding) {
	var (
		args []any
		outs []outBinding
	)
	for _, p := range c.params.items {
		var arg any = p.Value()
		if p.Direction().receivesOutput() {
			dest := new(any)
			*dest = p.Value()
			arg = sql.Out{Dest: dest, In: p.Direction() == DirectionInputOutput}
			outs = append(outs, outBinding{param: p, dest: dest})
		}
		if name := strings.TrimLeft(p.Name(), "@:$"); name != "" {
			arg = sql.Named(name, arg)
		}
		args = append(args, arg)
	}
	return args, outs
}

// bind returns the statement and its arguments.
func (c *SQLCommand) bind() (string, []any, []outBinding, error) {
	stmt := c.statement()
	if c.conn.factory.positional && c.commandType != CommandStoredProcedure && c.hasNamedParams() {
		query, args, err := bindNamed(stmt, c.params.items)
		return query, args, nil, err
	}
	args, outs := c.args()
	return stmt, args, outs, nil
}

func (c *SQLCommand) hasNamedParams() bool {
	for _, p := range c.params.items {
		if p.Name() != "" {
			return true
		}
	}
	return false
}

func copyOutBindings(outs []outBinding) {
	for _, o := range outs {
		o.param.SetValue(*o.dest)
	}
}

func (c *SQLCommand) ExecuteNonQuery(ctx context.Context) (int64, error) {
	if err := c.validate("ExecuteNonQuery"); err != nil {
		return 0, err
	}
	ctx, cancel := c.context(ctx)
	defer cancel()
	query, args, outs, err := c.bind()
	if err != nil {
		return 0, err
	}
	res, err := c.executor().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &DataAccessError{Op: "ExecuteNonQuery", Message: "execute failed", Err: err}
	}
	copyOutBindings(outs)
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &DataAccessError{Op: "ExecuteNonQuery", Message: "rows affected unavailable", Err: err}
	}
	return n, nil
}

// ExecuteScalar returns the first column of the first row, or nil when there is no row.
func (c *SQLCommand) ExecuteScalar(ctx context.Context) (any, error) {
	if err := c.validate("ExecuteScalar"); err != nil {
		return nil, err
	}
	ctx, cancel := c.context(ctx)
	defer cancel()
	query, args, outs, err := c.bind()
	if err != nil {
		return nil, err
	}
	rows, err := c.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &DataAccessError{Op: "ExecuteScalar", Message: "execute failed", Err: err}
	}
	defer rows.Close()
	var v any
	if rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if len(dest) > 0 {
			if err := rows.Scan(dest...); err != nil {
				return nil, invalidCast("%w", err)
			}
			v = *(dest[0].(*any))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &DataAccessError{Op: "ExecuteScalar", Message: "read failed", Err: err}
	}
	copyOutBindings(outs)
	return v, nil
}

func (c *SQLCommand) ExecuteReader(ctx context.Context, behavior CommandBehavior) (DatabaseReader, error) {
	if err := c.validate("ExecuteReader"); err != nil {
		return nil, err
	}
	ctx, cancel := c.context(ctx)
	query, args, outs, err := c.bind()
	if err != nil {
		cancel()
		return nil, err
	}
	rows, err := c.executor().QueryContext(ctx, query, args...)
	if err != nil {
		cancel()
		return nil, &DataAccessError{Op: "ExecuteReader", Message: "execute failed", Err: err}
	}
	copyOutBindings(outs)
	rd := newSQLDataReader(rows, cancel)
	if behavior.Has(BehaviorCloseConnection) {
		rd.onClose = c.conn.Close
	}
	return rd, nil
}

// Close releases the command.
func (c *SQLCommand) Close() error {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

// SQLDataReader adapts *sql.Rows to DatabaseReader. It reads one row ahead so
// HasRows can be answered.
type SQLDataReader struct {
	rows    *sql.Rows
	cancel  context.CancelFunc
	onClose func() error
	columns []*sql.ColumnType
	names   []string
	current []any
	pending []any
	hasNext bool
	err     error
	closed  bool
}

func newSQLDataReader(rows *sql.Rows, cancel context.CancelFunc) *SQLDataReader {
	r := &SQLDataReader{rows: rows, cancel: cancel}
	r.loadResultSet()
	return r
}

func (r *SQLDataReader) loadResultSet() {
	r.current = nil
	r.columns, r.err = r.rows.ColumnTypes()
	r.names = make([]string, len(r.columns))
	for i, c := range r.columns {
		r.names[i] = c.Name()
	}
	r.pending, r.hasNext = r.fetch()
}

func (r *SQLDataReader) fetch() ([]any, bool) {
	if r.err != nil || !r.rows.Next() {
		if err := r.rows.Err(); err != nil && r.err == nil {
			r.err = err
		}
		return nil, false
	}
	dest := make([]any, len(r.names))
	ptrs := make([]any, len(r.names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = err
		return nil, false
	}
	return dest, true
}

func (r *SQLDataReader) Read() bool {
	if !r.hasNext {
		r.current = nil
		return false
	}
	r.current = r.pending
	r.pending, r.hasNext = r.fetch()
	return true
}

func (r *SQLDataReader) NextResult() bool {
	if !r.rows.NextResultSet() {
		return false
	}
	r.loadResultSet()
	return true
}

func (r *SQLDataReader) Err() error             { return r.err }
func (r *SQLDataReader) FieldCount() int        { return len(r.names) }
func (r *SQLDataReader) HasRows() bool          { return r.current != nil || r.hasNext }
func (r *SQLDataReader) RecordsAffected() int64 { return -1 }
func (r *SQLDataReader) IsClosed() bool         { return r.closed }

func (r *SQLDataReader) checkOrdinal(ordinal int) error {
	if ordinal < 0 || ordinal >= len(r.names) {
		return outOfRange("column ordinal %d (field count %d)", ordinal, len(r.names))
	}
	return nil
}

func (r *SQLDataReader) GetName(ordinal int) (string, error) {
	if err := r.checkOrdinal(ordinal); err != nil {
		return "", err
	}
	return r.names[ordinal], nil
}

func (r *SQLDataReader) GetOrdinal(name string) (int, error) {
	for i, n := range r.names {
		if n == name {
			return i, nil
		}
	}
	for i, n := range r.names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return -1, outOfRange("column %q not found", name)
}

func (r *SQLDataReader) GetFieldType(ordinal int) (reflect.Type, error) {
	if err := r.checkOrdinal(ordinal); err != nil {
		return nil, err
	}
	if t := r.columns[ordinal].ScanType(); t != nil {
		return t, nil
	}
	return anyType, nil
}

func (r *SQLDataReader) GetDataTypeName(ordinal int) (string, error) {
	if err := r.checkOrdinal(ordinal); err != nil {
		return "", err
	}
	return r.columns[ordinal].DatabaseTypeName(), nil
}

func (r *SQLDataReader) GetValue(ordinal int) (any, error) {
	if err := r.checkOrdinal(ordinal); err != nil {
		return nil, err
	}
	if r.current == nil {
		return nil, outOfRange("no current row")
	}
	return r.current[ordinal], nil
}

func (r *SQLDataReader) GetValueByName(name string) (any, error) {
	i, err := r.GetOrdinal(name)
	if err != nil {
		return nil, err
	}
	return r.GetValue(i)
}

func (r *SQLDataReader) GetValues(dst []any) (int, error) {
	if r.current == nil {
		return 0, outOfRange("no current row")
	}
	return copy(dst, r.current), nil
}

func (r *SQLDataReader) IsDBNull(ordinal int) (bool, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return false, err
	}
	return isNull(v), nil
}

func (r *SQLDataReader) GetString(ordinal int) (string, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return "", err
	}
	return toString(v)
}

func (r *SQLDataReader) GetBool(ordinal int) (bool, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return false, err
	}
	return toBool(v)
}

func (r *SQLDataReader) GetByte(ordinal int) (byte, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toByte(v)
}

func (r *SQLDataReader) GetChar(ordinal int) (rune, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toChar(v)
}

func (r *SQLDataReader) GetInt16(ordinal int) (int16, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toInt16(v)
}

func (r *SQLDataReader) GetInt32(ordinal int) (int32, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toInt32(v)
}

func (r *SQLDataReader) GetInt64(ordinal int) (int64, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

func (r *SQLDataReader) GetFloat32(ordinal int) (float32, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toFloat32(v)
}

func (r *SQLDataReader) GetFloat64(ordinal int) (float64, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toFloat64(v)
}

func (r *SQLDataReader) GetTime(ordinal int) (time.Time, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return time.Time{}, err
	}
	return toTime(v)
}

func (r *SQLDataReader) GetDecimal(ordinal int) (decimal.Decimal, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return toDecimal(v)
}

func (r *SQLDataReader) GetGUID(ordinal int) (uuid.UUID, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return uuid.Nil, err
	}
	return toGUID(v)
}

// Close closes the rows and, with BehaviorCloseConnection, the connection.
func (r *SQLDataReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.rows.Close()
	if r.cancel != nil {
		r.cancel()
	}
	if r.onClose != nil {
		if cerr := r.onClose(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
