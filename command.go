package ygggo_mockdb

import (
	"context"
	"time"
)

// DefaultCommandTimeout is the timeout given to new commands. It is stored only.
const DefaultCommandTimeout = 30 * time.Second

// MockCommand simulates command execution by consuming the next scripted
// result for its (connection string, command text) key.
type MockCommand struct {
	conn        *MockConnection
	tx          *MockTransaction
	text        string
	commandType CommandType
	timeout     time.Duration
	params      *MockParameterCollection
	prepared    bool
	disposed    bool
}

// NewMockCommand returns a command bound to conn, which may be nil.
func NewMockCommand(conn *MockConnection) *MockCommand {
	return &MockCommand{
		conn:    conn,
		timeout: DefaultCommandTimeout,
		params:  NewMockParameterCollection(),
	}
}

func (c *MockCommand) Connection() DatabaseConn {
	if c.conn == nil {
		return nil
	}
	return c.conn
}

// MockConnection returns the bound connection with its concrete type.
func (c *MockCommand) MockConnection() *MockConnection { return c.conn }

// SetConnection binds the command to conn. Connections of other providers are rejected.
func (c *MockCommand) SetConnection(conn DatabaseConn) error {
	if conn == nil {
		c.conn = nil
		return nil
	}
	mc, ok := conn.(*MockConnection)
	if !ok {
		return invalidCast("%T is not a mock connection", conn)
	}
	c.conn = mc
	return nil
}

func (c *MockCommand) Transaction() DatabaseTx {
	if c.tx == nil {
		return nil
	}
	return c.tx
}

// SetTransaction enlists the command in tx. Transactions of other providers are rejected.
func (c *MockCommand) SetTransaction(tx DatabaseTx) error {
	if tx == nil {
		c.tx = nil
		return nil
	}
	mt, ok := tx.(*MockTransaction)
	if !ok {
		return invalidCast("%T is not a mock transaction", tx)
	}
	c.tx = mt
	return nil
}

func (c *MockCommand) CommandText() string          { return c.text }
func (c *MockCommand) SetCommandText(text string)   { c.text = text }
func (c *MockCommand) CommandType() CommandType     { return c.commandType }
func (c *MockCommand) SetCommandType(t CommandType) { c.commandType = t }
func (c *MockCommand) Timeout() time.Duration       { return c.timeout }
func (c *MockCommand) SetTimeout(d time.Duration)   { c.timeout = d }
func (c *MockCommand) IsPrepared() bool             { return c.prepared }
func (c *MockCommand) IsDisposed() bool             { return c.disposed }

func (c *MockCommand) Parameters() DatabaseParameters { return c.params }

// MockParameters returns the parameter collection with its concrete type.
func (c *MockCommand) MockParameters() *MockParameterCollection { return c.params }

// CreateParameter returns a new parameter. Unlike the factory method it is not recorded.
func (c *MockCommand) CreateParameter() DatabaseParameter { return &MockParameter{} }

// validate requires a bound, open connection.
func (c *MockCommand) validate(op string) error {
	if c.conn == nil {
		return newDataAccessError(op, "cannot perform %s when no connection specified", op)
	}
	if c.conn.State() != StateOpen {
		return newDataAccessError(op, "cannot perform %s when connection is not open", op)
	}
	return nil
}

// Prepare marks the command prepared.
func (c *MockCommand) Prepare(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err := c.validate("Prepare"); err != nil {
		return err
	}
	c.prepared = true
	return nil
}

// Cancel succeeds when the connection is open and does nothing else.
func (c *MockCommand) Cancel() error {
	return c.validate("Cancel")
}

// ExecuteNonQuery returns the scripted rows-affected count.
func (c *MockCommand) ExecuteNonQuery(ctx context.Context) (int64, error) {
	r, err := c.execute(ctx, "ExecuteNonQuery")
	if err != nil {
		return 0, err
	}
	return r.RowsAffectedResult, nil
}

// ExecuteScalar returns the scripted scalar.
func (c *MockCommand) ExecuteScalar(ctx context.Context) (any, error) {
	r, err := c.execute(ctx, "ExecuteScalar")
	if err != nil {
		return nil, err
	}
	return r.ScalarResult, nil
}

// ExecuteReader returns a reader over the scripted result sets.
func (c *MockCommand) ExecuteReader(ctx context.Context, behavior CommandBehavior) (DatabaseReader, error) {
	rd, err := c.ExecuteMockReader(ctx, behavior)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// ExecuteMockReader is ExecuteReader returning the concrete reader type.
func (c *MockCommand) ExecuteMockReader(ctx context.Context, behavior CommandBehavior) (*MockDataReader, error) {
	r, err := c.execute(ctx, "ExecuteReader")
	if err != nil {
		return nil, err
	}
	rd := NewMockDataReader(r.ResultSet...)
	rd.behavior = behavior
	rd.RecordsAffectedResult = r.RowsAffectedResult
	rd.command = c
	if behavior.Has(BehaviorCloseConnection) {
		rd.onClose = c.conn.Close
	}
	return rd, nil
}

// execute consumes one scripted result. A result flagged to fail does so
// before any output parameter is assigned.
func (c *MockCommand) execute(ctx context.Context, op string) (*CommandResults, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.validate(op); err != nil {
		return nil, err
	}

	f := c.conn.factory
	if f == nil {
		return c.apply(op, &CommandResults{})
	}
	var res *CommandResults
	err := f.observe(ctx, op, c.conn.connectionString, c.text, func(ctx context.Context) error {
		r, scripted := f.nextResults(c.conn.connectionString, c.text)
		var err error
		res, err = c.apply(op, r)
		f.recordCommand(ctx, op, scripted, err)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *MockCommand) apply(op string, r *CommandResults) (*CommandResults, error) {
	if r.ShouldThrowOnExecute {
		return nil, &DataAccessError{Op: op, Message: "test requested mock exception on execute", Err: r.ExecuteError}
	}
	c.setOutputParameters(r.OutParameters)
	return r, nil
}

// setOutputParameters copies scripted values into parameters that receive output.
// Names without a matching parameter are ignored.
func (c *MockCommand) setOutputParameters(values map[string]any) {
	for name, v := range values {
		p, ok := c.params.Get(name)
		if !ok || !p.Direction().receivesOutput() {
			continue
		}
		p.SetValue(v)
	}
}

// Close disposes the command.
func (c *MockCommand) Close() error {
	c.disposed = true
	return nil
}
