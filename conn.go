package ygggo_mockdb

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MockConnection simulates a client connection. Its script bucket is resolved
// through the owning factory each time it is needed, so flags changed by a test
// take effect on the next call.
type MockConnection struct {
	id      uuid.UUID
	factory *MockClientFactory

	connectionString string
	builder          *ConnectionStringBuilder

	state    ConnectionState
	current  *MockTransaction
	disposed bool
}

// NewMockConnection returns a closed connection that is not recorded in the
// factory's history. A malformed connection string is accepted as is.
func NewMockConnection(factory *MockClientFactory, connectionString string) *MockConnection {
	c := &MockConnection{id: uuid.New(), factory: factory}
	c.SetConnectionString(connectionString)
	return c
}

// ID identifies the connection in logs.
func (c *MockConnection) ID() uuid.UUID { return c.id }

// Factory returns the factory the connection reads its script from.
func (c *MockConnection) Factory() *MockClientFactory { return c.factory }

// ConnectionString returns the lower-cased connection string.
func (c *MockConnection) ConnectionString() string { return c.connectionString }

// SetConnectionString replaces the connection string.
func (c *MockConnection) SetConnectionString(connectionString string) {
	c.connectionString = strings.ToLower(connectionString)
	b, err := parseAnyConnectionString(c.connectionString)
	if err != nil {
		b = NewConnectionStringBuilder()
	}
	c.builder = b
}

// Database returns the database named in the connection string, or "".
func (c *MockConnection) Database() string {
	v, _ := c.builder.Get(KeyDatabase)
	return strings.ToLower(v)
}

// DataSource returns the server named in the connection string, or "".
func (c *MockConnection) DataSource() string {
	v, _ := c.builder.Get(KeyDataSource)
	return strings.ToLower(v)
}

// ServerVersion is always empty for the mock.
func (c *MockConnection) ServerVersion() string { return "" }

// ChangeDatabase rewrites the database key of the connection string.
func (c *MockConnection) ChangeDatabase(name string) {
	c.builder.Set(KeyDatabase, name)
	c.connectionString = strings.ToLower(c.builder.String())
}

// State returns the current connection state.
func (c *MockConnection) State() ConnectionState { return c.state }

// CurrentTransaction returns the open transaction, or nil.
func (c *MockConnection) CurrentTransaction() *MockTransaction { return c.current }

// InTransaction reports whether a transaction is current.
func (c *MockConnection) InTransaction() bool { return c.current != nil }

// IsDisposed reports whether Dispose was called.
func (c *MockConnection) IsDisposed() bool { return c.disposed }

func (c *MockConnection) results() *ConnectionResults {
	if c.factory == nil {
		return NewConnectionResults()
	}
	return c.factory.lookup(c.connectionString)
}

// Open moves the connection to StateOpen unless the script requests a failure.
func (c *MockConnection) Open(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	open := func(context.Context) error {
		if c.results().ShouldThrowOnOpen {
			return newDataAccessError("Open", "test requested mock exception on open")
		}
		c.state = StateOpen
		return nil
	}
	if c.factory == nil {
		return open(ctx)
	}
	err := c.factory.observe(ctx, "open", c.connectionString, "", open)
	c.factory.recordOpen(contextOrBackground(ctx), err)
	return err
}

// Close rolls back an open transaction and closes the connection. A failing
// rollback is returned, but the connection is closed regardless.
func (c *MockConnection) Close() error {
	var err error
	if c.current != nil && c.current.IsOpen() {
		err = c.current.Rollback()
	}
	c.current = nil
	c.state = StateClosed
	return err
}

// Dispose closes the connection and marks it disposed.
func (c *MockConnection) Dispose() error {
	err := c.Close()
	c.disposed = true
	return err
}

// BeginTx starts a transaction. Only one transaction may be current and the
// connection must be open.
func (c *MockConnection) BeginTx(ctx context.Context, level IsolationLevel) (DatabaseTx, error) {
	tx, err := c.Begin(ctx, level)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Begin is BeginTx returning the concrete transaction type.
func (c *MockConnection) Begin(ctx context.Context, level IsolationLevel) (*MockTransaction, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if c.current != nil {
		return nil, newDataAccessError("BeginTransaction", "cannot begin transaction when transaction already open")
	}
	if c.state != StateOpen {
		return nil, newDataAccessError("BeginTransaction", "cannot begin transaction on closed connection")
	}
	c.current = NewMockTransaction(c, level)
	if c.factory != nil {
		c.factory.logEvent(ctx, "begin", c.connectionString, "", nil)
	}
	return c.current, nil
}

// closeTransaction detaches tx if it is the current transaction.
func (c *MockConnection) closeTransaction(tx *MockTransaction) {
	if c.current == tx {
		c.current = nil
	}
}

// CreateCommand returns a command bound to this connection. It is not recorded
// in the factory's history.
func (c *MockConnection) CreateCommand() DatabaseCommand {
	return NewMockCommand(c)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
