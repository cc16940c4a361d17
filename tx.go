package ygggo_mockdb

import "context"

type txState int

const (
	txOpen txState = iota
	txCommitted
	txRolledBack
)

// MockTransaction simulates a transaction on a MockConnection.
// Commit and Rollback are gated only by the connection's script flags; calling
// either on a finished transaction is allowed and sets the new terminal state.
type MockTransaction struct {
	conn  *MockConnection
	level IsolationLevel
	state txState
}

// NewMockTransaction returns an open transaction bound to conn.
func NewMockTransaction(conn *MockConnection, level IsolationLevel) *MockTransaction {
	return &MockTransaction{conn: conn, level: level}
}

// Connection returns the owning connection.
func (t *MockTransaction) Connection() DatabaseConn {
	if t.conn == nil {
		return nil
	}
	return t.conn
}

// MockConnection returns the owning connection with its concrete type.
func (t *MockTransaction) MockConnection() *MockConnection { return t.conn }

func (t *MockTransaction) IsolationLevel() IsolationLevel { return t.level }
func (t *MockTransaction) IsOpen() bool                   { return t.state == txOpen }
func (t *MockTransaction) IsCommitted() bool              { return t.state == txCommitted }
func (t *MockTransaction) IsRolledBack() bool             { return t.state == txRolledBack }

// Commit fails when the connection's script sets ShouldThrowOnCommit.
func (t *MockTransaction) Commit() error {
	return t.finish("commit", txCommitted, func(r *ConnectionResults) bool { return r.ShouldThrowOnCommit })
}

// Rollback fails when the connection's script sets ShouldThrowOnRollback.
func (t *MockTransaction) Rollback() error {
	return t.finish("rollback", txRolledBack, func(r *ConnectionResults) bool { return r.ShouldThrowOnRollback })
}

func (t *MockTransaction) finish(outcome string, to txState, shouldThrow func(*ConnectionResults) bool) error {
	if t.conn == nil {
		t.state = to
		return nil
	}
	var err error
	if shouldThrow(t.conn.results()) {
		err = newDataAccessError(outcome, "test requested mock exception on %s", outcome)
	} else {
		t.state = to
		t.conn.closeTransaction(t)
	}
	if f := t.conn.factory; f != nil {
		ctx := context.Background()
		f.recordTransaction(ctx, outcome, err)
		f.logEvent(ctx, outcome, t.conn.connectionString, "", err)
	}
	return err
}
