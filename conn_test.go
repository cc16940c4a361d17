package ygggo_mockdb

import (
	"context"
	"errors"
	"testing"
)

func TestMockConnection_ThrowOnOpenToggle(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	bucket := f.GetOrCreate("connA")
	bucket.ShouldThrowOnOpen = true

	conn := f.NewConnection("connA")
	err := conn.Open(ctx)
	if err == nil {
		t.Fatalf("expected Open to fail")
	}
	if !errors.Is(err, ErrDataAccess) {
		t.Fatalf("err=%v", err)
	}
	if conn.State() != StateClosed {
		t.Fatalf("state=%v", conn.State())
	}

	// a second connection with a differently cased string fails too
	if err := f.NewConnection("CONNA").Open(ctx); err == nil {
		t.Fatalf("expected Open to fail for matching connection string")
	}

	bucket.ShouldThrowOnOpen = false
	if err := conn.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if conn.State() != StateOpen {
		t.Fatalf("state=%v", conn.State())
	}
}

func TestMockConnection_OpenCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conn := NewMockConnection(NewMockClientFactory(), "connA")
	if err := conn.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestMockConnection_DatabaseAndDataSource(t *testing.T) {
	conn := NewMockConnection(nil, "Data Source=DBHost;Initial Catalog=Sales;User ID=sa")
	if got := conn.ConnectionString(); got != "data source=dbhost;initial catalog=sales;user id=sa" {
		t.Fatalf("connection string=%q", got)
	}
	if conn.Database() != "sales" {
		t.Fatalf("database=%q", conn.Database())
	}
	if conn.DataSource() != "dbhost" {
		t.Fatalf("data source=%q", conn.DataSource())
	}
	if conn.ServerVersion() != "" {
		t.Fatalf("server version=%q", conn.ServerVersion())
	}

	conn.ChangeDatabase("Archive")
	if conn.Database() != "archive" {
		t.Fatalf("database after change=%q", conn.Database())
	}

	empty := NewMockConnection(nil, "connA")
	if empty.Database() != "" || empty.DataSource() != "" {
		t.Fatalf("expected empty database and data source")
	}
}

func TestMockConnection_MySQLDSN(t *testing.T) {
	conn := NewMockConnection(nil, "app:secret@tcp(db.local:3306)/orders?parseTime=true")
	if conn.Database() != "orders" {
		t.Fatalf("database=%q", conn.Database())
	}
	if conn.DataSource() != "db.local:3306" {
		t.Fatalf("data source=%q", conn.DataSource())
	}
}

func TestMockConnection_SingleActiveTransaction(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	conn := f.NewConnection("connA")

	if _, err := conn.BeginTx(ctx, IsolationUnspecified); !errors.Is(err, ErrDataAccess) {
		t.Fatalf("begin on closed connection: err=%v", err)
	}
	if err := conn.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	tx, err := conn.BeginTx(ctx, IsolationSerializable)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if !conn.InTransaction() || conn.CurrentTransaction() != tx {
		t.Fatalf("transaction not current")
	}
	if tx.IsolationLevel() != IsolationSerializable {
		t.Fatalf("level=%v", tx.IsolationLevel())
	}
	if _, err := conn.BeginTx(ctx, IsolationUnspecified); !errors.Is(err, ErrDataAccess) {
		t.Fatalf("second begin: err=%v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	tx2, err := conn.BeginTx(ctx, IsolationUnspecified)
	if err != nil {
		t.Fatalf("BeginTx after commit: %v", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := conn.BeginTx(ctx, IsolationUnspecified); err != nil {
		t.Fatalf("BeginTx after rollback: %v", err)
	}
}

func TestMockConnection_CloseRollsBack(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	conn := f.NewConnection("connA")
	if err := conn.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	tx, err := conn.Begin(ctx, IsolationUnspecified)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !tx.IsRolledBack() {
		t.Fatalf("transaction not rolled back")
	}
	if conn.State() != StateClosed || conn.InTransaction() {
		t.Fatalf("connection not reset")
	}
}

func TestMockConnection_CloseReportsRollbackFailure(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	f.GetOrCreate("connA").ShouldThrowOnRollback = true
	conn := f.NewConnection("connA")
	if err := conn.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := conn.Begin(ctx, IsolationUnspecified); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := conn.Close(); !errors.Is(err, ErrDataAccess) {
		t.Fatalf("err=%v", err)
	}
	if conn.State() != StateClosed || conn.InTransaction() {
		t.Fatalf("connection should close regardless")
	}
}

func TestMockConnection_Dispose(t *testing.T) {
	conn := NewMockConnection(nil, "connA")
	if err := conn.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := conn.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if !conn.IsDisposed() || conn.State() != StateClosed {
		t.Fatalf("not disposed")
	}
}

func TestMockConnection_CreateCommandBound(t *testing.T) {
	f := NewMockClientFactory()
	conn := f.NewConnection("connA")
	cmd := conn.CreateCommand()
	if cmd.Connection() != conn {
		t.Fatalf("command not bound to connection")
	}
	if len(f.CommandsCreated()) != 0 {
		t.Fatalf("connection-created commands are not recorded")
	}
}
