package ygggo_mockdb

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestMockClientFactory_CaseInsensitiveBuckets(t *testing.T) {
	f := NewMockClientFactory()
	a := f.GetOrCreate("Data Source=DB1;Database=App")
	b := f.GetOrCreate("data source=db1;database=app")
	if a != b {
		t.Fatalf("expected the same bucket for connection strings differing by case")
	}
	if n := f.ConnectionResultsCount(); n != 1 {
		t.Fatalf("bucket count=%d", n)
	}

	q1 := f.GetOrCreateCommand("connA", "SELECT 1")
	q2 := f.GetOrCreateCommand("CONNA", "select 1")
	if q1 != q2 {
		t.Fatalf("expected the same queue for command texts differing by case")
	}
}

func TestMockClientFactory_EmptyConnectionStringIsDefault(t *testing.T) {
	f := NewMockClientFactory()
	if f.GetOrCreate("") != f.DefaultResults() {
		t.Fatalf("empty connection string should address the default bucket")
	}
	keys := f.ConnectionStrings()
	if len(keys) != 1 || keys[0] != "defaultconnection" {
		t.Fatalf("keys=%v", keys)
	}
}

func TestMockClientFactory_FIFOThenEmpty(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	f.GetOrCreateCommand("connA", "UPDATE t SET a = 1").Enqueue(
		&CommandResults{RowsAffectedResult: 1},
		&CommandResults{RowsAffectedResult: 2},
		&CommandResults{RowsAffectedResult: 3},
	)

	conn := f.NewConnection("connA")
	if err := conn.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	cmd := f.NewCommand(conn)
	cmd.SetCommandText("UPDATE t SET a = 1")

	for want := int64(1); want <= 3; want++ {
		n, err := cmd.ExecuteNonQuery(ctx)
		if err != nil {
			t.Fatalf("ExecuteNonQuery: %v", err)
		}
		if n != want {
			t.Fatalf("rows=%d want %d", n, want)
		}
	}

	// exhausted queue yields an empty result
	n, err := cmd.ExecuteNonQuery(ctx)
	if err != nil {
		t.Fatalf("ExecuteNonQuery on exhausted queue: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows=%d want 0", n)
	}
	v, err := cmd.ExecuteScalar(ctx)
	if err != nil || v != nil {
		t.Fatalf("scalar=%v err=%v", v, err)
	}
}

func TestMockClientFactory_DefaultFallbacks(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	f.GetOrCreate("connA").DefaultCommand().Enqueue(&CommandResults{ScalarResult: "from connA default"})
	f.DefaultResults().DefaultCommand().Enqueue(&CommandResults{ScalarResult: "from default bucket"})

	conn := f.NewConnection("connA")
	if err := conn.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	cmd := f.NewCommand(conn)
	cmd.SetCommandText("SELECT never_scripted")
	v, err := cmd.ExecuteScalar(ctx)
	if err != nil {
		t.Fatalf("ExecuteScalar: %v", err)
	}
	if v != "from connA default" {
		t.Fatalf("scalar=%v", v)
	}

	other := f.NewConnection("connB")
	if err := other.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	cmd = f.NewCommand(other)
	cmd.SetCommandText("SELECT 2")
	v, err = cmd.ExecuteScalar(ctx)
	if err != nil {
		t.Fatalf("ExecuteScalar: %v", err)
	}
	if v != "from default bucket" {
		t.Fatalf("scalar=%v", v)
	}

	// execution never creates a bucket for an unscripted connection
	for _, k := range f.ConnectionStrings() {
		if k == "connb" {
			t.Fatalf("lookup created a bucket for connB")
		}
	}
}

func TestMockClientFactory_RecordsCreations(t *testing.T) {
	f := NewMockClientFactory()
	conn := f.CreateConnection()
	cmd := f.CreateCommand()
	p := f.CreateParameter()

	if got := f.ConnectionsCreated(); len(got) != 1 || got[0] != conn {
		t.Fatalf("connections=%v", got)
	}
	if got := f.CommandsCreated(); len(got) != 1 || got[0] != cmd {
		t.Fatalf("commands=%v", got)
	}
	if got := f.ParametersCreated(); len(got) != 1 || got[0] != p {
		t.Fatalf("parameters=%v", got)
	}

	// objects created through connections and commands are not recorded
	_ = conn.CreateCommand()
	_ = cmd.CreateParameter()
	if len(f.CommandsCreated()) != 1 || len(f.ParametersCreated()) != 1 {
		t.Fatalf("unexpected history growth")
	}
	if f.CreateConnectionStringBuilder() == nil {
		t.Fatalf("expected a connection string builder")
	}
}

func TestMockClientFactory_ResetMockResults(t *testing.T) {
	f := NewMockClientFactory()
	f.GetOrCreateCommand("connA", "SELECT 1").Enqueue(&CommandResults{ScalarResult: 1})
	f.CreateConnection()
	f.CreateCommand()
	f.CreateParameter()

	f.ResetMockResults()
	if f.ConnectionResultsCount() != 0 {
		t.Fatalf("buckets=%d", f.ConnectionResultsCount())
	}
	if len(f.ConnectionsCreated()) != 0 || len(f.CommandsCreated()) != 0 || len(f.ParametersCreated()) != 0 {
		t.Fatalf("histories not cleared")
	}

	// idempotent
	f.ResetMockResults()
	if f.ConnectionResultsCount() != 0 {
		t.Fatalf("buckets=%d", f.ConnectionResultsCount())
	}
}

func TestMockClientFactory_ResetHistoryKeepsScripts(t *testing.T) {
	f := NewMockClientFactory()
	q := f.GetOrCreateCommand("connA", "SELECT 1").Enqueue(&CommandResults{ScalarResult: 1})
	f.CreateConnection()

	f.ResetHistory()
	if len(f.ConnectionsCreated()) != 0 {
		t.Fatalf("history not cleared")
	}
	if f.GetOrCreateCommand("connA", "SELECT 1") != q || q.Len() != 1 {
		t.Fatalf("script lost")
	}
}

func TestMockClientFactory_SetConnectionResults(t *testing.T) {
	f := NewMockClientFactory()
	r := NewConnectionResults()
	r.ShouldThrowOnOpen = true
	f.SetConnectionResults("ConnA", r)
	if f.GetOrCreate("conna") != r {
		t.Fatalf("replacement bucket not used")
	}
	f.SetConnectionResults("connA", nil)
	if got := f.GetOrCreate("connA"); got == r || got.ShouldThrowOnOpen {
		t.Fatalf("nil should install an empty bucket")
	}
}

func TestMockClientFactory_CloseConnections(t *testing.T) {
	ctx := context.Background()
	f := NewMockClientFactory()
	f.GetOrCreate("bad").ShouldThrowOnRollback = true

	good := f.NewConnection("good")
	bad := f.NewConnection("bad")
	for _, c := range []*MockConnection{good, bad} {
		if err := c.Open(ctx); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}
	if _, err := bad.Begin(ctx, IsolationReadCommitted); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	err := f.CloseConnections()
	if err == nil {
		t.Fatalf("expected the scripted rollback failure")
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(merr.Errors[0], ErrDataAccess) {
		t.Fatalf("expected a data access error, got %v", merr.Errors[0])
	}
	if good.State() != StateClosed || bad.State() != StateClosed {
		t.Fatalf("connections left open")
	}
}

func TestCommandQueue_PeekAndClear(t *testing.T) {
	q := &CommandQueue{}
	if _, ok := q.Peek(); ok {
		t.Fatalf("peek on empty queue")
	}
	first := &CommandResults{ScalarResult: "a"}
	q.Enqueue(first, nil)
	if q.Len() != 2 {
		t.Fatalf("len=%d", q.Len())
	}
	if r, ok := q.Peek(); !ok || r != first {
		t.Fatalf("peek=%v", r)
	}
	r, ok := q.Dequeue()
	if !ok || r != first {
		t.Fatalf("dequeue=%v", r)
	}
	// nil entries are stored as empty results
	r, ok = q.Dequeue()
	if !ok || r == nil || r.ScalarResult != nil {
		t.Fatalf("dequeue=%v", r)
	}
	q.Enqueue(first)
	q.Clear()
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("queue not cleared")
	}
}

func TestConnectionResults_CommandTexts(t *testing.T) {
	r := NewConnectionResults()
	r.Command("SELECT 1")
	r.Command("")
	r.SetCommand("DELETE FROM T", nil)
	got := r.CommandTexts()
	want := []string{"defaultcommand", "delete from t", "select 1"}
	if len(got) != len(want) {
		t.Fatalf("texts=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("texts=%v", got)
		}
	}
}
