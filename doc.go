// Package ygggo_mockdb provides a scripted, in-memory database provider for
// testing code that talks to a database through a small set of
// provider-neutral interfaces.
//
// # Overview
//
// Code under test depends on DatabaseFactory, DatabaseConn, DatabaseCommand,
// DatabaseParameter, DatabaseReader and DatabaseTx. In production those are
// backed by SQLClientFactory over database/sql (MySQL or SQLite); in tests by
// MockClientFactory, which answers every Execute* call from a queue of
// CommandResults scripted by the test.
//
// Results are routed by connection string and command text, both compared
// case-insensitively. Each Execute* call consumes exactly one result in FIFO
// order. An exhausted queue yields an empty result, not an error.
//
// # Scripting results
//
//	factory := ggm.NewMockClientFactory()
//	factory.GetOrCreateCommand("connA", "SELECT 1").Enqueue(&ggm.CommandResults{ScalarResult: "test"})
//	factory.GetOrCreateCommand("connA", "DELETE FROM T").Enqueue(&ggm.CommandResults{RowsAffectedResult: 5})
//
//	util := ggm.NewDatabaseUtility(factory, "connA")
//	v, err := util.ExecuteScalar(ctx, "SELECT 1") // "test"
//
// Connection-level failures are scripted with flags on the bucket:
//
//	factory.GetOrCreate("connA").ShouldThrowOnOpen = true
//
// A result with ShouldThrowOnExecute fails the call with a *DataAccessError.
// ExecuteError, when set, is its cause, so a scripted *mysql.MySQLError is
// seen by Classify and the DatabaseUtility retry policy.
//
// # Result sets
//
//	users := ggm.NewDataTable("users", ggm.TypedCol[int64]("id"), ggm.Col("name")).
//		AddRow(int64(1), "alice").
//		AddRow(int64(2), "bob")
//	factory.GetOrCreateCommand("connA", "SELECT id, name FROM users").
//		Enqueue(&ggm.CommandResults{ResultSet: []*ggm.DataTable{users}})
//
// # Output parameters
//
// OutParameters are copied by name into parameters whose direction is Output,
// InputOutput or ReturnValue, after a successful execution only.
//
// # database/sql
//
// MockClientFactory.OpenDB exposes the same script as a *sql.DB, and OpenSQLX
// as an sqlx handle, for code written directly against database/sql.
//
// # Fixtures
//
// Scripts can be kept in YAML files, loaded with LoadFixtureFile and applied
// with Fixture.Apply. The ygggo_mockdb command validates fixture files.
//
// # Observability
//
// Logging (log/slog), OpenTelemetry tracing and metrics are off by default and
// enabled per factory, or from YGGGO_MOCKDB_* environment variables through
// ConfigFromEnv.
package ygggo_mockdb
