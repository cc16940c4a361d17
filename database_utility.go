package ygggo_mockdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DatabaseUtility runs single statements against a provider factory: it opens a
// connection, builds the command, executes it and releases the connection.
// Transient failures (see Classify) are retried according to the RetryPolicy.
//
// It only depends on DatabaseFactory, so tests hand it a MockClientFactory and
// production code an SQLClientFactory.
type DatabaseUtility struct {
	factory          DatabaseFactory
	connectionString string
	retry            RetryPolicy
	logger           *slog.Logger
}

// NewDatabaseUtility returns a utility for connectionString with the default retry policy.
func NewDatabaseUtility(factory DatabaseFactory, connectionString string) *DatabaseUtility {
	return &DatabaseUtility{
		factory:          factory,
		connectionString: connectionString,
		retry:            DefaultRetryPolicy(),
	}
}

// SetRetryPolicy replaces the retry policy.
func (u *DatabaseUtility) SetRetryPolicy(p RetryPolicy) *DatabaseUtility {
	u.retry = p
	return u
}

// SetLogger enables logging of retried attempts.
func (u *DatabaseUtility) SetLogger(logger *slog.Logger) *DatabaseUtility {
	u.logger = logger
	return u
}

// Factory returns the provider factory.
func (u *DatabaseUtility) Factory() DatabaseFactory { return u.factory }

// ConnectionString returns the connection string used for every connection.
func (u *DatabaseUtility) ConnectionString() string { return u.connectionString }

func (u *DatabaseUtility) notify(op string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		if u.logger == nil {
			return
		}
		u.logger.Warn("retrying database operation",
			slog.String("operation", op),
			slog.String("class", Classify(err).String()),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}
}

// openConnection creates and opens a connection for the utility's connection string.
func (u *DatabaseUtility) openConnection(ctx context.Context) (DatabaseConn, error) {
	conn := u.factory.CreateConnection()
	conn.SetConnectionString(u.connectionString)
	if err := conn.Open(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// prepareCommand binds text and params to a new command of conn.
func prepareCommand(conn DatabaseConn, commandType CommandType, text string, params []DatabaseParameter) (DatabaseCommand, error) {
	cmd := conn.CreateCommand()
	cmd.SetCommandType(commandType)
	cmd.SetCommandText(text)
	for _, p := range params {
		if _, err := cmd.Parameters().Add(p); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

// withCommand runs fn on a fresh connection and command, retrying transient failures.
func (u *DatabaseUtility) withCommand(ctx context.Context, op string, commandType CommandType, text string, params []DatabaseParameter, fn func(context.Context, DatabaseCommand) error) error {
	return retryWithPolicy(ctx, u.retry, func() (err error) {
		conn, err := u.openConnection(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := conn.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		cmd, err := prepareCommand(conn, commandType, text, params)
		if err != nil {
			return err
		}
		defer cmd.Close()
		return fn(ctx, cmd)
	}, Classify, u.notify(op))
}

// ExecuteNonQuery executes text and returns the number of rows affected.
func (u *DatabaseUtility) ExecuteNonQuery(ctx context.Context, text string, params ...DatabaseParameter) (int64, error) {
	var n int64
	err := u.withCommand(ctx, "ExecuteNonQuery", CommandText, text, params, func(ctx context.Context, cmd DatabaseCommand) error {
		var err error
		n, err = cmd.ExecuteNonQuery(ctx)
		return err
	})
	return n, err
}

// ExecuteScalar executes text and returns the first column of the first row.
func (u *DatabaseUtility) ExecuteScalar(ctx context.Context, text string, params ...DatabaseParameter) (any, error) {
	var v any
	err := u.withCommand(ctx, "ExecuteScalar", CommandText, text, params, func(ctx context.Context, cmd DatabaseCommand) error {
		var err error
		v, err = cmd.ExecuteScalar(ctx)
		return err
	})
	return v, err
}

// ExecuteProcedure calls a stored procedure and returns the number of rows affected.
// Output and return-value parameters receive their values.
func (u *DatabaseUtility) ExecuteProcedure(ctx context.Context, name string, params ...DatabaseParameter) (int64, error) {
	var n int64
	err := u.withCommand(ctx, "ExecuteProcedure", CommandStoredProcedure, name, params, func(ctx context.Context, cmd DatabaseCommand) error {
		var err error
		n, err = cmd.ExecuteNonQuery(ctx)
		return err
	})
	return n, err
}

// ExecuteReader executes text and returns a reader that owns its connection:
// closing the reader closes the connection.
func (u *DatabaseUtility) ExecuteReader(ctx context.Context, text string, params ...DatabaseParameter) (DatabaseReader, error) {
	var rd DatabaseReader
	err := retryWithPolicy(ctx, u.retry, func() error {
		conn, err := u.openConnection(ctx)
		if err != nil {
			return err
		}
		cmd, err := prepareCommand(conn, CommandText, text, params)
		if err == nil {
			rd, err = cmd.ExecuteReader(ctx, BehaviorCloseConnection)
		}
		if err != nil {
			_ = conn.Close()
			return err
		}
		return nil
	}, Classify, u.notify("ExecuteReader"))
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// ExecuteDataSet executes text and buffers every result set into a DataTable,
// named Table, Table1, Table2 and so on. Result sets without columns are skipped.
func (u *DatabaseUtility) ExecuteDataSet(ctx context.Context, text string, params ...DatabaseParameter) (tables []*DataTable, err error) {
	rd, err := u.ExecuteReader(ctx, text, params...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rd.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		if n := rd.FieldCount(); n > 0 {
			name := "Table"
			if len(tables) > 0 {
				name = fmt.Sprintf("Table%d", len(tables))
			}
			columns := make([]Column, n)
			for i := range columns {
				if columns[i].Name, err = rd.GetName(i); err != nil {
					return nil, err
				}
				if columns[i].Type, err = rd.GetFieldType(i); err != nil {
					return nil, err
				}
			}
			table := NewDataTable(name, columns...)
			for rd.Read() {
				row := make([]any, n)
				if _, err = rd.GetValues(row); err != nil {
					return nil, err
				}
				table.Rows = append(table.Rows, row)
			}
			tables = append(tables, table)
		}
		if err = rd.Err(); err != nil {
			return nil, err
		}
		if !rd.NextResult() {
			break
		}
	}
	return tables, nil
}

// WithinTx runs fn inside a transaction on a fresh connection. The transaction
// is committed when fn returns nil and rolled back otherwise. The whole unit is
// retried on transient failures, so fn must be safe to run again.
func (u *DatabaseUtility) WithinTx(ctx context.Context, level IsolationLevel, fn func(ctx context.Context, tx DatabaseTx) error) error {
	return retryWithPolicy(ctx, u.retry, func() (err error) {
		conn, err := u.openConnection(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := conn.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		tx, err := conn.BeginTx(ctx, level)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		return tx.Commit()
	}, Classify, u.notify("WithinTx"))
}

// TxCommand returns a command enlisted in tx with text and params bound.
func TxCommand(tx DatabaseTx, text string, params ...DatabaseParameter) (DatabaseCommand, error) {
	conn := tx.Connection()
	if conn == nil {
		return nil, newDataAccessError("TxCommand", "transaction has no connection")
	}
	cmd, err := prepareCommand(conn, CommandText, text, params)
	if err != nil {
		return nil, err
	}
	if err := cmd.SetTransaction(tx); err != nil {
		return nil, err
	}
	return cmd, nil
}

// sqlizerParams renders a squirrel builder into command text and positional parameters.
func (u *DatabaseUtility) sqlizerParams(b sq.Sqlizer) (string, []DatabaseParameter, error) {
	text, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build statement: %w", err)
	}
	params := make([]DatabaseParameter, len(args))
	for i, a := range args {
		params[i] = NewParameter(u.factory, "", a)
	}
	return text, params, nil
}

// NonQueryFrom executes the statement built by b.
func (u *DatabaseUtility) NonQueryFrom(ctx context.Context, b sq.Sqlizer) (int64, error) {
	text, params, err := u.sqlizerParams(b)
	if err != nil {
		return 0, err
	}
	return u.ExecuteNonQuery(ctx, text, params...)
}

// ScalarFrom executes the query built by b and returns its scalar.
func (u *DatabaseUtility) ScalarFrom(ctx context.Context, b sq.Sqlizer) (any, error) {
	text, params, err := u.sqlizerParams(b)
	if err != nil {
		return nil, err
	}
	return u.ExecuteScalar(ctx, text, params...)
}

// ReaderFrom executes the query built by b and returns a connection-owning reader.
func (u *DatabaseUtility) ReaderFrom(ctx context.Context, b sq.Sqlizer) (DatabaseReader, error) {
	text, params, err := u.sqlizerParams(b)
	if err != nil {
		return nil, err
	}
	return u.ExecuteReader(ctx, text, params...)
}
