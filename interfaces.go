package ygggo_mockdb

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DatabaseFactory defines the provider surface that code under test depends on.
// Both the scripted mock provider and the database/sql backed provider satisfy it,
// so a caller can be switched between them without changes.
type DatabaseFactory interface {
	CreateConnection() DatabaseConn
	CreateCommand() DatabaseCommand
	CreateParameter() DatabaseParameter
	CreateConnectionStringBuilder() *ConnectionStringBuilder
}

// DatabaseConn defines a client connection.
type DatabaseConn interface {
	ConnectionString() string
	SetConnectionString(connectionString string)
	Database() string
	DataSource() string
	State() ConnectionState

	// Lifecycle
	Open(ctx context.Context) error
	Close() error

	// Transaction management
	BeginTx(ctx context.Context, level IsolationLevel) (DatabaseTx, error)

	CreateCommand() DatabaseCommand
}

// DatabaseTx defines a transaction bound to a single connection.
type DatabaseTx interface {
	Connection() DatabaseConn
	IsolationLevel() IsolationLevel
	Commit() error
	Rollback() error
}

// DatabaseCommand defines a command executed against a connection.
type DatabaseCommand interface {
	Connection() DatabaseConn
	// SetConnection fails with ErrInvalidCast when conn belongs to another provider.
	SetConnection(conn DatabaseConn) error
	Transaction() DatabaseTx
	SetTransaction(tx DatabaseTx) error

	CommandText() string
	SetCommandText(text string)
	CommandType() CommandType
	SetCommandType(t CommandType)
	Timeout() time.Duration
	SetTimeout(d time.Duration)

	Parameters() DatabaseParameters
	CreateParameter() DatabaseParameter

	Prepare(ctx context.Context) error
	Cancel() error

	ExecuteNonQuery(ctx context.Context) (int64, error)
	ExecuteScalar(ctx context.Context) (any, error)
	ExecuteReader(ctx context.Context, behavior CommandBehavior) (DatabaseReader, error)

	Close() error
}

// DatabaseParameter defines a single command parameter.
type DatabaseParameter interface {
	Name() string
	SetName(name string)
	DbType() DbType
	SetDbType(t DbType)
	ResetDbType()
	Direction() ParameterDirection
	SetDirection(d ParameterDirection)
	Value() any
	SetValue(v any)
	Size() int
	SetSize(size int)
	IsNullable() bool
	SetNullable(nullable bool)
	SourceColumn() string
	SetSourceColumn(column string)
}

// DatabaseParameters defines the ordered, name-indexable parameter collection of a command.
type DatabaseParameters interface {
	Len() int
	// Add appends p, or replaces the parameter that already carries p's name.
	Add(p DatabaseParameter) (int, error)
	Set(name string, p DatabaseParameter) error
	Insert(index int, p DatabaseParameter) error
	At(index int) (DatabaseParameter, error)
	Get(name string) (DatabaseParameter, bool)
	IndexOf(name string) int
	Contains(name string) bool
	Remove(p DatabaseParameter) error
	RemoveAt(index int) error
	RemoveNamed(name string)
	Clear()
	All() []DatabaseParameter
}

// DatabaseReader defines a forward-only reader over one or more result sets.
type DatabaseReader interface {
	Read() bool
	NextResult() bool
	Err() error

	FieldCount() int
	HasRows() bool
	RecordsAffected() int64
	IsClosed() bool

	GetName(ordinal int) (string, error)
	GetOrdinal(name string) (int, error)
	GetFieldType(ordinal int) (reflect.Type, error)
	GetDataTypeName(ordinal int) (string, error)

	GetValue(ordinal int) (any, error)
	GetValueByName(name string) (any, error)
	GetValues(dst []any) (int, error)
	IsDBNull(ordinal int) (bool, error)

	GetString(ordinal int) (string, error)
	GetBool(ordinal int) (bool, error)
	GetByte(ordinal int) (byte, error)
	GetChar(ordinal int) (rune, error)
	GetInt16(ordinal int) (int16, error)
	GetInt32(ordinal int) (int32, error)
	GetInt64(ordinal int) (int64, error)
	GetFloat32(ordinal int) (float32, error)
	GetFloat64(ordinal int) (float64, error)
	GetTime(ordinal int) (time.Time, error)
	GetDecimal(ordinal int) (decimal.Decimal, error)
	GetGUID(ordinal int) (uuid.UUID, error)

	Close() error
}

// Ensure our concrete types implement the interfaces at compile time
var (
	_ DatabaseFactory    = (*MockClientFactory)(nil)
	_ DatabaseConn       = (*MockConnection)(nil)
	_ DatabaseTx         = (*MockTransaction)(nil)
	_ DatabaseCommand    = (*MockCommand)(nil)
	_ DatabaseParameter  = (*MockParameter)(nil)
	_ DatabaseParameters = (*MockParameterCollection)(nil)
	_ DatabaseReader     = (*MockDataReader)(nil)

	_ DatabaseFactory    = (*SQLClientFactory)(nil)
	_ DatabaseConn       = (*SQLConnection)(nil)
	_ DatabaseTx         = (*SQLTransaction)(nil)
	_ DatabaseCommand    = (*SQLCommand)(nil)
	_ DatabaseParameter  = (*SQLParameter)(nil)
	_ DatabaseParameters = (*SQLParameterCollection)(nil)
	_ DatabaseReader     = (*SQLDataReader)(nil)
)
