package ygggo_mockdb

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConnectionState is the client-visible state of a connection.
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateOpen:
		return "Open"
	default:
		return "Closed"
	}
}

// CommandType tells the provider how to interpret the command text.
type CommandType int

const (
	CommandText CommandType = iota
	CommandStoredProcedure
	CommandTableDirect
)

func (t CommandType) String() string {
	switch t {
	case CommandStoredProcedure:
		return "StoredProcedure"
	case CommandTableDirect:
		return "TableDirect"
	default:
		return "Text"
	}
}

// CommandBehavior is a set of flags applied when executing a reader.
type CommandBehavior int

const (
	BehaviorDefault      CommandBehavior = 0
	BehaviorSingleResult CommandBehavior = 1 << iota
	BehaviorSingleRow
	// BehaviorCloseConnection closes the command's connection when the reader is closed.
	BehaviorCloseConnection
)

// Has reports whether all flags of f are set in b.
func (b CommandBehavior) Has(f CommandBehavior) bool { return b&f == f }

// ParameterDirection describes whether a parameter carries a value in, out, or both.
type ParameterDirection int

const (
	DirectionInput ParameterDirection = iota
	DirectionOutput
	DirectionInputOutput
	DirectionReturnValue
)

func (d ParameterDirection) String() string {
	switch d {
	case DirectionOutput:
		return "Output"
	case DirectionInputOutput:
		return "InputOutput"
	case DirectionReturnValue:
		return "ReturnValue"
	default:
		return "Input"
	}
}

// receivesOutput reports whether values are copied back into parameters of this direction.
func (d ParameterDirection) receivesOutput() bool {
	return d == DirectionOutput || d == DirectionInputOutput || d == DirectionReturnValue
}

// DbType is the provider-neutral type of a parameter.
type DbType int

const (
	DbTypeString DbType = iota
	DbTypeBoolean
	DbTypeByte
	DbTypeBinary
	DbTypeInt16
	DbTypeInt32
	DbTypeInt64
	DbTypeSingle
	DbTypeDouble
	DbTypeDecimal
	DbTypeDateTime
	DbTypeDuration
	DbTypeGUID
	DbTypeObject
)

var dbTypeNames = map[DbType]string{
	DbTypeString:   "String",
	DbTypeBoolean:  "Boolean",
	DbTypeByte:     "Byte",
	DbTypeBinary:   "Binary",
	DbTypeInt16:    "Int16",
	DbTypeInt32:    "Int32",
	DbTypeInt64:    "Int64",
	DbTypeSingle:   "Single",
	DbTypeDouble:   "Double",
	DbTypeDecimal:  "Decimal",
	DbTypeDateTime: "DateTime",
	DbTypeDuration: "Duration",
	DbTypeGUID:     "Guid",
	DbTypeObject:   "Object",
}

func (t DbType) String() string {
	if n, ok := dbTypeNames[t]; ok {
		return n
	}
	return "Object"
}

// DbTypeOf infers the DbType for a runtime value. Unknown types map to DbTypeObject.
func DbTypeOf(v any) DbType {
	switch v.(type) {
	case nil:
		return DbTypeObject
	case string, sql.NullString:
		return DbTypeString
	case bool, sql.NullBool:
		return DbTypeBoolean
	case uint8:
		return DbTypeByte
	case []byte:
		return DbTypeBinary
	case int16, int8, sql.NullInt16:
		return DbTypeInt16
	case int32, uint16, sql.NullInt32:
		return DbTypeInt32
	case int, int64, uint32, uint, uint64, sql.NullInt64:
		return DbTypeInt64
	case float32:
		return DbTypeSingle
	case float64, sql.NullFloat64:
		return DbTypeDouble
	case decimal.Decimal, decimal.NullDecimal:
		return DbTypeDecimal
	case time.Time, sql.NullTime:
		return DbTypeDateTime
	case time.Duration:
		return DbTypeDuration
	case uuid.UUID, uuid.NullUUID:
		return DbTypeGUID
	default:
		return DbTypeObject
	}
}

// IsolationLevel is the locking behaviour requested for a transaction.
type IsolationLevel int

const (
	IsolationUnspecified IsolationLevel = iota
	IsolationReadUncommitted
	IsolationReadCommitted
	IsolationRepeatableRead
	IsolationSerializable
	IsolationSnapshot
)

func (l IsolationLevel) String() string {
	switch l {
	case IsolationReadUncommitted:
		return "ReadUncommitted"
	case IsolationReadCommitted:
		return "ReadCommitted"
	case IsolationRepeatableRead:
		return "RepeatableRead"
	case IsolationSerializable:
		return "Serializable"
	case IsolationSnapshot:
		return "Snapshot"
	default:
		return "Unspecified"
	}
}

// sqlIsolation maps the level onto database/sql.
func (l IsolationLevel) sqlIsolation() sql.IsolationLevel {
	switch l {
	case IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case IsolationReadCommitted:
		return sql.LevelReadCommitted
	case IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case IsolationSerializable:
		return sql.LevelSerializable
	case IsolationSnapshot:
		return sql.LevelSnapshot
	default:
		return sql.LevelDefault
	}
}

func isolationFromSQL(l sql.IsolationLevel) IsolationLevel {
	switch l {
	case sql.LevelReadUncommitted:
		return IsolationReadUncommitted
	case sql.LevelReadCommitted:
		return IsolationReadCommitted
	case sql.LevelRepeatableRead:
		return IsolationRepeatableRead
	case sql.LevelSerializable, sql.LevelLinearizable:
		return IsolationSerializable
	case sql.LevelSnapshot:
		return IsolationSnapshot
	default:
		return IsolationUnspecified
	}
}
