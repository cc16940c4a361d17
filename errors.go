package ygggo_mockdb

import (
	"database/sql/driver"
	"errors"
	"fmt"

	mysql "github.com/go-sql-driver/mysql"
)

var (
	// ErrDataAccess is matched by every simulated or protocol-violation failure.
	ErrDataAccess = errors.New("ygggo_mockdb: data access error")
	// ErrInvalidCast reports a value or provider object of the wrong type.
	ErrInvalidCast = errors.New("ygggo_mockdb: invalid cast")
	// ErrOutOfRange reports a bad ordinal, column name, or cursor position.
	ErrOutOfRange = errors.New("ygggo_mockdb: index out of range")
	// ErrNotImplemented is returned by surfaces the mock does not simulate.
	ErrNotImplemented = errors.New("ygggo_mockdb: not implemented")
)

// DataAccessError is the failure raised by connections, commands and transactions.
// It matches ErrDataAccess with errors.Is and unwraps to the scripted cause, if any.
type DataAccessError struct {
	Op      string
	Message string
	Err     error
}

func (e *DataAccessError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

func newDataAccessError(op, format string, args ...any) *DataAccessError {
	return &DataAccessError{Op: op, Message: fmt.Sprintf(format, args...)}
}

func invalidCast(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidCast}, args...)...)
}

func outOfRange(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrOutOfRange}, args...)...)
}

func notImplemented(member string) error {
	return fmt.Errorf("%w: MockDataReader does not implement %s", ErrNotImplemented, member)
}

// ErrorClass groups errors by how a caller should react to them.
type ErrorClass int

const (
	ErrClassUnknown ErrorClass = iota
	ErrClassRetryable
	ErrClassConflict
	ErrClassReadonly
	ErrClassConstraint
)

func (c ErrorClass) String() string {
	switch c {
	case ErrClassRetryable:
		return "retryable"
	case ErrClassConflict:
		return "conflict"
	case ErrClassReadonly:
		return "readonly"
	case ErrClassConstraint:
		return "constraint"
	default:
		return "unknown"
	}
}

// Classify inspects err (including causes wrapped by a DataAccessError) and
// returns its class. Only MySQL server errors and driver.ErrBadConn are recognised.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}
	if errors.Is(err, driver.ErrBadConn) {
		return ErrClassRetryable
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1213, 1205: // deadlock, lock wait timeout
			return ErrClassRetryable
		case 1290, 1836: // read-only server
			return ErrClassReadonly
		case 1062, 1022: // duplicate entry, duplicate key
			return ErrClassConflict
		case 1048, 1451, 1452, 3819:
			return ErrClassConstraint
		}
	}
	return ErrClassUnknown
}
