package ygggo_mockdb

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockDataReader is a forward-only reader over scripted result sets.
// Typed getters take scripted values as stored: text is not parsed into
// numbers, times, decimals or GUIDs the way SQLDataReader parses driver text.
type MockDataReader struct {
	tables []*DataTable
	table  int
	row    int

	// RecordsAffectedResult is reported by RecordsAffected.
	RecordsAffectedResult int64
	// DepthResult is reported by Depth.
	DepthResult int

	behavior CommandBehavior
	command  *MockCommand
	onClose  func() error
	closed   bool
}

// NewMockDataReader returns a reader positioned before the first row of the first table.
func NewMockDataReader(tables ...*DataTable) *MockDataReader {
	return &MockDataReader{tables: tables, row: -1}
}

func (r *MockDataReader) current() *DataTable {
	if r.table < 0 || r.table >= len(r.tables) || r.tables[r.table] == nil {
		return nil
	}
	return r.tables[r.table]
}

// Read advances to the next row of the current result set. Once the rows are
// exhausted the cursor stays past the end.
func (r *MockDataReader) Read() bool {
	t := r.current()
	if t == nil {
		return false
	}
	if r.behavior.Has(BehaviorSingleRow) && r.row >= 0 {
		r.row = len(t.Rows)
		return false
	}
	if r.row+1 < len(t.Rows) {
		r.row++
		return true
	}
	r.row = len(t.Rows)
	return false
}

// NextResult moves to the next result set and resets the row cursor.
// It returns false, without moving, when there is no further result set.
func (r *MockDataReader) NextResult() bool {
	if r.behavior.Has(BehaviorSingleResult) || r.table+1 >= len(r.tables) {
		return false
	}
	r.table++
	r.row = -1
	return true
}

// Err always returns nil; scripted readers cannot fail mid-iteration.
func (r *MockDataReader) Err() error { return nil }

func (r *MockDataReader) FieldCount() int {
	if t := r.current(); t != nil {
		return len(t.Columns)
	}
	return 0
}

// HasRows reports whether rows remain at or after the cursor in the current result set.
func (r *MockDataReader) HasRows() bool {
	t := r.current()
	return t != nil && len(t.Rows) > 0 && r.row < len(t.Rows)
}

func (r *MockDataReader) RecordsAffected() int64 { return r.RecordsAffectedResult }
func (r *MockDataReader) Depth() int             { return r.DepthResult }
func (r *MockDataReader) IsClosed() bool         { return r.closed }

// CurrentRow returns the row cursor, -1 before the first Read.
func (r *MockDataReader) CurrentRow() int { return r.row }

// CurrentResultSet returns the index of the current result set.
func (r *MockDataReader) CurrentResultSet() int { return r.table }

// Command returns the command that produced the reader, if any.
func (r *MockDataReader) Command() *MockCommand { return r.command }

func (r *MockDataReader) column(ordinal int) (*DataTable, error) {
	t := r.current()
	if t == nil {
		return nil, outOfRange("no result set")
	}
	if ordinal < 0 || ordinal >= len(t.Columns) {
		return nil, outOfRange("column ordinal %d (field count %d)", ordinal, len(t.Columns))
	}
	return t, nil
}

func (r *MockDataReader) GetName(ordinal int) (string, error) {
	t, err := r.column(ordinal)
	if err != nil {
		return "", err
	}
	return t.Columns[ordinal].Name, nil
}

func (r *MockDataReader) GetOrdinal(name string) (int, error) {
	t := r.current()
	if t == nil {
		return -1, outOfRange("no result set")
	}
	i := t.Ordinal(name)
	if i < 0 {
		return -1, outOfRange("column %q not found", name)
	}
	return i, nil
}

func (r *MockDataReader) GetFieldType(ordinal int) (reflect.Type, error) {
	t, err := r.column(ordinal)
	if err != nil {
		return nil, err
	}
	return t.ColumnType(ordinal), nil
}

func (r *MockDataReader) GetDataTypeName(ordinal int) (string, error) {
	ft, err := r.GetFieldType(ordinal)
	if err != nil {
		return "", err
	}
	return typeName(ft), nil
}

// GetValue returns the raw value of the column in the current row.
func (r *MockDataReader) GetValue(ordinal int) (any, error) {
	t, err := r.column(ordinal)
	if err != nil {
		return nil, err
	}
	if r.row < 0 || r.row >= len(t.Rows) {
		return nil, outOfRange("no current row")
	}
	row := t.Rows[r.row]
	if ordinal >= len(row) {
		return nil, nil
	}
	return row[ordinal], nil
}

func (r *MockDataReader) GetValueByName(name string) (any, error) {
	i, err := r.GetOrdinal(name)
	if err != nil {
		return nil, err
	}
	return r.GetValue(i)
}

// GetValues copies the current row into dst and returns the number of values copied.
func (r *MockDataReader) GetValues(dst []any) (int, error) {
	n := r.FieldCount()
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		v, err := r.GetValue(i)
		if err != nil {
			return i, err
		}
		dst[i] = v
	}
	return n, nil
}

func (r *MockDataReader) IsDBNull(ordinal int) (bool, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return false, err
	}
	return isNull(v), nil
}

func (r *MockDataReader) GetString(ordinal int) (string, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return "", err
	}
	return toString(v)
}

func (r *MockDataReader) GetBool(ordinal int) (bool, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return false, err
	}
	if isText(v) {
		return false, castError(v, "bool")
	}
	return toBool(v)
}

func (r *MockDataReader) GetByte(ordinal int) (byte, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	if isText(v) {
		return 0, castError(v, "byte")
	}
	return toByte(v)
}

func (r *MockDataReader) GetChar(ordinal int) (rune, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	return toChar(v)
}

func (r *MockDataReader) GetInt16(ordinal int) (int16, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	if isText(v) {
		return 0, castError(v, "int16")
	}
	return toInt16(v)
}

func (r *MockDataReader) GetInt32(ordinal int) (int32, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	if isText(v) {
		return 0, castError(v, "int32")
	}
	return toInt32(v)
}

func (r *MockDataReader) GetInt64(ordinal int) (int64, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	if isText(v) {
		return 0, castError(v, "int64")
	}
	return toInt64(v)
}

func (r *MockDataReader) GetFloat32(ordinal int) (float32, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	if isText(v) {
		return 0, castError(v, "float32")
	}
	return toFloat32(v)
}

func (r *MockDataReader) GetFloat64(ordinal int) (float64, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return 0, err
	}
	if isText(v) {
		return 0, castError(v, "float64")
	}
	return toFloat64(v)
}

func (r *MockDataReader) GetTime(ordinal int) (time.Time, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return time.Time{}, err
	}
	if isText(v) {
		return time.Time{}, castError(v, "time.Time")
	}
	return toTime(v)
}

func (r *MockDataReader) GetDecimal(ordinal int) (decimal.Decimal, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if isText(v) {
		return decimal.Decimal{}, castError(v, "decimal")
	}
	return toDecimal(v)
}

func (r *MockDataReader) GetGUID(ordinal int) (uuid.UUID, error) {
	v, err := r.GetValue(ordinal)
	if err != nil {
		return uuid.Nil, err
	}
	if isText(v) {
		return uuid.Nil, castError(v, "uuid")
	}
	return toGUID(v)
}

// GetBytes is not simulated.
func (r *MockDataReader) GetBytes(ordinal int, offset int64, buf []byte) (int64, error) {
	return 0, notImplemented("GetBytes")
}

// GetChars is not simulated.
func (r *MockDataReader) GetChars(ordinal int, offset int64, buf []rune) (int64, error) {
	return 0, notImplemented("GetChars")
}

// GetData is not simulated.
func (r *MockDataReader) GetData(ordinal int) (*MockDataReader, error) {
	return nil, notImplemented("GetData")
}

// GetSchemaTable is not simulated.
func (r *MockDataReader) GetSchemaTable() (*DataTable, error) {
	return nil, notImplemented("GetSchemaTable")
}

// Close marks the reader closed. With BehaviorCloseConnection the command's
// connection is closed as well.
func (r *MockDataReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.onClose != nil {
		return r.onClose()
	}
	return nil
}

// isText reports scripted text, which the typed getters other than GetString
// and GetChar refuse.
func isText(v any) bool {
	switch v.(type) {
	case string, []byte, sql.NullString:
		return true
	}
	return false
}
