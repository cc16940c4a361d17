package ygggo_mockdb

import (
	"reflect"
	"strings"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Column describes one column of a DataTable. A nil Type is inferred from the data.
type Column struct {
	Name string
	Type reflect.Type
}

// Col returns a column whose type is inferred from its first non-nil value.
func Col(name string) Column { return Column{Name: name} }

// TypedCol returns a column declared with type T.
func TypedCol[T any](name string) Column {
	return Column{Name: name, Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// DataTable is one tabular result set of a scripted command.
type DataTable struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// NewDataTable creates an empty table with the given columns.
func NewDataTable(name string, columns ...Column) *DataTable {
	return &DataTable{Name: name, Columns: columns}
}

// AddRow appends a row. Missing trailing values are nil, extra values are dropped.
func (t *DataTable) AddRow(values ...any) *DataTable {
	row := make([]any, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return t
}

// Ordinal returns the index of the named column, preferring an exact match
// over a case-insensitive one. It returns -1 when absent.
func (t *DataTable) Ordinal(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// ColumnType returns the declared type of the column, or the dynamic type of
// its first non-nil value, or the empty interface type.
func (t *DataTable) ColumnType(ordinal int) reflect.Type {
	c := t.Columns[ordinal]
	if c.Type != nil {
		return c.Type
	}
	for _, row := range t.Rows {
		if ordinal < len(row) && row[ordinal] != nil {
			return reflect.TypeOf(row[ordinal])
		}
	}
	return anyType
}
