package ygggo_mockdb

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixture is a result script stored as YAML:
//
//	connections:
//	  - connection: "data source=db;database=app"
//	    throw_on_open: false
//	    commands:
//	      - text: "SELECT name FROM users WHERE id = ?"
//	        results:
//	          - result_sets:
//	              - name: users
//	                columns: [{name: name, type: string}]
//	                rows: [["alice"]]
//	      - text: "UPDATE users SET name = ?"
//	        results:
//	          - rows_affected: 1
//	          - throw: true
//	            error: {mysql: 1213, message: "Deadlock found"}
//
// An empty connection addresses the default bucket, an empty text the default command.
type Fixture struct {
	Connections []ConnectionFixture `yaml:"connections"`
}

// ConnectionFixture scripts one connection string.
type ConnectionFixture struct {
	Connection      string           `yaml:"connection"`
	ThrowOnOpen     bool             `yaml:"throw_on_open"`
	ThrowOnCommit   bool             `yaml:"throw_on_commit"`
	ThrowOnRollback bool             `yaml:"throw_on_rollback"`
	Commands        []CommandFixture `yaml:"commands"`
}

// CommandFixture scripts the result queue of one command text.
type CommandFixture struct {
	Text    string          `yaml:"text"`
	Results []ResultFixture `yaml:"results"`
}

// ResultFixture is one scripted CommandResults.
type ResultFixture struct {
	Scalar        any            `yaml:"scalar"`
	RowsAffected  int64          `yaml:"rows_affected"`
	LastInsertID  int64          `yaml:"last_insert_id"`
	ResultSets    []TableFixture `yaml:"result_sets"`
	Throw         bool           `yaml:"throw"`
	Error         *ErrorFixture  `yaml:"error"`
	OutParameters map[string]any `yaml:"out_parameters"`
}

// ErrorFixture describes the cause attached to a failing result.
type ErrorFixture struct {
	Message string `yaml:"message"`
	// MySQL, when set, produces a *mysql.MySQLError with this number.
	MySQL   uint16 `yaml:"mysql"`
	BadConn bool   `yaml:"bad_conn"`
}

// TableFixture is one result set.
type TableFixture struct {
	Name    string          `yaml:"name"`
	Columns []ColumnFixture `yaml:"columns"`
	Rows    [][]any         `yaml:"rows"`
}

// ColumnFixture is a column; it may be written as a bare name.
type ColumnFixture struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// UnmarshalYAML accepts either "name" or {name: ..., type: ...}.
func (c *ColumnFixture) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		c.Name = name
		return nil
	}
	type plain ColumnFixture
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*c = ColumnFixture(p)
	return nil
}

// QueueSummary describes one scripted queue of a fixture.
type QueueSummary struct {
	Connection string
	Command    string
	Results    int
	Failures   int
}

var columnTypes = map[string]reflect.Type{
	"":        nil,
	"any":     nil,
	"string":  reflect.TypeOf((*string)(nil)).Elem(),
	"bool":    reflect.TypeOf((*bool)(nil)).Elem(),
	"byte":    reflect.TypeOf((*byte)(nil)).Elem(),
	"int16":   reflect.TypeOf((*int16)(nil)).Elem(),
	"int32":   reflect.TypeOf((*int32)(nil)).Elem(),
	"int":     reflect.TypeOf((*int64)(nil)).Elem(),
	"int64":   reflect.TypeOf((*int64)(nil)).Elem(),
	"float32": reflect.TypeOf((*float32)(nil)).Elem(),
	"float64": reflect.TypeOf((*float64)(nil)).Elem(),
	"time":    reflect.TypeOf((*time.Time)(nil)).Elem(),
	"decimal": reflect.TypeOf((*decimal.Decimal)(nil)).Elem(),
	"uuid":    reflect.TypeOf((*uuid.UUID)(nil)).Elem(),
	"bytes":   reflect.TypeOf((*[]byte)(nil)).Elem(),
}

// LoadFixture parses and validates a YAML fixture.
func LoadFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixtureFile reads and parses a fixture file.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	f, err := LoadFixture(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks column types and row values without touching a factory.
func (f *Fixture) Validate() error {
	for ci, c := range f.Connections {
		for mi, cmd := range c.Commands {
			for ri, r := range cmd.Results {
				if _, err := r.commandResults(); err != nil {
					return fmt.Errorf("connections[%d].commands[%d].results[%d]: %w", ci, mi, ri, err)
				}
			}
		}
	}
	return nil
}

// Apply enqueues the fixture's results on factory and sets its connection flags.
// Results are appended to whatever is already scripted.
func (f *Fixture) Apply(factory *MockClientFactory) error {
	for _, c := range f.Connections {
		bucket := factory.GetOrCreate(c.Connection)
		bucket.ShouldThrowOnOpen = c.ThrowOnOpen
		bucket.ShouldThrowOnCommit = c.ThrowOnCommit
		bucket.ShouldThrowOnRollback = c.ThrowOnRollback
		for _, cmd := range c.Commands {
			q := bucket.Command(cmd.Text)
			for _, r := range cmd.Results {
				res, err := r.commandResults()
				if err != nil {
					return err
				}
				q.Enqueue(res)
			}
		}
	}
	return nil
}

// Summary lists every scripted queue in fixture order.
func (f *Fixture) Summary() []QueueSummary {
	var out []QueueSummary
	for _, c := range f.Connections {
		conn := c.Connection
		if conn == "" {
			conn = DefaultConnectionString
		}
		for _, cmd := range c.Commands {
			text := cmd.Text
			if text == "" {
				text = DefaultCommandText
			}
			s := QueueSummary{Connection: conn, Command: text, Results: len(cmd.Results)}
			for _, r := range cmd.Results {
				if r.Throw {
					s.Failures++
				}
			}
			out = append(out, s)
		}
	}
	return out
}

func (r ResultFixture) commandResults() (*CommandResults, error) {
	res := &CommandResults{
		ScalarResult:         normalizeYAMLValue(r.Scalar),
		RowsAffectedResult:   r.RowsAffected,
		LastInsertIDResult:   r.LastInsertID,
		ShouldThrowOnExecute: r.Throw,
	}
	if r.Error != nil {
		res.ExecuteError = r.Error.err()
	}
	if len(r.OutParameters) > 0 {
		res.OutParameters = make(map[string]any, len(r.OutParameters))
		for k, v := range r.OutParameters {
			res.OutParameters[k] = normalizeYAMLValue(v)
		}
	}
	for i, t := range r.ResultSets {
		table, err := t.dataTable()
		if err != nil {
			return nil, fmt.Errorf("result_sets[%d]: %w", i, err)
		}
		res.ResultSet = append(res.ResultSet, table)
	}
	return res, nil
}

func (e *ErrorFixture) err() error {
	msg := e.Message
	switch {
	case e.MySQL != 0:
		return &mysql.MySQLError{Number: e.MySQL, Message: msg}
	case e.BadConn:
		return driver.ErrBadConn
	case msg == "":
		return nil
	default:
		return errors.New(msg)
	}
}

func (t TableFixture) dataTable() (*DataTable, error) {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		typ, ok := columnTypes[strings.ToLower(c.Type)]
		if !ok {
			return nil, fmt.Errorf("column %q: unknown type %q", c.Name, c.Type)
		}
		cols[i] = Column{Name: c.Name, Type: typ}
	}
	table := NewDataTable(t.Name, cols...)
	for ri, row := range t.Rows {
		if len(row) > len(cols) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", ri, len(row), len(cols))
		}
		values := make([]any, len(row))
		for ci, v := range row {
			cv, err := convertFixtureValue(normalizeYAMLValue(v), cols[ci].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", ri, cols[ci].Name, err)
			}
			values[ci] = cv
		}
		table.AddRow(values...)
	}
	return table, nil
}

// normalizeYAMLValue turns decoder integers into int64 where they fit.
func normalizeYAMLValue(v any) any {
	switch n := v.(type) {
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case int:
		return int64(n)
	}
	return v
}

func convertFixtureValue(v any, typ reflect.Type) (any, error) {
	if v == nil || typ == nil {
		return v, nil
	}
	switch typ {
	case reflect.TypeOf((*string)(nil)).Elem():
		return toString(v)
	case reflect.TypeOf((*bool)(nil)).Elem():
		return toBool(v)
	case reflect.TypeOf((*byte)(nil)).Elem():
		return toByte(v)
	case reflect.TypeOf((*int16)(nil)).Elem():
		return toInt16(v)
	case reflect.TypeOf((*int32)(nil)).Elem():
		return toInt32(v)
	case reflect.TypeOf((*int64)(nil)).Elem():
		return toInt64(v)
	case reflect.TypeOf((*float32)(nil)).Elem():
		return toFloat32(v)
	case reflect.TypeOf((*float64)(nil)).Elem():
		return toFloat64(v)
	case reflect.TypeOf((*time.Time)(nil)).Elem():
		return toTime(v)
	case reflect.TypeOf((*decimal.Decimal)(nil)).Elem():
		return toDecimal(v)
	case reflect.TypeOf((*uuid.UUID)(nil)).Elem():
		return toGUID(v)
	case reflect.TypeOf((*[]byte)(nil)).Elem():
		s, err := toString(v)
		return []byte(s), err
	}
	return v, nil
}
