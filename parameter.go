package ygggo_mockdb

// parameterFields carries the state shared by every provider's parameter type.
type parameterFields struct {
	name             string
	dbType           DbType
	direction        ParameterDirection
	value            any
	size             int
	nullable         bool
	sourceColumn     string
	sourceNullMapped bool
}

func (p *parameterFields) Name() string                      { return p.name }
func (p *parameterFields) SetName(name string)               { p.name = name }
func (p *parameterFields) DbType() DbType                    { return p.dbType }
func (p *parameterFields) SetDbType(t DbType)                { p.dbType = t }
func (p *parameterFields) ResetDbType()                      { p.dbType = DbTypeString }
func (p *parameterFields) Direction() ParameterDirection     { return p.direction }
func (p *parameterFields) SetDirection(d ParameterDirection) { p.direction = d }
func (p *parameterFields) Value() any                        { return p.value }
func (p *parameterFields) Size() int                         { return p.size }
func (p *parameterFields) SetSize(size int)                  { p.size = size }
func (p *parameterFields) IsNullable() bool                  { return p.nullable }
func (p *parameterFields) SetNullable(nullable bool)         { p.nullable = nullable }
func (p *parameterFields) SourceColumn() string              { return p.sourceColumn }
func (p *parameterFields) SetSourceColumn(column string)     { p.sourceColumn = column }

// SetValue stores v. The DbType is left untouched.
func (p *parameterFields) SetValue(v any) { p.value = v }

// SourceColumnNullMapping reports whether the source column is nullable.
func (p *parameterFields) SourceColumnNullMapping() bool { return p.sourceNullMapped }

// SetSourceColumnNullMapping sets the source-column null mapping flag.
func (p *parameterFields) SetSourceColumnNullMapping(v bool) { p.sourceNullMapped = v }

// MockParameter is the parameter type of the mock provider.
type MockParameter struct {
	parameterFields
}

// NewMockParameter returns an input parameter of type String with the given name and value.
func NewMockParameter(name string, value any) *MockParameter {
	p := &MockParameter{}
	p.name = name
	p.value = value
	return p
}

// NewParameter creates a parameter through factory and infers its DbType from
// value, so the same call works for the mock and the database/sql provider.
func NewParameter(factory DatabaseFactory, name string, value any) DatabaseParameter {
	p := factory.CreateParameter()
	p.SetName(name)
	p.SetValue(value)
	p.SetDbType(DbTypeOf(value))
	return p
}

// OutputParameter creates a parameter of the given direction with no value.
func OutputParameter(factory DatabaseFactory, name string, direction ParameterDirection) DatabaseParameter {
	p := factory.CreateParameter()
	p.SetName(name)
	p.SetDirection(direction)
	p.SetDbType(DbTypeObject)
	return p
}
