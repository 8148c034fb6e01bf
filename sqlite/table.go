package sqlite

import (
	"strings"
)

// ColumnType is the declared type affinity of a Column.
type ColumnType int

const (
	// ColumnNone declares no type.
	ColumnNone ColumnType = iota
	ColumnNumeric
	ColumnInteger
	ColumnReal
	ColumnText
	ColumnBlob
)

func (t ColumnType) String() string {
	switch t {
	case ColumnNumeric:
		return "NUMERIC"
	case ColumnInteger:
		return "INTEGER"
	case ColumnReal:
		return "REAL"
	case ColumnText:
		return "TEXT"
	case ColumnBlob:
		return "BLOB"
	}
	return ""
}

// Column of a Table.
type Column struct {
	// Table is the name of the Column's table.
	Table       string
	Name        string
	Type        ColumnType
	Constraints []Constraint
}

// isUnique is true if the Column has a Unique or PrimaryKey constraint.
func (c *Column) isUnique() bool {
	for _, con := range c.Constraints {
		switch con.(type) {
		case Unique, PrimaryKey:
			return true
		}
	}
	return false
}

func (c *Column) sql(b *strings.Builder) error {
	b.WriteString(c.Name)
	if c.Type != ColumnNone {
		b.WriteByte(' ')
		b.WriteString(c.Type.String())
	}
	for _, con := range c.Constraints {
		b.WriteByte(' ')
		if err := con.constraintSQL(b); err != nil {
			return err
		}
	}
	return nil
}

// Table is a declarative table definition, from which CREATE TABLE and
// CREATE INDEX statements are built.
//
//	var t = &sqlite.Table{Name: "users", IfNotExists: true}
//	var id = t.AddColumn("id", sqlite.ColumnInteger, sqlite.PrimaryKey{})
//	var email = t.AddColumn("email", sqlite.ColumnText, sqlite.NotNull{}, sqlite.Unique{})
//	t.AddIndex(email)
//
// A Table is built once, and isn't modified after Initialize.
type Table struct {
	Name         string
	Columns      []*Column
	Constraints  []TableConstraint
	Indices      []Index
	Temporary    bool
	IfNotExists  bool
	WithoutRowID bool

	ready bool
}

// AddColumn adds and returns a Column of the Table.
func (t *Table) AddColumn(name string, typ ColumnType, constraints ...Constraint) *Column {
	var c = &Column{Table: t.Name, Name: name, Type: typ, Constraints: constraints}
	t.Columns = append(t.Columns, c)
	return c
}

// AddPrimaryKey adds a composite PRIMARY KEY of |columns|.
func (t *Table) AddPrimaryKey(columns ...*Column) {
	t.Constraints = append(t.Constraints, TablePrimaryKey{Columns: columnNames(columns)})
}

// AddUnique adds a composite UNIQUE constraint of |columns|.
func (t *Table) AddUnique(columns ...*Column) {
	t.Constraints = append(t.Constraints, TableUnique{Columns: columnNames(columns)})
}

// AddIndex adds and returns an Index of |columns|.
func (t *Table) AddIndex(columns ...*Column) *Index {
	t.Indices = append(t.Indices, Index{Table: t.Name, Columns: columnNames(columns)})
	return &t.Indices[len(t.Indices)-1]
}

// AddUniqueIndex adds and returns a UNIQUE Index of |columns|.
func (t *Table) AddUniqueIndex(columns ...*Column) *Index {
	var ind = t.AddIndex(columns...)
	ind.Unique = true
	return ind
}

// IsReady is true after the Table has been Initialized.
func (t *Table) IsReady() bool { return t.ready }

// CreateTableSQL builds the CREATE TABLE statement of the Table.
func (t *Table) CreateTableSQL() (string, error) {
	if t.Name == "" {
		return "", newError(StatementIsMisused, 0, "table has no name")
	} else if len(t.Columns) == 0 {
		return "", newError(StatementIsMisused, 0, "table "+t.Name+" has no columns")
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if t.Temporary {
		b.WriteString("TEMPORARY ")
	}
	b.WriteString("TABLE ")
	if t.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(t.Name)
	b.WriteByte('(')

	for i, c := range t.Columns {
		if i != 0 {
			b.WriteString(", ")
		}
		if err := c.sql(&b); err != nil {
			return "", err
		}
	}
	for _, con := range t.Constraints {
		b.WriteString(", ")
		con.tableConstraintSQL(&b)
	}
	b.WriteByte(')')

	if t.WithoutRowID {
		b.WriteString(" WITHOUT ROWID")
	}
	return b.String(), nil
}

// Initialize creates the Table and its Indices within an immediate
// transaction of |db|, and marks the Table as ready.
func (t *Table) Initialize(db *Database) error {
	var statements []string

	if sql, err := t.CreateTableSQL(); err != nil {
		return err
	} else {
		statements = append(statements, sql)
	}
	for _, ind := range t.Indices {
		if sql, err := ind.SQL(); err != nil {
			return err
		} else {
			statements = append(statements, sql)
		}
	}

	if err := WithImmediateTransaction(db, func() error {
		return db.ExecuteScript(strings.Join(statements, ";\n"))
	}); err != nil {
		return err
	}
	t.ready = true
	return nil
}

// Index is a CREATE INDEX statement of a Table.
type Index struct {
	Table   string
	Columns []string
	Unique  bool
	// Condition of a partial index, or empty.
	Condition string
}

// Name of the Index, composed of its table and column names.
func (ind Index) Name() string {
	return "index_" + ind.Table + "_" + strings.Join(ind.Columns, "_")
}

// SQL builds the CREATE INDEX statement of the Index.
func (ind Index) SQL() (string, error) {
	if ind.Table == "" || len(ind.Columns) == 0 {
		return "", newError(StatementIsMisused, 0, "index requires a table and at least one column")
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if ind.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ")
	b.WriteString(ind.Name())
	b.WriteString(" ON ")
	b.WriteString(ind.Table)
	b.WriteByte('(')
	b.WriteString(strings.Join(ind.Columns, ", "))
	b.WriteByte(')')

	if ind.Condition != "" {
		b.WriteString(" WHERE ")
		b.WriteString(ind.Condition)
	}
	return b.String(), nil
}

func columnNames(columns []*Column) []string {
	var out = make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Name
	}
	return out
}
