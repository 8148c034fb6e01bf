package sqlite

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Constraint is a constraint of a Column.
type Constraint interface {
	constraintSQL(b *strings.Builder) error
}

// TableConstraint is a constraint over multiple columns of a Table.
type TableConstraint interface {
	tableConstraintSQL(b *strings.Builder)
}

// Unique constrains a Column to distinct values.
type Unique struct{}

// PrimaryKey makes a Column the primary key of its table.
type PrimaryKey struct {
	Autoincrement bool
}

// NotNull constrains a Column to non-NULL values.
type NotNull struct{}

// Check constrains a Column to values for which Expression is true.
type Check struct {
	Expression string
}

// DefaultValue is the default Value of a Column.
type DefaultValue struct {
	Value Value
}

// DefaultExpression is a default expression of a Column.
type DefaultExpression struct {
	Expression string
}

// Collate is the collating sequence of a Column.
type Collate struct {
	Name string
}

// GeneratedStorage determines whether a generated Column is stored.
type GeneratedStorage int

const (
	GeneratedVirtual GeneratedStorage = iota
	GeneratedStored
)

// GeneratedAlways makes a Column a generated column of Expression.
type GeneratedAlways struct {
	Expression string
	Storage    GeneratedStorage
}

// ForeignKeyAction is an ON UPDATE or ON DELETE action of a ForeignKey.
type ForeignKeyAction int

const (
	NoAction ForeignKeyAction = iota
	Restrict
	SetNull
	SetDefault
	Cascade
)

func (a ForeignKeyAction) String() string {
	switch a {
	case Restrict:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	case Cascade:
		return "CASCADE"
	}
	return "NO ACTION"
}

// Enforcement is the timing at which a ForeignKey is checked.
type Enforcement int

const (
	// EnforcementImmediate checks the ForeignKey at the end of each statement.
	EnforcementImmediate Enforcement = iota
	// EnforcementDeferred checks the ForeignKey when its transaction commits.
	EnforcementDeferred
)

// ForeignKey references a row of another table. If Column is set it must
// have a Unique or PrimaryKey constraint, and the ForeignKey references it.
// Otherwise the ForeignKey references the primary key of Table.
type ForeignKey struct {
	Table       string
	Column      *Column
	OnUpdate    ForeignKeyAction
	OnDelete    ForeignKeyAction
	Enforcement Enforcement
}

func (Unique) constraintSQL(b *strings.Builder) error {
	b.WriteString("UNIQUE")
	return nil
}

func (pk PrimaryKey) constraintSQL(b *strings.Builder) error {
	b.WriteString("PRIMARY KEY")
	if pk.Autoincrement {
		b.WriteString(" AUTOINCREMENT")
	}
	return nil
}

func (NotNull) constraintSQL(b *strings.Builder) error {
	b.WriteString("NOT NULL")
	return nil
}

func (c Check) constraintSQL(b *strings.Builder) error {
	b.WriteString("CHECK (")
	b.WriteString(c.Expression)
	b.WriteByte(')')
	return nil
}

func (d DefaultValue) constraintSQL(b *strings.Builder) error {
	b.WriteString("DEFAULT ")
	b.WriteString(literal(d.Value))
	return nil
}

func (d DefaultExpression) constraintSQL(b *strings.Builder) error {
	b.WriteString("DEFAULT (")
	b.WriteString(d.Expression)
	b.WriteByte(')')
	return nil
}

func (c Collate) constraintSQL(b *strings.Builder) error {
	b.WriteString("COLLATE ")
	b.WriteString(c.Name)
	return nil
}

func (g GeneratedAlways) constraintSQL(b *strings.Builder) error {
	b.WriteString("GENERATED ALWAYS AS (")
	b.WriteString(g.Expression)
	b.WriteByte(')')
	if g.Storage == GeneratedStored {
		b.WriteString(" STORED")
	} else {
		b.WriteString(" VIRTUAL")
	}
	return nil
}

func (fk ForeignKey) constraintSQL(b *strings.Builder) error {
	var table = fk.Table
	if fk.Column != nil {
		if !fk.Column.isUnique() {
			return newError(ForeignKeyColumnIsNotUnique, 0,
				"foreign key column "+fk.Column.Table+"."+fk.Column.Name+" is not UNIQUE or a PRIMARY KEY")
		}
		table = fk.Column.Table
	}

	b.WriteString("REFERENCES ")
	b.WriteString(table)
	if fk.Column != nil {
		b.WriteByte('(')
		b.WriteString(fk.Column.Name)
		b.WriteByte(')')
	}
	if fk.OnUpdate != NoAction {
		b.WriteString(" ON UPDATE ")
		b.WriteString(fk.OnUpdate.String())
	}
	if fk.OnDelete != NoAction {
		b.WriteString(" ON DELETE ")
		b.WriteString(fk.OnDelete.String())
	}
	if fk.Enforcement == EnforcementDeferred {
		b.WriteString(" DEFERRABLE INITIALLY DEFERRED")
	}
	return nil
}

// TablePrimaryKey is a composite primary key of a Table.
type TablePrimaryKey struct {
	Columns []string
}

// TableUnique is a composite UNIQUE constraint of a Table.
type TableUnique struct {
	Columns []string
}

func (pk TablePrimaryKey) tableConstraintSQL(b *strings.Builder) {
	b.WriteString("PRIMARY KEY(")
	b.WriteString(strings.Join(pk.Columns, ", "))
	b.WriteByte(')')
}

func (u TableUnique) tableConstraintSQL(b *strings.Builder) {
	b.WriteString("UNIQUE(")
	b.WriteString(strings.Join(u.Columns, ", "))
	b.WriteByte(')')
}

// literal renders |v| as an SQL literal.
func literal(v Value) string {
	switch v.Type() {
	case IntegerType:
		return strconv.FormatInt(v.ToInteger(), 10)
	case FloatType:
		// Infinities are spelled as overflowing literals. NaN has no literal.
		var f = v.ToFloat()
		if math.IsInf(f, 1) {
			return "9e999"
		} else if math.IsInf(f, -1) {
			return "-9e999"
		} else if math.IsNaN(f) {
			return "NULL"
		}
		var s = strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case StringType:
		return "'" + strings.ReplaceAll(v.ToString(), "'", "''") + "'"
	case BlobType:
		return "x'" + hex.EncodeToString(v.ToBlob()) + "'"
	}
	return "NULL"
}
