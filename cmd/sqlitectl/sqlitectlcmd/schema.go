package sqlitectlcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/sqlite/sqlite"
	"gopkg.in/yaml.v2"
)

// schemaSpec is the YAML form of a collection of tables.
type schemaSpec struct {
	Tables []tableSpec `yaml:"tables"`
}

type tableSpec struct {
	Name         string       `yaml:"name"`
	Temporary    bool         `yaml:"temporary"`
	IfNotExists  bool         `yaml:"ifNotExists"`
	WithoutRowID bool         `yaml:"withoutRowID"`
	Columns      []columnSpec `yaml:"columns"`
	// PrimaryKey is a composite primary key of named columns.
	PrimaryKey []string `yaml:"primaryKey"`
	// Unique is a list of composite unique constraints of named columns.
	Unique  [][]string  `yaml:"unique"`
	Indices []indexSpec `yaml:"indices"`
}

type columnSpec struct {
	Name              string         `yaml:"name"`
	Type              string         `yaml:"type"`
	PrimaryKey        bool           `yaml:"primaryKey"`
	Autoincrement     bool           `yaml:"autoincrement"`
	NotNull           bool           `yaml:"notNull"`
	Unique            bool           `yaml:"unique"`
	Default           interface{}    `yaml:"default"`
	DefaultExpression string         `yaml:"defaultExpression"`
	Check             string         `yaml:"check"`
	Collate           string         `yaml:"collate"`
	Generated         string         `yaml:"generated"`
	Stored            bool           `yaml:"stored"`
	References        *referenceSpec `yaml:"references"`
}

type referenceSpec struct {
	Table string `yaml:"table"`
	// Column of Table, which must be defined earlier in the same schema.
	// If empty, the primary key of Table is referenced.
	Column   string `yaml:"column"`
	OnUpdate string `yaml:"onUpdate"`
	OnDelete string `yaml:"onDelete"`
	Deferred bool   `yaml:"deferred"`
}

type indexSpec struct {
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
	Where   string   `yaml:"where"`
}

var columnTypes = map[string]sqlite.ColumnType{
	"":        sqlite.ColumnNone,
	"numeric": sqlite.ColumnNumeric,
	"integer": sqlite.ColumnInteger,
	"real":    sqlite.ColumnReal,
	"text":    sqlite.ColumnText,
	"blob":    sqlite.ColumnBlob,
}

var foreignKeyActions = map[string]sqlite.ForeignKeyAction{
	"":            sqlite.NoAction,
	"no action":   sqlite.NoAction,
	"restrict":    sqlite.Restrict,
	"set null":    sqlite.SetNull,
	"set default": sqlite.SetDefault,
	"cascade":     sqlite.Cascade,
}

// decodeSchema decodes a strict YAML schemaSpec from |b|.
func decodeSchema(b []byte) (schemaSpec, error) {
	var spec schemaSpec
	if err := yaml.UnmarshalStrict(b, &spec); err != nil {
		// `yaml` produces nicely formatted error messages that are best printed as-is.
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		return spec, errors.New("YAML decode failed")
	}
	return spec, nil
}

// build the Tables of the schemaSpec, in order.
func (spec schemaSpec) build() ([]*sqlite.Table, error) {
	var out []*sqlite.Table
	var columns = make(map[string]*sqlite.Column) // Keyed on "table.column".

	for _, ts := range spec.Tables {
		var table = &sqlite.Table{
			Name:         ts.Name,
			Temporary:    ts.Temporary,
			IfNotExists:  ts.IfNotExists,
			WithoutRowID: ts.WithoutRowID,
		}
		var lookup = func(name string) (*sqlite.Column, error) {
			if c, ok := columns[ts.Name+"."+name]; ok {
				return c, nil
			}
			return nil, errors.Errorf("table %s has no column %s", ts.Name, name)
		}
		var lookupAll = func(names []string) ([]*sqlite.Column, error) {
			var cols []*sqlite.Column
			for _, n := range names {
				if c, err := lookup(n); err != nil {
					return nil, err
				} else {
					cols = append(cols, c)
				}
			}
			return cols, nil
		}

		for _, cs := range ts.Columns {
			var typ, ok = columnTypes[strings.ToLower(cs.Type)]
			if !ok {
				return nil, errors.Errorf("column %s.%s: unknown type %q", ts.Name, cs.Name, cs.Type)
			}
			var constraints, err = cs.constraints(columns)
			if err != nil {
				return nil, errors.WithMessagef(err, "column %s.%s", ts.Name, cs.Name)
			}
			columns[ts.Name+"."+cs.Name] = table.AddColumn(cs.Name, typ, constraints...)
		}

		if len(ts.PrimaryKey) != 0 {
			var pk, err = lookupAll(ts.PrimaryKey)
			if err != nil {
				return nil, err
			}
			table.AddPrimaryKey(pk...)
		}
		for _, names := range ts.Unique {
			var u, err = lookupAll(names)
			if err != nil {
				return nil, err
			}
			table.AddUnique(u...)
		}
		for _, is := range ts.Indices {
			var cols, err = lookupAll(is.Columns)
			if err != nil {
				return nil, err
			}
			var ind = table.AddIndex(cols...)
			ind.Unique = is.Unique
			ind.Condition = is.Where
		}
		out = append(out, table)
	}
	return out, nil
}

func (cs columnSpec) constraints(columns map[string]*sqlite.Column) ([]sqlite.Constraint, error) {
	var out []sqlite.Constraint

	if cs.PrimaryKey {
		out = append(out, sqlite.PrimaryKey{Autoincrement: cs.Autoincrement})
	} else if cs.Autoincrement {
		return nil, errors.New("autoincrement requires primaryKey")
	}
	if cs.NotNull {
		out = append(out, sqlite.NotNull{})
	}
	if cs.Unique {
		out = append(out, sqlite.Unique{})
	}
	if cs.Default != nil && cs.DefaultExpression != "" {
		return nil, errors.New("default and defaultExpression are mutually exclusive")
	} else if cs.Default != nil {
		var v, err = sqlite.ValueFromVariant(cs.Default)
		if err != nil {
			return nil, errors.WithMessage(err, "default")
		}
		out = append(out, sqlite.DefaultValue{Value: v})
	} else if cs.DefaultExpression != "" {
		out = append(out, sqlite.DefaultExpression{Expression: cs.DefaultExpression})
	}
	if cs.Check != "" {
		out = append(out, sqlite.Check{Expression: cs.Check})
	}
	if cs.Collate != "" {
		out = append(out, sqlite.Collate{Name: cs.Collate})
	}
	if cs.Generated != "" {
		var g = sqlite.GeneratedAlways{Expression: cs.Generated}
		if cs.Stored {
			g.Storage = sqlite.GeneratedStored
		}
		out = append(out, g)
	}
	if ref := cs.References; ref != nil {
		var fk = sqlite.ForeignKey{Table: ref.Table}
		var ok bool

		if fk.OnUpdate, ok = foreignKeyActions[strings.ToLower(ref.OnUpdate)]; !ok {
			return nil, errors.Errorf("unknown onUpdate action %q", ref.OnUpdate)
		}
		if fk.OnDelete, ok = foreignKeyActions[strings.ToLower(ref.OnDelete)]; !ok {
			return nil, errors.Errorf("unknown onDelete action %q", ref.OnDelete)
		}
		if ref.Deferred {
			fk.Enforcement = sqlite.EnforcementDeferred
		}
		if ref.Column != "" {
			if fk.Column, ok = columns[ref.Table+"."+ref.Column]; !ok {
				return nil, errors.Errorf("referenced column %s.%s is not defined", ref.Table, ref.Column)
			}
		}
		out = append(out, fk)
	}
	return out, nil
}

type cmdSchemaApply struct {
	SpecsPath string `long:"specs" default:"-" description:"Input schema path to apply. Use '-' for stdin"`
	DryRun    bool   `long:"dry-run" description:"Print the statements of the schema, without applying them"`
}

type cmdSchemaShow struct{}

func init() {
	CommandRegistry.AddCommand("schema", "apply", "Create tables and indices of a YAML schema", `
Apply a YAML schema of tables, creating each table and its indices in order.
Each table is created within its own immediate transaction.

An example schema:

tables:
  - name: users
    ifNotExists: true
    columns:
      - {name: id, type: integer, primaryKey: true}
      - {name: email, type: text, notNull: true, unique: true, collate: NOCASE}
      - {name: karma, type: real, default: 0, check: "karma >= 0"}
    indices:
      - {columns: [karma], where: "karma > 10"}
  - name: posts
    columns:
      - name: author
        type: integer
        references: {table: users, column: id, onDelete: cascade}
      - {name: body, type: text}

Use --dry-run to print the statements which would be run.
`, &cmdSchemaApply{})

	CommandRegistry.AddCommand("schema", "show", "Print the schema of the database", `
Print the CREATE statements of every table and index of the database.
`, &cmdSchemaShow{})
}

func (cmd *cmdSchemaApply) Execute([]string) error {
	var b, err = readInput(cmd.SpecsPath)
	if err != nil {
		return errors.WithMessage(err, "reading schema")
	}
	spec, err := decodeSchema(b)
	if err != nil {
		return err
	}
	tables, err := spec.build()
	if err != nil {
		return err
	}
	if cmd.DryRun {
		return printTables(tables)
	}

	var db, _ = startup()
	defer db.Close()

	return applyTables(db, tables)
}

func applyTables(db *sqlite.Database, tables []*sqlite.Table) error {
	for _, t := range tables {
		if err := t.Initialize(db); err != nil {
			return errors.WithMessagef(err, "creating table %s", t.Name)
		}
		log.WithFields(log.Fields{
			"table":   t.Name,
			"columns": len(t.Columns),
			"indices": len(t.Indices),
		}).Info("applied table")
	}
	return nil
}

func printTables(tables []*sqlite.Table) error {
	for _, t := range tables {
		var sql, err = t.CreateTableSQL()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s;\n", sql)

		for _, ind := range t.Indices {
			if sql, err = ind.SQL(); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s;\n", sql)
		}
	}
	return nil
}

func (cmd *cmdSchemaShow) Execute([]string) error {
	var db, _ = startup()
	defer db.Close()

	return showSchema(db)
}

func showSchema(db *sqlite.Database) error {
	var q, err = sqlite.NewReadStatement(db, `
		SELECT sql FROM sqlite_schema
		WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
		ORDER BY tbl_name, type DESC, name`, 1, 0)
	if err != nil {
		return err
	}
	defer q.Close()

	return sqlite.ReadCallbackWithTransaction(q, func(sql string) sqlite.CallbackControl {
		fmt.Fprintf(stdout, "%s;\n", sql)
		return sqlite.CallbackContinue
	})
}
