package sqlitectlcmd

import (
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"go.gazette.dev/sqlite/sqlite"
	"gopkg.in/yaml.v2"
)

type cmdQuery struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" default:"table" description:"Output format"`
	Args   struct {
		SQL    string   `positional-arg-name:"SQL" required:"1" description:"Query to run"`
		Params []string `positional-arg-name:"PARAM" description:"Text values bound to the query's parameters, in order"`
	} `positional-args:"yes"`
}

func init() {
	CommandRegistry.AddCommand("", "query", "Run a query and print its rows", `
Run a single SQL query within a deferred transaction, and print its result rows.

Query parameters are bound from further arguments as text, in order:
>    sqlitectl query --db.path my.db "SELECT * FROM users WHERE name = ?" alice

Results can be output in a variety of --format options:
yaml:  Prints a YAML sequence of rows, each a mapping of column name to value.
table: Prints as a table.
`, &cmdQuery{})
}

func (cmd *cmdQuery) Execute([]string) error {
	var db, _ = startup()
	defer db.Close()

	var columns, rows, err = cmd.query(db)
	if err != nil {
		return err
	}

	switch cmd.Format {
	case "yaml":
		return outputYAML(columns, rows)
	default:
		outputTable(columns, rows)
		return nil
	}
}

func (cmd *cmdQuery) query(db *sqlite.Database) (columns []string, rows [][]sqlite.Value, err error) {
	err = sqlite.WithDeferredTransaction(db, func() error {
		var stmt, err = db.Prepare(cmd.Args.SQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		if stmt.ColumnCount() == 0 {
			return errors.New("statement returns no columns (use `exec` to run it)")
		}
		for i, p := range cmd.Args.Params {
			if err = stmt.BindText(i+1, p); err != nil {
				return err
			}
		}
		columns = stmt.ColumnNames()

		for {
			if ok, err := stmt.Next(); err != nil {
				return err
			} else if !ok {
				return nil
			}
			var row = make([]sqlite.Value, len(columns))
			for i := range row {
				row[i] = stmt.FetchValue(i)
			}
			rows = append(rows, row)
		}
	})
	return
}

func outputTable(columns []string, rows [][]sqlite.Value) {
	var table = tablewriter.NewWriter(stdout)
	table.SetHeader(columns)

	for _, row := range rows {
		var cells = make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		table.Append(cells)
	}
	table.Render()
}

func outputYAML(columns []string, rows [][]sqlite.Value) error {
	var out = make([]yaml.MapSlice, 0, len(rows))

	for _, row := range rows {
		var m = make(yaml.MapSlice, len(row))
		for i, v := range row {
			m[i] = yaml.MapItem{Key: columns[i], Value: yamlValue(v)}
		}
		out = append(out, m)
	}

	var b, err = yaml.Marshal(out)
	if err != nil {
		return err
	}
	_, err = stdout.Write(b)
	return err
}

// yamlValue maps a Value to its natural YAML representation. Blobs are
// rendered as SQL hex literals.
func yamlValue(v sqlite.Value) interface{} {
	switch v.Type() {
	case sqlite.IntegerType:
		return v.ToInteger()
	case sqlite.FloatType:
		return v.ToFloat()
	case sqlite.StringType:
		return v.ToString()
	case sqlite.BlobType:
		return v.String()
	}
	return nil
}
