package sqlitectlcmd

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"
	mbp "go.gazette.dev/sqlite/mainboilerplate"
	"go.gazette.dev/sqlite/sqlite"
)

const iniFilename = "sqlitectl.ini"

var (
	baseCfg = new(struct {
		Database    mbp.DatabaseConfig    `group:"Database" namespace:"db" env-namespace:"DB"`
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
	})

	// CommandRegistry of sqlitectl sub-commands, keyed on parent command.
	CommandRegistry = mbp.NewCommandRegistry()

	// Filesystem and streams used by commands. Tests swap these out.
	inputFs           = afero.NewOsFs()
	stdin   io.Reader = os.Stdin
	stdout  io.Writer = os.Stdout
)

func init() {
	// Commands which solely contain further nested sub-commands.
	CommandRegistry.AddCommand("", "schema", "Inspect and apply table schemas", "", &struct{}{})
	CommandRegistry.AddCommand("", "sessions", "Inspect and replay recorded ChangeSets", `
Sessions record the row changes of transactions run with --session into
ChangeSets, which are stored in the configured --db.sessions-table.
`, &struct{}{})
}

// startup opens the configured Database.
func startup() (*sqlite.Database, *sqlite.Sessions) {
	return baseCfg.Database.MustOpen()
}

// Execute parses arguments and runs the selected sqlitectl command.
func Execute() {
	var parser = flags.NewParser(baseCfg, flags.Default)

	mbp.AddPrintConfigCmd(parser, iniFilename)
	parser.LongDescription = `sqlitectl is a tool for inspecting and modifying SQLite databases.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure sqlitectl with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/sqlite/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		defer mbp.InitDiagnosticsAndRecover(baseCfg.Diagnostics)()
		mbp.InitLog(baseCfg.Log)

		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	mbp.Must(CommandRegistry.AddCommands("", parser.Command, true), "could not add subcommand")
	mbp.MustParseConfig(parser, iniFilename)
}
