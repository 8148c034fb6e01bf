package sqlitectlcmd

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/sqlite/sqlite"
)

type cmdInfo struct {
	Options bool `long:"compile-options" description:"Also print compile-time options of the SQLite library"`
}

type cmdCheckpoint struct{}

func init() {
	CommandRegistry.AddCommand("", "info", "Print information about the database", `
Print the SQLite library version, the database's file size, journal and locking
modes and user_version, and the row count of each of its tables.
`, &cmdInfo{})

	CommandRegistry.AddCommand("", "checkpoint", "Checkpoint a WAL-mode database", `
Run a full checkpoint of the write-ahead log of the database, copying its
committed content into the database file.
`, &cmdCheckpoint{})
}

func (cmd *cmdInfo) Execute([]string) error {
	var db, _ = startup()
	defer db.Close()

	return cmd.output(db)
}

func (cmd *cmdInfo) output(db *sqlite.Database) error {
	var version, err = sqlite.LibraryVersion()
	if err != nil {
		return err
	}
	journal, err := db.JournalMode()
	if err != nil {
		return err
	}
	locking, err := db.LockingMode()
	if err != nil {
		return err
	}
	userVersion, err := db.PragmaValue("user_version")
	if err != nil {
		return err
	}
	var size = "-"
	if fi, err := inputFs.Stat(db.Path()); err == nil {
		size = humanize.IBytes(uint64(fi.Size()))
	}

	fmt.Fprintf(stdout, "Library:      SQLite %s\n", version)
	fmt.Fprintf(stdout, "Path:         %s (%s)\n", db.Path(), size)
	fmt.Fprintf(stdout, "Journal mode: %s\n", journal)
	fmt.Fprintf(stdout, "Locking mode: %s\n", locking)
	fmt.Fprintf(stdout, "User version: %s\n", userVersion)

	tables, err := db.TableNames()
	if err != nil {
		return err
	}
	var table = tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"Table", "Rows"})

	for _, name := range tables {
		var q, err = sqlite.NewReadStatement(db, "SELECT count(*) FROM "+name, 1, 0)
		if err != nil {
			return err
		}
		count, err := sqlite.QueryValueWithTransaction[int64](q)
		_ = q.Close()

		if err != nil {
			return err
		}
		table.Append([]string{name, humanize.Comma(count)})
	}
	table.Render()

	if !cmd.Options {
		return nil
	}
	opts, err := sqlite.CompileOptions()
	if err != nil {
		return err
	}
	var names = make([]string, 0, len(opts))
	for opt := range opts {
		names = append(names, opt)
	}
	sort.Strings(names)

	fmt.Fprintln(stdout, "Compile options:")
	for _, n := range names {
		fmt.Fprintf(stdout, "  %s\n", n)
	}
	return nil
}

func (cmd *cmdCheckpoint) Execute([]string) error {
	var db, _ = startup()
	defer db.Close()

	if err := db.WalCheckpointFull(); err != nil {
		return err
	}
	log.WithField("path", db.Path()).Info("checkpointed database")
	return nil
}
