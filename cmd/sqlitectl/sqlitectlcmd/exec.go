package sqlitectlcmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.gazette.dev/sqlite/sqlite"
	"golang.org/x/sync/errgroup"
)

type cmdExec struct {
	Mode    string `long:"mode" default:"immediate" choice:"deferred" choice:"immediate" choice:"exclusive" description:"Mode of the transaction within which scripts run"`
	Session bool   `long:"session" description:"Record changes into a ChangeSet of the sessions table. Implies --mode=immediate"`
	Args    struct {
		Files []string `positional-arg-name:"FILE" required:"1" description:"SQL script files to execute. Use '-' for stdin"`
	} `positional-args:"yes"`
}

func init() {
	CommandRegistry.AddCommand("", "exec", "Execute SQL scripts", `
Execute one or more files of semicolon-separated SQL statements.

All scripts are executed in order within a single transaction: either every
statement of every script is applied, or none are. Execution stops at the
first failed statement, which is reported.

Record the changes as a ChangeSet of the sessions table (which must be
configured with --db.sessions-table):
>    sqlitectl exec --db.path my.db --db.sessions-table sessions --session migrate.sql
`, &cmdExec{})
}

func (cmd *cmdExec) Execute([]string) error {
	var scripts, err = readScripts(cmd.Args.Files)
	if err != nil {
		return err
	}
	var db, sessions = startup()
	defer db.Close()

	if cmd.Session && sessions == nil {
		return errors.New("--session requires a configured --db.sessions-table")
	}
	return cmd.run(db, scripts)
}

func (cmd *cmdExec) run(db *sqlite.Database, scripts []string) error {
	var fn = func() error {
		for i, script := range scripts {
			if err := db.ExecuteScript(script); err != nil {
				return errors.WithMessagef(err, "executing %s", cmd.Args.Files[i])
			}
		}
		return nil
	}

	var err error
	if cmd.Session {
		err = sqlite.WithImmediateSessionTransaction(db, fn)
	} else {
		switch cmd.Mode {
		case "deferred":
			err = sqlite.WithDeferredTransaction(db, fn)
		case "exclusive":
			err = sqlite.WithExclusiveTransaction(db, fn)
		default:
			err = sqlite.WithImmediateTransaction(db, fn)
		}
	}
	if err != nil {
		return err
	}

	changes, err := db.TotalChangesCount()
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"scripts": len(scripts),
		"changes": changes,
		"session": cmd.Session,
	}).Info("executed scripts")

	_, err = fmt.Fprintf(stdout, "Executed %d script(s), changing %d row(s).\n", len(scripts), changes)
	return err
}

// readScripts concurrently reads the contents of |paths|, in order.
func readScripts(paths []string) ([]string, error) {
	var out = make([]string, len(paths))
	var grp errgroup.Group

	for i, path := range paths {
		grp.Go(func() error {
			var b, err = readInput(path)
			if err != nil {
				return errors.WithMessagef(err, "reading %s", path)
			}
			out[i] = string(b)
			return nil
		})
	}
	return out, grp.Wait()
}

// readInput reads the file at |path|, or stdin if |path| is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return afero.ReadFile(inputFs, path)
}
