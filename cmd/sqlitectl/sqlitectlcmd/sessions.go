package sqlitectlcmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/sqlite/sqlite"
)

type cmdSessionsList struct{}

type cmdSessionsShow struct {
	ID int64 `long:"id" required:"true" description:"ID of the ChangeSet to show"`
}

type cmdSessionsReplay struct {
	revert bool
}

type cmdSessionsSquash struct{}

type cmdSessionsClear struct{}

func init() {
	CommandRegistry.AddCommand("sessions", "list", "List recorded ChangeSets", `
List the ChangeSets of the sessions table, oldest first, with their decoded
and stored sizes, the number of row changes of each, and the tables they change.
`, &cmdSessionsList{})

	CommandRegistry.AddCommand("sessions", "show", "Print the row changes of a ChangeSet", `
Print each row change of the ChangeSet having --id. Values of UPDATE changes
which were not modified (and are not part of the primary key) print as NULL.
`, &cmdSessionsShow{})

	CommandRegistry.AddCommand("sessions", "apply", "Re-apply all recorded ChangeSets", `
Re-apply every recorded ChangeSet to the database, oldest first, within a single
transaction. Conflicting rows are replaced, and changes of rows which are
missing or which violate constraints are skipped.
`, &cmdSessionsReplay{})

	CommandRegistry.AddCommand("sessions", "revert", "Revert all recorded ChangeSets", `
Undo every recorded ChangeSet by applying its inverse, newest first, within a
single transaction. The recorded ChangeSets are not modified.
`, &cmdSessionsReplay{revert: true})

	CommandRegistry.AddCommand("sessions", "squash", "Squash recorded ChangeSets into one", `
Revert every recorded ChangeSet and then re-apply them while recording a new
session, replacing the recorded ChangeSets with a single ChangeSet of their
combined changes.
`, &cmdSessionsSquash{})

	CommandRegistry.AddCommand("sessions", "clear", "Delete all recorded ChangeSets", `
Delete every recorded ChangeSet. The database contents are not modified.
`, &cmdSessionsClear{})
}

func startupSessions() (*sqlite.Database, *sqlite.Sessions, error) {
	var db, sessions = startup()
	if sessions == nil {
		_ = db.Close()
		return nil, nil, errors.New("sessions commands require a configured --db.sessions-table")
	}
	return db, sessions, nil
}

func (cmd *cmdSessionsList) Execute([]string) error {
	var db, sessions, err = startupSessions()
	if err != nil {
		return err
	}
	defer db.Close()

	return listChangeSets(sessions)
}

func listChangeSets(sessions *sqlite.Sessions) error {
	var changeSets, err = sessions.ChangeSets()
	if err != nil {
		return err
	}

	var table = tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"ID", "Size", "Stored", "Changes", "Tables"})

	for _, cs := range changeSets {
		var changes int
		var tables = make(map[string]struct{})

		for tuple, err := range cs.Tuples() {
			if err != nil {
				return errors.WithMessagef(err, "reading changeset %d", cs.ID)
			}
			changes++
			tables[tuple.Table] = struct{}{}
		}
		var names = make([]string, 0, len(tables))
		for n := range tables {
			names = append(names, n)
		}
		sort.Strings(names)

		table.Append([]string{
			fmt.Sprint(cs.ID),
			humanize.IBytes(uint64(cs.Size())),
			humanize.IBytes(uint64(cs.StoredSize)),
			humanize.Comma(int64(changes)),
			strings.Join(names, ", "),
		})
	}
	table.Render()
	return nil
}

func (cmd *cmdSessionsShow) Execute([]string) error {
	var db, sessions, err = startupSessions()
	if err != nil {
		return err
	}
	defer db.Close()

	return showChangeSet(sessions, cmd.ID)
}

func showChangeSet(sessions *sqlite.Sessions, id int64) error {
	var changeSets, err = sessions.ChangeSets()
	if err != nil {
		return err
	}
	var idx = sort.Search(len(changeSets), func(i int) bool { return changeSets[i].ID >= id })
	if idx == len(changeSets) || changeSets[idx].ID != id {
		return errors.Errorf("changeset %d not found", id)
	}

	var table = tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"Operation", "Table", "Indirect", "Old", "New"})

	for tuple, err := range changeSets[idx].Tuples() {
		if err != nil {
			return err
		}
		var before, after = "-", "-"

		if tuple.Operation != sqlite.OperationInsert {
			if before, err = tupleValues(tuple.ColumnCount(), tuple.Old); err != nil {
				return err
			}
		}
		if tuple.Operation != sqlite.OperationDelete {
			if after, err = tupleValues(tuple.ColumnCount(), tuple.New); err != nil {
				return err
			}
		}
		table.Append([]string{tuple.Operation.String(), tuple.Table, fmt.Sprint(tuple.Indirect), before, after})
	}
	table.Render()
	return nil
}

func tupleValues(n int, fn func(int) (sqlite.Value, error)) (string, error) {
	var parts = make([]string, n)
	for i := range parts {
		var v, err = fn(i)
		if err != nil {
			return "", err
		}
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func (cmd *cmdSessionsReplay) Execute([]string) error {
	var db, sessions, err = startupSessions()
	if err != nil {
		return err
	}
	defer db.Close()

	var fn = sessions.Apply
	if cmd.revert {
		fn = sessions.Revert
	}
	if err = sqlite.WithImmediateTransaction(db, fn); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": db.Path(), "revert": cmd.revert}).Info("replayed sessions")
	return nil
}

func (cmd *cmdSessionsSquash) Execute([]string) error {
	var db, sessions, err = startupSessions()
	if err != nil {
		return err
	}
	defer db.Close()

	return squash(db, sessions)
}

func squash(db *sqlite.Database, sessions *sqlite.Sessions) error {
	return sqlite.WithImmediateTransaction(db, func() error {
		if err := sessions.Revert(); err != nil {
			return err
		}
		return sessions.ApplyAndUpdateSessions()
	})
}

func (cmd *cmdSessionsClear) Execute([]string) error {
	var db, sessions, err = startupSessions()
	if err != nil {
		return err
	}
	defer db.Close()

	return sqlite.WithImmediateTransaction(db, sessions.DeleteAll)
}
