package sqlite

import (
	"strings"
	"sync"
)

var library struct {
	once    sync.Once
	version string
	options map[string]struct{}
	err     error
}

// CompileOptions returns the set of compile-time options that the linked
// SQLite library was built with. See https://www.sqlite.org/compile.html
// for a full listing. Note the "SQLITE_" prefix is dropped in the returned set:
//
//	map[string]struct{}{
//	    "ENABLE_SESSION": {},
//	    "ENABLE_PREUPDATE_HOOK": {},
//	    "THREADSAFE=1": {},
//	    ... etc ...
//	}
//
// Options are read once per process, and cached.
func CompileOptions() (map[string]struct{}, error) {
	loadLibraryInfo()
	return library.options, library.err
}

// LibraryVersion returns the version of the linked SQLite library, eg "3.49.1".
func LibraryVersion() (string, error) {
	loadLibraryInfo()
	return library.version, library.err
}

// HasCompileOption is true if the linked SQLite library was built with |opt|,
// which is matched against the option name without any "=value" suffix.
func HasCompileOption(opt string) bool {
	var opts, err = CompileOptions()
	if err != nil {
		return false
	}
	for o := range opts {
		if name, _, _ := strings.Cut(o, "="); name == opt || o == opt {
			return true
		}
	}
	return false
}

func loadLibraryInfo() {
	library.once.Do(func() {
		var db, err = Open(":memory:", Config{})
		if err != nil {
			library.err = err
			return
		}
		defer db.Close()

		if library.version, err = db.queryText("SELECT sqlite_version()", callerLocation(1), true); err != nil {
			library.err = err
			return
		}
		library.options, library.err = queryOptions(db)
	})
}

func queryOptions(db *Database) (map[string]struct{}, error) {
	var s, err = db.prepare("PRAGMA compile_options", callerLocation(1), true)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var m = make(map[string]struct{})
	for {
		if row, err := s.Next(); err != nil {
			return nil, err
		} else if !row {
			return m, nil
		}
		m[s.FetchText(0)] = struct{}{}
	}
}
