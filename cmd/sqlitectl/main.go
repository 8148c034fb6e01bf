package main

import "go.gazette.dev/sqlite/cmd/sqlitectl/sqlitectlcmd"

func main() {
	sqlitectlcmd.Execute()
}
