//go:build !cgo_sqlite

package main

import (
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

func dataSourceName(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
