//go:build cgo_sqlite

package main

import (
	_ "github.com/mattn/go-sqlite3"
)

const sqliteDriver = "sqlite3"

func dataSourceName(path string) string {
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000"
}
