//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers the sqlite-vec extension as auto-loadable for every
	// connection mattn/go-sqlite3 opens, so chunk_vec0 (see vector.go)
	// becomes a real vec0 table instead of failing to create.
	vec.Auto()
}
