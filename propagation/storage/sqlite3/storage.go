// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wardenhq/warden/propagation/storage/shared"
)

// Open opens (creating if necessary) the sqlite checkpoint database at the
// given path. ":memory:" is accepted for tests.
func Open(path string) (*shared.Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite only supports one writer; a larger pool just produces
	// SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)
	checkpoints, err := NewSQLiteCheckpointsTable(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &shared.Database{
		DB:          db,
		Checkpoints: checkpoints,
	}, nil
}
