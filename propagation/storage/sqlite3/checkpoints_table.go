// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package sqlite3

import (
	"context"
	"database/sql"
	"time"

	"github.com/wardenhq/warden/internal/sqlutil"
	"github.com/wardenhq/warden/propagation/storage/tables"
)

const checkpointsSchema = `
CREATE TABLE IF NOT EXISTS propagation_checkpoints (
    target_key TEXT NOT NULL,
    group_id TEXT NOT NULL,
    processed_ts BIGINT NOT NULL,
    PRIMARY KEY (target_key, group_id)
);
CREATE INDEX IF NOT EXISTS propagation_checkpoints_target_idx ON propagation_checkpoints(target_key);
`

const insertCheckpointSQL = "INSERT OR IGNORE INTO propagation_checkpoints (target_key, group_id, processed_ts) VALUES (?, ?, ?)"
const selectCheckpointsSQL = "SELECT group_id FROM propagation_checkpoints WHERE target_key = ? ORDER BY processed_ts, group_id"
const selectCheckpointSummarySQL = "SELECT COUNT(*), COALESCE(MAX(processed_ts), 0) FROM propagation_checkpoints WHERE target_key = ?"
const deleteCheckpointsSQL = "DELETE FROM propagation_checkpoints WHERE target_key = ?"

type sqliteCheckpointsTable struct {
	insertStmt        *sql.Stmt
	selectStmt        *sql.Stmt
	selectSummaryStmt *sql.Stmt
	deleteStmt        *sql.Stmt
}

func NewSQLiteCheckpointsTable(db *sql.DB) (tables.CheckpointsTable, error) {
	if _, err := db.Exec(checkpointsSchema); err != nil {
		return nil, err
	}
	s := &sqliteCheckpointsTable{}
	return s, sqlutil.StatementList{
		{&s.insertStmt, insertCheckpointSQL},
		{&s.selectStmt, selectCheckpointsSQL},
		{&s.selectSummaryStmt, selectCheckpointSummarySQL},
		{&s.deleteStmt, deleteCheckpointsSQL},
	}.Prepare(db)
}

func (s *sqliteCheckpointsTable) InsertProcessedGroups(ctx context.Context, txn *sql.Tx, targetKey string, groupIDs []string, updated time.Time) error {
	stmt := sqlutil.TxStmt(txn, s.insertStmt)
	ts := updated.UTC().UnixMilli()
	for _, groupID := range groupIDs {
		if _, err := stmt.ExecContext(ctx, targetKey, groupID, ts); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteCheckpointsTable) SelectProcessedGroups(ctx context.Context, txn *sql.Tx, targetKey string) ([]string, error) {
	stmt := sqlutil.TxStmt(txn, s.selectStmt)
	rows, err := stmt.QueryContext(ctx, targetKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groupIDs []string
	for rows.Next() {
		var groupID string
		if err := rows.Scan(&groupID); err != nil {
			return nil, err
		}
		groupIDs = append(groupIDs, groupID)
	}
	return groupIDs, rows.Err()
}

func (s *sqliteCheckpointsTable) SelectCheckpointSummary(ctx context.Context, txn *sql.Tx, targetKey string) (tables.CheckpointSummary, bool, error) {
	stmt := sqlutil.TxStmt(txn, s.selectSummaryStmt)
	var (
		summary tables.CheckpointSummary
		ts      int64
	)
	if err := stmt.QueryRowContext(ctx, targetKey).Scan(&summary.TotalProcessed, &ts); err != nil {
		return summary, false, err
	}
	if summary.TotalProcessed == 0 {
		return summary, false, nil
	}
	summary.TargetKey = targetKey
	summary.LastUpdated = time.UnixMilli(ts).UTC()
	return summary, true, nil
}

func (s *sqliteCheckpointsTable) DeleteCheckpoints(ctx context.Context, txn *sql.Tx, targetKey string) (int64, error) {
	stmt := sqlutil.TxStmt(txn, s.deleteStmt)
	res, err := stmt.ExecContext(ctx, targetKey)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
