// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package sqlutil

import (
	"database/sql"
	"fmt"
)

// TxStmt wraps an SQL stmt inside an optional transaction.
func TxStmt(transaction *sql.Tx, statement *sql.Stmt) *sql.Stmt {
	if transaction != nil {
		statement = transaction.Stmt(statement)
	}
	return statement
}

// EndTransaction ends a transaction. If the transaction succeeded then it is
// committed, otherwise it is rolled back.
func EndTransaction(txn *sql.Tx, succeeded *bool) error {
	if *succeeded {
		return txn.Commit()
	}
	return txn.Rollback()
}

// WithTransaction runs a block of code passing in an SQL transaction. If the
// code returns an error or panics then the transaction is rolled back,
// otherwise it is committed.
func WithTransaction(db *sql.DB, fn func(txn *sql.Tx) error) (err error) {
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlutil.WithTransaction.Begin: %w", err)
	}
	succeeded := false
	defer func() {
		if endErr := EndTransaction(txn, &succeeded); err == nil && endErr != nil {
			err = fmt.Errorf("sqlutil.WithTransaction.EndTransaction: %w", endErr)
		}
	}()

	if err = fn(txn); err != nil {
		return
	}
	succeeded = true
	return
}

// StatementList is a list of SQL statements to prepare and a pointer to
// where to store the resulting prepared statement.
type StatementList []struct {
	Statement **sql.Stmt
	SQL       string
}

// Prepare the SQL for each statement in the list and assign the result to
// the prepared statement.
func (s StatementList) Prepare(db *sql.DB) (err error) {
	for _, statement := range s {
		if *statement.Statement, err = db.Prepare(statement.SQL); err != nil {
			return fmt.Errorf("error %q preparing statement: %s", err, statement.SQL)
		}
	}
	return
}
