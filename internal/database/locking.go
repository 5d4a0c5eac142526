// internal/database/locking.go
package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate applies a FOR UPDATE row lock on Postgres so a second call
// affecting the same entity waits for the first to commit or abort. SQLite
// serializes writers on its own and rejects the clause, so it is skipped
// there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
