package utils

import (
	"strings"

	"gorm.io/gorm"
)

// DBOption adjusts the handle a repository method runs its query on.
type DBOption func(*gorm.DB) *gorm.DB

func ApplyOptions(db *gorm.DB, opts ...DBOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// WithTx runs the query inside tx, keeping the context of the handle it replaces.
func WithTx(tx *gorm.DB) DBOption {
	return func(db *gorm.DB) *gorm.DB {
		if db != nil && db.Statement != nil && db.Statement.Context != nil {
			return tx.WithContext(db.Statement.Context)
		}
		return tx
	}
}

func WithPreload(column string) DBOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(column)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching s literally anywhere in the value.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
