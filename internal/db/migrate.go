package db

import (
	"context"

	_ "embed"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the database schema. It executes the statements in
// schema.sql which create tables and indexes if they do not already exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
