package database

import (
	"context"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"
)

// schema holds the statements applied at startup. Every statement is
// idempotent so the schema can be applied on each boot.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS user SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS user_handle ON TABLE user FIELDS handle UNIQUE",
	"DEFINE INDEX IF NOT EXISTS user_points ON TABLE user FIELDS role, points_earned",
	"DEFINE TABLE IF NOT EXISTS product SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS product_name ON TABLE product FIELDS name UNIQUE",
	"DEFINE TABLE IF NOT EXISTS transaction SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS price_history SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS price_history_product ON TABLE price_history FIELDS product_id, ts",
	"DEFINE TABLE IF NOT EXISTS counter SCHEMALESS",
}

// ApplySchema defines the tables and indexes the store relies on.
func ApplySchema(ctx context.Context, db *surrealdb.DB) error {
	for _, stmt := range schema {
		if err := Execute(ctx, db, stmt, nil); err != nil {
			return NewDBError(err, "failed to apply schema").WithQuery(stmt)
		}
	}
	slog.DebugContext(ctx, "Database schema applied", "event", "db_schema_applied", "statements", len(schema))
	return nil
}
