package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate applies the embedded schema in a single transaction.
// Every statement is idempotent so it runs on each start.
func Migrate(ctx context.Context, pool Beginner) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	if _, err := tx.Exec(ctx, schema); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("apply schema: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
