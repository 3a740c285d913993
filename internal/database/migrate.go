package database

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate creates any missing tables and indexes. It is safe to run on every start.
func Migrate(ctx context.Context, db DB) error {
	raw, err := schemaFS.ReadFile("schema/" + string(db.Dialect()) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SyncSequence advances a postgres serial sequence past ids inserted explicitly.
func SyncSequence(ctx context.Context, q Querier, dialect Dialect, table string) error {
	if dialect != DialectPostgres {
		return nil
	}
	query := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
		table,
	)
	if _, err := q.Exec(ctx, query); err != nil {
		return fmt.Errorf("sync %s sequence: %w", table, err)
	}
	return nil
}
