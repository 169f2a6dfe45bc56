package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

// EnsurePostgresSchema creates the catalog and request tables when they do not exist.
func EnsurePostgresSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range splitStatements(postgresSchema) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// splitStatements drops comment lines and splits a DDL script on semicolons.
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	var statements []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		statements = append(statements, strings.TrimSpace(stmt))
	}
	return statements
}
