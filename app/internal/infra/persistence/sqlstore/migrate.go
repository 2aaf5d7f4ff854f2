package sqlstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema_postgres.sql
var schemaPostgres string

//go:embed schema_mysql.sql
var schemaMySQL string

// Migrate applies the idempotent schema for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	schema := schemaPostgres
	if s.dialect == DialectMySQL {
		schema = schemaMySQL
	}
	for i, stmt := range statements(schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

func statements(schema string) []string {
	var out []string
	for _, part := range strings.Split(schema, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
