package store

import (
	"context"
	"fmt"
	"strings"
)

// Bootstrap creates the four record tables when they do not exist yet.
// Statements are split on blank-line boundaries because the sqlite driver
// executes one statement per call.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range splitStatements(s.Dialect.TablesSQL()) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap tables: %w", err)
		}
	}
	return nil
}

// CountRows returns the number of rows in a table. Used to decide whether
// CSV seeding should run.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	row, err := QueryRow(ctx, s.DB, fmt.Sprintf(`SELECT COUNT(*) AS n FROM %q`, table))
	if err != nil {
		return 0, err
	}
	switch n := row["n"].(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", row["n"])
	}
}

func splitStatements(ddl string) []string {
	var stmts []string
	for _, chunk := range strings.Split(ddl, ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			stmts = append(stmts, chunk+";")
		}
	}
	return stmts
}
