// Package export writes CSV artifacts: whole tables on the service side,
// and the IRR cash-flow download assembled on the console side.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"lptrack/internal/schema"
	"lptrack/internal/store"
)

// Exporter writes table snapshots as CSV files into a fixed directory,
// one file per table, named after the backing table.
type Exporter struct {
	store *store.Store
	dir   string
}

func NewExporter(s *store.Store, dir string) *Exporter {
	return &Exporter{store: s, dir: dir}
}

// ExportTable writes all rows of one entity's table to <dir>/<table>.csv.
// The header row follows the schema's declared field order.
func (e *Exporter) ExportTable(ctx context.Context, t schema.EntityType) (string, error) {
	def := schema.Lookup(t)
	rows, err := store.QueryRows(ctx, e.store.DB,
		fmt.Sprintf(`SELECT * FROM %q ORDER BY %q`, t.TableName(), def.Identifier))
	if err != nil {
		return "", fmt.Errorf("export %s: %w", t, err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("export dir: %w", err)
	}
	path := filepath.Join(e.dir, t.TableName()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(def.Fields); err != nil {
		return "", err
	}
	for _, row := range rows {
		line := make([]string, len(def.Fields))
		for i, field := range def.Fields {
			line[i] = cellString(row[field])
		}
		if err := w.Write(line); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ExportAll writes every table.
func (e *Exporter) ExportAll(ctx context.Context) ([]string, error) {
	var paths []string
	for _, t := range schema.All() {
		p, err := e.ExportTable(ctx, t)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		// Trim trailing zeros so whole REAL values don't grow a ".0" tail.
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
