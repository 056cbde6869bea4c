// Package importer seeds empty record tables from CSV drops. The files
// use the upstream reporting system's display headers and formats (M/D/YYYY
// dates, thousands separators, percent strings), so each table carries a
// mapping and cleaning spec to get rows into canonical column form.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lptrack/internal/schema"
	"lptrack/internal/store"
)

const csvDateLayout = "1/2/2006"

// tableSpec describes how one table's CSV is cleaned into column values.
type tableSpec struct {
	headers  map[string]string // display header -> column name
	dates    []string          // M/D/YYYY -> YYYY-MM-DD, unparseable -> null
	percents []string          // "2.00%" -> 0.02, unparseable -> null
	numerics []string          // strip thousands separators, parse float
	dropOn   string            // skip the row when this column won't parse
}

var specs = map[schema.EntityType]tableSpec{
	schema.LPLookup: {
		headers: map[string]string{
			"LP Short Name":           "short_name",
			"Active":                  "active",
			"Source":                  "source",
			"Effective Date":          "effective_date",
			"Inactive Date":           "inactive_date",
			"Fund List":               "fund_list",
			"Beneficial Owner Change": "beneficial_owner_change",
			"New LP Short Name":       "new_lp_short_name",
			"SEI_ID_ABF":              "sei_id_abf",
			"SEI_ID_SF2":              "sei_id_sf2",
		},
		dates: []string{"inactive_date"},
	},
	schema.LPFund: {
		headers: map[string]string{
			"LP Short Name":  "lp_short_name",
			"Fund Group":     "fund_group",
			"Fund":           "fund_name",
			"Blocker":        "blocker",
			"Term":           "term",
			"Current ARE":    "current_are",
			"Term End":       "term_end",
			"ARE Start":      "are_start",
			"Reinvest Start": "reinvest_start",
			"Harvest Start":  "harvest_start",
			"Inactive Date":  "inactive_date",
			"Management Fee": "management_fee",
			"Incentive":      "incentive",
			"Status":         "status",
		},
		dates:    []string{"term_end", "are_start", "reinvest_start", "harvest_start", "inactive_date"},
		percents: []string{"management_fee", "incentive"},
		numerics: []string{"term", "current_are"},
	},
	schema.PCAPEntry: {
		headers: map[string]string{
			"LP Short Name": "lp_short_name",
			"PCAP Date":     "pcap_date",
			"Field Num":     "field_num",
			"Field":         "field",
			"Amount":        "amount",
		},
		dates:    []string{"pcap_date"},
		numerics: []string{"field_num", "amount"},
		dropOn:   "amount",
	},
	schema.LedgerEntry: {
		headers: map[string]string{
			"Entry Date":     "entry_date",
			"Activity Date":  "activity_date",
			"Effective Date": "effective_date",
			"Activity":       "activity",
			"Sub Activity":   "sub_activity",
			"Amount":         "amount",
			"Entity From":    "entity_from",
			"Entity To":      "entity_to",
			"Related Entity": "related_entity",
			"Related Fund":   "related_fund",
		},
		dates:    []string{"entry_date", "activity_date", "effective_date"},
		numerics: []string{"amount"},
	},
}

type Importer struct {
	store *store.Store
	log   zerolog.Logger
}

func New(s *store.Store, log zerolog.Logger) *Importer {
	return &Importer{store: s, log: log}
}

// SeedFromDir loads <dir>/<table>.csv into each table that is still empty.
// Tables load in dependency order so LP references resolve. Missing files
// are skipped silently; a present file that fails to parse is an error.
func (im *Importer) SeedFromDir(ctx context.Context, dir string) error {
	for _, t := range schema.All() {
		count, err := im.store.CountRows(ctx, t.TableName())
		if err != nil {
			return fmt.Errorf("count %s: %w", t.TableName(), err)
		}
		if count > 0 {
			continue
		}

		path := filepath.Join(dir, t.TableName()+".csv")
		rows, err := im.readCSV(path, t)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		n, err := im.insert(ctx, t, rows)
		if err != nil {
			return fmt.Errorf("seed %s: %w", t.TableName(), err)
		}
		im.log.Info().Str("table", t.TableName()).Int("rows", n).Msg("seeded from csv")
	}
	return nil
}

func (im *Importer) readCSV(path string, t schema.EntityType) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, nil
	}

	spec := specs[t]
	columns := make([]string, len(raw[0]))
	for i, header := range raw[0] {
		columns[i] = spec.headers[strings.TrimSpace(header)]
	}

	var out []map[string]any
	for _, line := range raw[1:] {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if col == "" || i >= len(line) {
				continue
			}
			row[col] = cleanCell(line[i])
		}
		if keep := cleanRow(row, spec); keep {
			out = append(out, row)
		}
	}
	return out, nil
}

// cleanCell trims and nulls empty cells.
func cleanCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// cleanRow applies the spec's date, percent and numeric conversions in
// place. It reports false when the row must be dropped.
func cleanRow(row map[string]any, spec tableSpec) bool {
	for _, col := range spec.dates {
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		d, err := time.Parse(csvDateLayout, s)
		if err != nil {
			row[col] = nil
			continue
		}
		row[col] = d.Format(schema.DateLayout)
	}
	for _, col := range spec.percents {
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			row[col] = nil
			continue
		}
		row[col] = f / 100
	}
	for _, col := range spec.numerics {
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			if col == spec.dropOn {
				return false
			}
			row[col] = nil
			continue
		}
		row[col] = f
	}
	return true
}

func (im *Importer) insert(ctx context.Context, t schema.EntityType, rows []map[string]any) (int, error) {
	def := schema.Lookup(t)
	cols := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		if f == "id" {
			continue
		}
		cols = append(cols, f)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}

	inserted := 0
	for _, row := range rows {
		pb := im.store.Dialect.NewParamBuilder()
		placeholders := make([]string, len(cols))
		for i, col := range cols {
			placeholders[i] = pb.Add(row[col])
		}
		sqlStr := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
			t.TableName(), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		if _, err := store.Exec(ctx, im.store.DB, sqlStr, pb.Params()...); err != nil {
			return inserted, im.store.Dialect.MapError(err)
		}
		inserted++
	}
	return inserted, nil
}
