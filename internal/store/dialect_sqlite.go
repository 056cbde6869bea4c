package store

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) TablesSQL() string {
	return sqliteTablesSQL
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "constraint failed: UNIQUE") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") {
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}
	return err
}

// Dates are stored as TEXT in the canonical YYYY-MM-DD form; SQLite has no
// native DATE type.
const sqliteTablesSQL = `
CREATE TABLE IF NOT EXISTS "tbLPLookup" (
    short_name              TEXT PRIMARY KEY,
    active                  TEXT,
    source                  TEXT,
    effective_date          TEXT,
    inactive_date           TEXT,
    fund_list               TEXT,
    beneficial_owner_change TEXT,
    new_lp_short_name       TEXT,
    sei_id_abf              TEXT,
    sei_id_sf2              TEXT
);

CREATE TABLE IF NOT EXISTS "tbLPFund" (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    lp_short_name  TEXT REFERENCES "tbLPLookup"(short_name),
    fund_group     TEXT,
    fund_name      TEXT,
    blocker        TEXT,
    term           INTEGER,
    current_are    INTEGER,
    term_end       TEXT,
    are_start      TEXT,
    reinvest_start TEXT,
    harvest_start  TEXT,
    inactive_date  TEXT,
    management_fee REAL,
    incentive      REAL,
    status         TEXT
);

CREATE TABLE IF NOT EXISTS "tbPCAP" (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    lp_short_name TEXT REFERENCES "tbLPLookup"(short_name),
    pcap_date     TEXT,
    field_num     INTEGER,
    field         TEXT,
    amount        REAL
);

CREATE TABLE IF NOT EXISTS "tbLedger" (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_date     TEXT,
    activity_date  TEXT,
    effective_date TEXT,
    activity       TEXT,
    sub_activity   TEXT,
    amount         REAL,
    entity_from    TEXT,
    entity_to      TEXT,
    related_entity TEXT,
    related_fund   TEXT
);
`
