package store

import (
	"fmt"
	"strings"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) TablesSQL() string {
	return postgresTablesSQL
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	// With pgx/stdlib, the underlying error message includes the PG code
	errStr := err.Error()
	if strings.Contains(errStr, "23505") || strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	if strings.Contains(errStr, "23503") || strings.Contains(errStr, "foreign key constraint") {
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}
	return err
}

const postgresTablesSQL = `
CREATE TABLE IF NOT EXISTS "tbLPLookup" (
    short_name              TEXT PRIMARY KEY,
    active                  TEXT,
    source                  TEXT,
    effective_date          DATE,
    inactive_date           DATE,
    fund_list               TEXT,
    beneficial_owner_change TEXT,
    new_lp_short_name       TEXT,
    sei_id_abf              TEXT,
    sei_id_sf2              TEXT
);

CREATE TABLE IF NOT EXISTS "tbLPFund" (
    id             INTEGER PRIMARY KEY GENERATED ALWAYS AS IDENTITY,
    lp_short_name  TEXT REFERENCES "tbLPLookup"(short_name),
    fund_group     TEXT,
    fund_name      TEXT,
    blocker        TEXT,
    term           INTEGER,
    current_are    INTEGER,
    term_end       DATE,
    are_start      DATE,
    reinvest_start DATE,
    harvest_start  DATE,
    inactive_date  DATE,
    management_fee DOUBLE PRECISION,
    incentive      DOUBLE PRECISION,
    status         TEXT
);

CREATE TABLE IF NOT EXISTS "tbPCAP" (
    id            INTEGER PRIMARY KEY GENERATED ALWAYS AS IDENTITY,
    lp_short_name TEXT REFERENCES "tbLPLookup"(short_name),
    pcap_date     DATE,
    field_num     INTEGER,
    field         TEXT,
    amount        DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS "tbLedger" (
    id             INTEGER PRIMARY KEY GENERATED ALWAYS AS IDENTITY,
    entry_date     DATE,
    activity_date  DATE,
    effective_date DATE,
    activity       TEXT,
    sub_activity   TEXT,
    amount         DOUBLE PRECISION,
    entity_from    TEXT,
    entity_to      TEXT,
    related_entity TEXT,
    related_fund   TEXT
);
`
