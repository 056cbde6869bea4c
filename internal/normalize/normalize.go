// Package normalize converts raw form-edited records into the canonical
// shape the record service expects: numeric strings become numbers, date
// strings become YYYY-MM-DD, blanks become nil.
//
// Normalization never fails. A field that cannot be converted degrades to a
// per-entity fallback so a single malformed value never blocks the rest of
// the record. The fallbacks are intentionally asymmetric between entity
// types (see rules below); the asymmetries are carried over from the
// production behavior this console replaces and must not be "unified".
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"lptrack/internal/schema"
)

// numericFallback selects what a numeric field becomes when its value does
// not convert to a finite number.
type numericFallback int

const (
	fallbackNull numericFallback = iota
	fallbackZero
)

// rules is the per-entity normalization policy. LPLookup has no rule set:
// its records are submitted exactly as edited.
type ruleSet struct {
	numericFields []string
	onBadNumber   numericFallback

	dateFields []string
	// nullBadDates controls the date parse-failure path: LPFund and
	// LedgerEntry null the field, PCAPEntry leaves the raw string in
	// place. The PCAP behavior looks like a defect but is load-bearing
	// for existing data; do not change it without a product decision.
	nullBadDates bool

	// blankToNull rewrites empty-string values (any field) to nil.
	// Applied to LPFund only; the other types keep empty strings.
	blankToNull bool
}

var rules = map[schema.EntityType]*ruleSet{
	schema.LPFund: {
		numericFields: []string{"term", "current_are", "management_fee", "incentive"},
		onBadNumber:   fallbackNull,
		dateFields: []string{
			"term_end", "are_start", "reinvest_start",
			"harvest_start", "inactive_date",
		},
		nullBadDates: true,
		blankToNull:  true,
	},
	schema.PCAPEntry: {
		numericFields: []string{"field_num", "amount"},
		onBadNumber:   fallbackZero,
		dateFields:    []string{"pcap_date"},
		nullBadDates:  false,
	},
	schema.LedgerEntry: {
		numericFields: []string{"amount"},
		onBadNumber:   fallbackZero,
		dateFields:    []string{"entry_date", "activity_date", "effective_date"},
		nullBadDates:  true,
	},
}

// Record normalizes a record for submission. The input is not mutated.
func Record(t schema.EntityType, rec schema.Record) schema.Record {
	out := rec.Clone()
	rs, ok := rules[t]
	if !ok {
		return out
	}

	for _, f := range rs.numericFields {
		v, present := out[f]
		if !present || v == nil {
			continue
		}
		n, finite := coerceNumber(v)
		if finite {
			out[f] = n
		} else if rs.onBadNumber == fallbackZero {
			out[f] = float64(0)
		} else {
			out[f] = nil
		}
	}

	if rs.blankToNull {
		for k, v := range out {
			if s, isStr := v.(string); isStr && s == "" {
				out[k] = nil
			}
		}
	}

	for _, f := range rs.dateFields {
		v, present := out[f]
		if !present || v == nil {
			continue
		}
		s, isStr := v.(string)
		if !isStr || s == "" {
			continue
		}
		if isCanonicalDate(s) {
			continue
		}
		if formatted, ok := reformatDate(s); ok {
			out[f] = formatted
		} else if rs.nullBadDates {
			out[f] = nil
		}
		// else: leave the unparsed value untouched (PCAP path).
	}

	return out
}

// coerceNumber converts a value to a finite float64. Strings go through
// strconv; an empty or non-numeric string is not finite.
func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

// isCanonicalDate reports whether s already matches YYYY-MM-DD exactly.
// Already-canonical values pass through untouched, which makes date
// normalization idempotent.
func isCanonicalDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// dateLayouts are the accepted loose input formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// reformatDate parses a loosely formatted date string and reformats it to
// the canonical layout.
func reformatDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(schema.DateLayout), true
		}
	}
	return "", false
}
