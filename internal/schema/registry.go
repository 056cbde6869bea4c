package schema

import (
	"strings"
	"time"
)

// Kind is the semantic kind of a field, driving form controls, listing
// display, and normalization.
type Kind int

const (
	Text Kind = iota
	Date
	Integer
	Decimal
)

func (k Kind) String() string {
	switch k {
	case Date:
		return "date"
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	}
	return "text"
}

// kindOverrides lists the fields whose kind cannot be inferred from the
// name. Checked before the "date" substring rule.
var kindOverrides = map[string]Kind{
	"term":           Integer,
	"current_are":    Integer,
	"field_num":      Integer,
	"amount":         Decimal,
	"management_fee": Decimal,
	"incentive":      Decimal,
}

// KindOf infers a field's semantic kind. Rule order is fixed: explicit
// overrides, then any name containing "date", then Text. The substring rule
// intentionally matches every *_date field across all four entities.
func KindOf(field string) Kind {
	if k, ok := kindOverrides[field]; ok {
		return k
	}
	if strings.Contains(field, "date") {
		return Date
	}
	return Text
}

// requiredFields is a fixed per-field-name set, not derived from the
// entity definitions.
var requiredFields = map[string]bool{
	"short_name":     true,
	"lp_short_name":  true,
	"fund_name":      true,
	"field":          true,
	"activity":       true,
	"entity_from":    true,
	"entity_to":      true,
	"related_entity": true,
	"related_fund":   true,
	"field_num":      true,
	"amount":         true,
	"pcap_date":      true,
	"entry_date":     true,
	"activity_date":  true,
	"effective_date": true,
}

// Required reports whether a field must be filled in before submission.
func Required(field string) bool { return requiredFields[field] }

// Definition is the per-entity policy record: field order, identifier,
// and template seeding rules.
type Definition struct {
	Type EntityType

	// Fields in declared (display) order, identifier first where present.
	Fields []string

	// Identifier is the field that addresses an existing record for
	// update/delete: short_name for LPLookup, server-assigned id otherwise.
	Identifier string

	// templateDates are the date fields seeded with the current date on
	// creation (PCAP and Ledger only).
	templateDates []string

	// templateStrings are the fields seeded with "" instead of nil.
	templateStrings []string

	// templateZeros are the numeric fields seeded with 0.
	templateZeros []string
}

var definitions = map[EntityType]*Definition{
	LPLookup: {
		Type: LPLookup,
		Fields: []string{
			"short_name", "active", "source", "effective_date",
			"inactive_date", "fund_list", "beneficial_owner_change",
			"new_lp_short_name", "sei_id_abf", "sei_id_sf2",
		},
		Identifier:      "short_name",
		templateStrings: []string{"short_name"},
	},
	LPFund: {
		Type: LPFund,
		Fields: []string{
			"id", "lp_short_name", "fund_group", "fund_name", "blocker",
			"term", "current_are", "term_end", "are_start",
			"reinvest_start", "harvest_start", "inactive_date",
			"management_fee", "incentive", "status",
		},
		Identifier:      "id",
		templateStrings: []string{"lp_short_name", "fund_name"},
	},
	PCAPEntry: {
		Type: PCAPEntry,
		Fields: []string{
			"id", "lp_short_name", "pcap_date", "field_num", "field", "amount",
		},
		Identifier:      "id",
		templateDates:   []string{"pcap_date"},
		templateStrings: []string{"lp_short_name", "field"},
		templateZeros:   []string{"field_num", "amount"},
	},
	LedgerEntry: {
		Type: LedgerEntry,
		Fields: []string{
			"id", "entry_date", "activity_date", "effective_date",
			"activity", "sub_activity", "amount", "entity_from",
			"entity_to", "related_entity", "related_fund",
		},
		Identifier:    "id",
		templateDates: []string{"entry_date", "activity_date", "effective_date"},
		templateStrings: []string{
			"activity", "entity_from", "entity_to",
			"related_entity", "related_fund",
		},
		templateZeros: []string{"amount"},
	},
}

// Lookup returns the definition for an entity type. The set is closed, so
// a miss is a programming error and panics.
func Lookup(t EntityType) *Definition {
	def, ok := definitions[t]
	if !ok {
		panic("schema: no definition for " + t.String())
	}
	return def
}

// IdentifierField returns the field addressing records of this type.
func IdentifierField(t EntityType) string { return Lookup(t).Identifier }

// Template returns a fresh default record for a creation form. The
// identifier is omitted where server-assigned; date fields of PCAP and
// Ledger entries default to today. Each call returns an independent map.
func Template(t EntityType) Record {
	def := Lookup(t)
	today := time.Now().Format(DateLayout)

	rec := make(Record, len(def.Fields))
	for _, f := range def.Fields {
		if f == "id" {
			continue // server-assigned, absent on creation
		}
		rec[f] = nil
	}
	for _, f := range def.templateStrings {
		rec[f] = ""
	}
	for _, f := range def.templateZeros {
		rec[f] = float64(0)
	}
	for _, f := range def.templateDates {
		rec[f] = today
	}
	return rec
}

// DateLayout is the canonical wire format for date fields.
const DateLayout = "2006-01-02"
