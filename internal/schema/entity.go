package schema

import "fmt"

// EntityType identifies one of the four record tables managed by the console.
// The set is closed: all per-type behavior lives in the definition table in
// registry.go rather than in branches spread across callers.
type EntityType int

const (
	LPLookup EntityType = iota
	LPFund
	PCAPEntry
	LedgerEntry
)

var entityTypes = []EntityType{LPLookup, LPFund, PCAPEntry, LedgerEntry}

// All returns the four entity types in display order.
func All() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

func (t EntityType) String() string {
	switch t {
	case LPLookup:
		return "lplookup"
	case LPFund:
		return "lpfund"
	case PCAPEntry:
		return "pcap"
	case LedgerEntry:
		return "ledger"
	}
	return fmt.Sprintf("EntityType(%d)", int(t))
}

// PathSegment is the entity's segment in /api/data/{segment} URLs.
func (t EntityType) PathSegment() string { return t.String() }

// TableName returns the backing database table.
func (t EntityType) TableName() string {
	switch t {
	case LPLookup:
		return "tbLPLookup"
	case LPFund:
		return "tbLPFund"
	case PCAPEntry:
		return "tbPCAP"
	case LedgerEntry:
		return "tbLedger"
	}
	return ""
}

// Parse resolves a path segment ("lplookup", "lpfund", "pcap", "ledger")
// back to its entity type.
func Parse(segment string) (EntityType, error) {
	for _, t := range entityTypes {
		if t.String() == segment {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown entity type %q", segment)
}
