package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_RuleOrder(t *testing.T) {
	// Overrides win before any name-based inference.
	assert.Equal(t, Integer, KindOf("term"))
	assert.Equal(t, Integer, KindOf("current_are"))
	assert.Equal(t, Integer, KindOf("field_num"))
	assert.Equal(t, Decimal, KindOf("amount"))
	assert.Equal(t, Decimal, KindOf("management_fee"))
	assert.Equal(t, Decimal, KindOf("incentive"))

	// Substring rule: anything containing "date" is a Date, even fields
	// that merely happen to embed the word.
	assert.Equal(t, Date, KindOf("pcap_date"))
	assert.Equal(t, Date, KindOf("inactive_date"))
	assert.Equal(t, Date, KindOf("date_of_update"))

	// Everything else is text.
	assert.Equal(t, Text, KindOf("short_name"))
	assert.Equal(t, Text, KindOf("id"))
	assert.Equal(t, Text, KindOf("status"))
}

func TestIdentifierField(t *testing.T) {
	assert.Equal(t, "short_name", IdentifierField(LPLookup))
	assert.Equal(t, "id", IdentifierField(LPFund))
	assert.Equal(t, "id", IdentifierField(PCAPEntry))
	assert.Equal(t, "id", IdentifierField(LedgerEntry))
}

func TestTemplate_Independence(t *testing.T) {
	a := Template(LPFund)
	b := Template(LPFund)
	a["fund_name"] = "changed"
	assert.Equal(t, "", b["fund_name"], "templates must not share state")
}

func TestTemplate_ServerAssignedIDExcluded(t *testing.T) {
	for _, et := range []EntityType{LPFund, PCAPEntry, LedgerEntry} {
		rec := Template(et)
		assert.False(t, rec.Has("id"), "%s template must omit id", et)
	}
	// LPLookup's identifier is user-supplied, so it is present (empty).
	rec := Template(LPLookup)
	require.True(t, rec.Has("short_name"))
	assert.Equal(t, "", rec["short_name"])
}

func TestTemplate_DateDefaults(t *testing.T) {
	today := time.Now().Format(DateLayout)

	pcap := Template(PCAPEntry)
	assert.Equal(t, today, pcap["pcap_date"])
	assert.Equal(t, float64(0), pcap["field_num"])
	assert.Equal(t, float64(0), pcap["amount"])

	led := Template(LedgerEntry)
	for _, f := range []string{"entry_date", "activity_date", "effective_date"} {
		assert.Equal(t, today, led[f], f)
	}
	assert.Nil(t, led["sub_activity"])

	// LPLookup and LPFund date fields stay empty.
	assert.Nil(t, Template(LPLookup)["effective_date"])
	assert.Nil(t, Template(LPFund)["term_end"])
}

func TestParse(t *testing.T) {
	for _, et := range All() {
		got, err := Parse(et.String())
		require.NoError(t, err)
		assert.Equal(t, et, got)
	}
	_, err := Parse("customers")
	assert.Error(t, err)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "tbLPLookup", LPLookup.TableName())
	assert.Equal(t, "tbLPFund", LPFund.TableName())
	assert.Equal(t, "tbPCAP", PCAPEntry.TableName())
	assert.Equal(t, "tbLedger", LedgerEntry.TableName())
}
