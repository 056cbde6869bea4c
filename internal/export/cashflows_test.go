package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lptrack/internal/metrics"
)

func TestWriteCashFlows(t *testing.T) {
	sub := "Capital Distribution"
	flows := []metrics.LedgerFlow{
		{EffectiveDate: "2023-02-01", Activity: "Capital Call", Amount: -250000,
			EntityFrom: "ABC", EntityTo: "Fund I", RelatedFund: "Fund I"},
		{EffectiveDate: "2023-06-30", Activity: "LP Distribution", SubActivity: &sub,
			Amount: 100000, EntityFrom: "Fund I", EntityTo: "ABC", RelatedFund: "Fund I"},
	}

	var sb strings.Builder
	require.NoError(t, WriteCashFlows(&sb, flows))
	lines := strings.Split(sb.String(), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Activity,Sub Activity,Amount,From,To,Fund", lines[0])
	assert.Equal(t, "2023-02-01,Capital Call,,-250000,ABC,Fund I,Fund I", lines[1])
	assert.Equal(t, "2023-06-30,LP Distribution,Capital Distribution,100000,Fund I,ABC,Fund I", lines[2])
}

func TestWriteCashFlowsEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCashFlows(&sb, nil))
	assert.Equal(t, "Date,Activity,Sub Activity,Amount,From,To,Fund", sb.String())
}
