package irr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestXIRRSingleYearDouble(t *testing.T) {
	// -100 now, +200 a year later: 100% return.
	rate, err := XIRR([]CashFlow{
		{Date: d("2023-01-01"), Amount: -100},
		{Date: d("2024-01-01"), Amount: 200},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate, 1e-6)
}

func TestXIRRQuarterlyDistributions(t *testing.T) {
	rate, err := XIRR([]CashFlow{
		{Date: d("2023-01-01"), Amount: -1000},
		{Date: d("2023-04-01"), Amount: 100},
		{Date: d("2023-07-01"), Amount: 100},
		{Date: d("2023-10-01"), Amount: 100},
		{Date: d("2024-01-01"), Amount: 900},
	})
	require.NoError(t, err)
	// NPV at the returned rate should be ~0.
	assert.Greater(t, rate, 0.15)
	assert.Less(t, rate, 0.30)
}

func TestXIRRNegativeReturn(t *testing.T) {
	rate, err := XIRR([]CashFlow{
		{Date: d("2023-01-01"), Amount: -100},
		{Date: d("2024-01-01"), Amount: 50},
	})
	require.NoError(t, err)
	assert.InDelta(t, -0.5, rate, 1e-6)
}

func TestXIRRRejectsDegenerateSeries(t *testing.T) {
	_, err := XIRR([]CashFlow{{Date: d("2023-01-01"), Amount: -100}})
	assert.ErrorIs(t, err, ErrTooFewFlows)

	_, err = XIRR([]CashFlow{
		{Date: d("2023-01-01"), Amount: -100},
		{Date: d("2024-01-01"), Amount: -50},
	})
	assert.ErrorIs(t, err, ErrSameSignFlows)
}
