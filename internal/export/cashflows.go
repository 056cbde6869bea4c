package export

import (
	"io"
	"strconv"
	"strings"

	"lptrack/internal/metrics"
)

// cashFlowHeader matches the download produced by the IRR detail view.
var cashFlowHeader = []string{"Date", "Activity", "Sub Activity", "Amount", "From", "To", "Fund"}

// WriteCashFlows writes the IRR cash-flow series as CSV. Fields are joined
// with bare commas and no quoting, so a value containing a comma will
// shift columns — known limitation, kept for byte compatibility with the
// existing download consumers.
func WriteCashFlows(w io.Writer, flows []metrics.LedgerFlow) error {
	lines := make([]string, 0, len(flows)+1)
	lines = append(lines, strings.Join(cashFlowHeader, ","))
	for _, f := range flows {
		sub := ""
		if f.SubActivity != nil {
			sub = *f.SubActivity
		}
		lines = append(lines, strings.Join([]string{
			f.EffectiveDate,
			f.Activity,
			sub,
			strconv.FormatFloat(f.Amount, 'f', -1, 64),
			f.EntityFrom,
			f.EntityTo,
			f.RelatedFund,
		}, ","))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}
