package metrics

// LedgerFlow is one ledger transaction as it appears in metric breakdowns
// and IRR cash-flow views.
type LedgerFlow struct {
	EffectiveDate string  `json:"effective_date"`
	Activity      string  `json:"activity"`
	SubActivity   *string `json:"sub_activity"`
	Amount        float64 `json:"amount"`
	EntityFrom    string  `json:"entity_from"`
	EntityTo      string  `json:"entity_to"`
	RelatedFund   string  `json:"related_fund"`
}

// Metric is a summed value together with the transactions that produced it.
type Metric struct {
	Value        float64      `json:"value"`
	Transactions []LedgerFlow `json:"transactions"`
}

// RemainingCapitalMetric carries both calculation methods: cash-based
// (called minus capital distributions) and NAV-based (the latest PCAP
// ending balance, which includes appreciation).
type RemainingCapitalMetric struct {
	Value          float64      `json:"value"`
	CashBasedValue float64      `json:"cash_based_value"`
	NAVBasedValue  *float64     `json:"nav_based_value,omitempty"`
	Transactions   []LedgerFlow `json:"transactions"`
}

// FundMetrics is the summary metric set for one fund position (or an LP's
// totals across funds) as of a report date.
type FundMetrics struct {
	TotalCommitment          Metric                 `json:"total_commitment"`
	TotalCapitalCalled       Metric                 `json:"total_capital_called"`
	TotalCapitalDistribution Metric                 `json:"total_capital_distribution"`
	TotalIncomeDistribution  Metric                 `json:"total_income_distribution"`
	TotalDistribution        Metric                 `json:"total_distribution"`
	RemainingCapital         RemainingCapitalMetric `json:"remaining_capital"`
}
