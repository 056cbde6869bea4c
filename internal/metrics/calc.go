// Package metrics derives summary financial metrics for an investor from
// ledger transactions. Which transactions feed which metric is expressed
// as expr rules over the transaction fields, so the selection logic reads
// the way an analyst would state it.
package metrics

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"
)

// selection rules, evaluated against one ledger transaction at a time.
const (
	commitmentRule          = `sub_activity == "New Commitment"`
	capitalCalledRule       = `activity == "Capital Call"`
	capitalDistributionRule = `activity == "LP Distribution" && sub_activity == "Capital Distribution"`
	incomeDistributionRule  = `activity == "LP Distribution" && sub_activity == "Income Distribution"`
)

var (
	commitmentProg          *vm.Program
	capitalCalledProg       *vm.Program
	capitalDistributionProg *vm.Program
	incomeDistributionProg  *vm.Program
)

func init() {
	commitmentProg = mustCompile(commitmentRule)
	capitalCalledProg = mustCompile(capitalCalledRule)
	capitalDistributionProg = mustCompile(capitalDistributionRule)
	incomeDistributionProg = mustCompile(incomeDistributionRule)
}

func mustCompile(rule string) *vm.Program {
	prog, err := expr.Compile(rule, expr.Env(ruleEnv{}), expr.AsBool())
	if err != nil {
		panic(fmt.Sprintf("metrics: bad rule %q: %v", rule, err))
	}
	return prog
}

// ruleEnv is the expression environment for one transaction.
type ruleEnv struct {
	Activity    string  `expr:"activity"`
	SubActivity string  `expr:"sub_activity"`
	Amount      float64 `expr:"amount"`
}

func envFor(f LedgerFlow) ruleEnv {
	sub := ""
	if f.SubActivity != nil {
		sub = *f.SubActivity
	}
	return ruleEnv{Activity: f.Activity, SubActivity: sub, Amount: f.Amount}
}

func matches(prog *vm.Program, f LedgerFlow) bool {
	out, err := expr.Run(prog, envFor(f))
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// sumMatching folds the matching transactions with decimal arithmetic so
// repeated float addition cannot drift the reported totals.
func sumMatching(prog *vm.Program, flows []LedgerFlow) Metric {
	total := decimal.Zero
	var matched []LedgerFlow
	for _, f := range flows {
		if matches(prog, f) {
			total = total.Add(decimal.NewFromFloat(f.Amount))
			matched = append(matched, f)
		}
	}
	v, _ := total.Float64()
	return Metric{Value: v, Transactions: matched}
}

// Compute derives the metric set from the transactions relevant to one
// fund position (already filtered to the LP, fund, and report date by the
// caller). navEndingBalance, when present, is the latest PCAP ending
// balance on or before the report date.
func Compute(flows []LedgerFlow, navEndingBalance *float64) FundMetrics {
	m := FundMetrics{
		TotalCommitment:          sumMatching(commitmentProg, flows),
		TotalCapitalCalled:       sumMatching(capitalCalledProg, flows),
		TotalCapitalDistribution: sumMatching(capitalDistributionProg, flows),
		TotalIncomeDistribution:  sumMatching(incomeDistributionProg, flows),
	}

	totalDist := decimal.NewFromFloat(m.TotalCapitalDistribution.Value).
		Add(decimal.NewFromFloat(m.TotalIncomeDistribution.Value))
	m.TotalDistribution.Value, _ = totalDist.Float64()
	m.TotalDistribution.Transactions = append(
		append([]LedgerFlow{}, m.TotalCapitalDistribution.Transactions...),
		m.TotalIncomeDistribution.Transactions...)

	cash := decimal.NewFromFloat(m.TotalCapitalCalled.Value).
		Sub(decimal.NewFromFloat(m.TotalCapitalDistribution.Value))
	cashValue, _ := cash.Float64()

	m.RemainingCapital = RemainingCapitalMetric{
		Value:          cashValue,
		CashBasedValue: cashValue,
		NAVBasedValue:  navEndingBalance,
		Transactions: append(
			append([]LedgerFlow{}, m.TotalCapitalCalled.Transactions...),
			m.TotalCapitalDistribution.Transactions...),
	}
	return m
}

// Merge folds per-fund metric sets into LP-level totals.
func Merge(sets []FundMetrics) FundMetrics {
	var total FundMetrics
	var nav decimal.Decimal
	navSeen := false

	addMetric := func(dst *Metric, src Metric) {
		sum := decimal.NewFromFloat(dst.Value).Add(decimal.NewFromFloat(src.Value))
		dst.Value, _ = sum.Float64()
		dst.Transactions = append(dst.Transactions, src.Transactions...)
	}

	for _, s := range sets {
		addMetric(&total.TotalCommitment, s.TotalCommitment)
		addMetric(&total.TotalCapitalCalled, s.TotalCapitalCalled)
		addMetric(&total.TotalCapitalDistribution, s.TotalCapitalDistribution)
		addMetric(&total.TotalIncomeDistribution, s.TotalIncomeDistribution)
		addMetric(&total.TotalDistribution, s.TotalDistribution)

		rcSum := decimal.NewFromFloat(total.RemainingCapital.CashBasedValue).
			Add(decimal.NewFromFloat(s.RemainingCapital.CashBasedValue))
		total.RemainingCapital.CashBasedValue, _ = rcSum.Float64()
		total.RemainingCapital.Transactions = append(
			total.RemainingCapital.Transactions, s.RemainingCapital.Transactions...)
		if s.RemainingCapital.NAVBasedValue != nil {
			nav = nav.Add(decimal.NewFromFloat(*s.RemainingCapital.NAVBasedValue))
			navSeen = true
		}
	}

	total.RemainingCapital.Value = total.RemainingCapital.CashBasedValue
	if navSeen {
		v, _ := nav.Float64()
		total.RemainingCapital.NAVBasedValue = &v
	}
	return total
}
