package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"lptrack/internal/irr"
	"lptrack/internal/metrics"
	"lptrack/internal/schema"
	"lptrack/internal/store"
)

// Activity labels for cash flows synthesized from PCAP snapshots. Ledger
// flows keep their stored activity; these mark where a flow really came
// from when the ledger has no capital calls for the LP.
const (
	activityTransferContribution = "Transfer (Capital Contribution)"
	activityPCAPCapitalCall      = "Capital Call (from PCAP)"
	activityPCAPEndingBalance    = "PCAP Ending Balance"
	activityCapitalCall          = "Capital Call"
	activityLPDistribution       = "LP Distribution"
)

// PCAP field names the analytics read.
const (
	pcapFieldEndingBalance = "Ending Capital Balance"
	pcapFieldTransfers     = "Transfers"
	pcapFieldCapitalCalls  = "Capital Calls"
)

// ListLPs handles GET /api/lps
func (h *Handler) ListLPs(c *fiber.Ctx) error {
	sqlStr := fmt.Sprintf(`SELECT * FROM %s ORDER BY short_name`,
		quote(schema.LPLookup.TableName()))
	rows, err := store.QueryRows(c.Context(), h.store.DB, sqlStr)
	if err != nil {
		return fmt.Errorf("list lps: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(rows)
}

// LPDetails handles GET /api/lp/:short_name?report_date=YYYY-MM-DD
func (h *Handler) LPDetails(c *fiber.Ctx) error {
	shortName := c.Params("short_name")
	reportDate := h.reportDate(c)

	lp, err := h.fetch(c.Context(), schema.LPLookup, shortName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFound(notFoundLabel[schema.LPLookup]))
		}
		return fmt.Errorf("lp %s: %w", shortName, err)
	}

	funds, err := h.fundsForLP(c.Context(), shortName)
	if err != nil {
		return fmt.Errorf("lp %s funds: %w", shortName, err)
	}

	fundViews := make([]map[string]any, 0, len(funds))
	metricSets := make([]metrics.FundMetrics, 0, len(funds))
	for _, fund := range funds {
		fundName, _ := fund["fund_name"].(string)
		flows, err := h.ledgerFlows(c.Context(), shortName, fundName, reportDate)
		if err != nil {
			return fmt.Errorf("lp %s fund %s flows: %w", shortName, fundName, err)
		}
		m := metrics.Compute(flows, nil)
		metricSets = append(metricSets, m)

		view := make(map[string]any, len(fund)+1)
		for k, v := range fund {
			view[k] = v
		}
		view["metrics"] = m
		fundViews = append(fundViews, view)
	}

	totals := metrics.Merge(metricSets)

	navBalance, pcapDate, err := h.latestEndingBalance(c.Context(), shortName, reportDate)
	if err != nil {
		return fmt.Errorf("lp %s pcap: %w", shortName, err)
	}
	totals.RemainingCapital.NAVBasedValue = navBalance

	result, err := h.computeIRR(c.Context(), shortName, reportDate)
	if err != nil {
		return fmt.Errorf("lp %s irr: %w", shortName, err)
	}

	return c.JSON(fiber.Map{
		"lp_details":              lp,
		"funds":                   fundViews,
		"totals":                  totals,
		"irr":                     result.IRR,
		"pcap_report_date":        pcapDate,
		"irr_snapshot_data_issue": result.SnapshotDataIssue,
		"irr_chronology_issue":    result.ChronologyAdjusted,
	})
}

// IRRCashFlows handles GET /api/lp/:short_name/irr-cash-flows?report_date=
func (h *Handler) IRRCashFlows(c *fiber.Ctx) error {
	shortName := c.Params("short_name")
	reportDate := h.reportDate(c)

	if _, err := h.fetch(c.Context(), schema.LPLookup, shortName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFound(notFoundLabel[schema.LPLookup]))
		}
		return fmt.Errorf("lp %s: %w", shortName, err)
	}

	result, err := h.computeIRR(c.Context(), shortName, reportDate)
	if err != nil {
		return fmt.Errorf("lp %s irr: %w", shortName, err)
	}

	flows := result.Flows
	if flows == nil {
		flows = []metrics.LedgerFlow{}
	}
	return c.JSON(fiber.Map{
		"cash_flows":          flows,
		"irr":                 result.IRR,
		"pcap_date":           result.PCAPDate,
		"chronology_adjusted": result.ChronologyAdjusted,
		"snapshot_data_issue": result.SnapshotDataIssue,
	})
}

// reportDate reads the report_date query parameter, defaulting to today.
func (h *Handler) reportDate(c *fiber.Ctx) string {
	if d := c.Query("report_date"); d != "" {
		return d
	}
	return time.Now().Format(schema.DateLayout)
}

func (h *Handler) fundsForLP(ctx context.Context, shortName string) ([]map[string]any, error) {
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(`SELECT * FROM %s WHERE lp_short_name = %s ORDER BY fund_name`,
		quote(schema.LPFund.TableName()), pb.Add(shortName))
	return store.QueryRows(ctx, h.store.DB, sqlStr, pb.Params()...)
}

// ledgerFlows loads the transactions for one LP and fund up to the report
// date. Pass fund as "" to load across all funds.
func (h *Handler) ledgerFlows(ctx context.Context, shortName, fund, reportDate string) ([]metrics.LedgerFlow, error) {
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT * FROM %s WHERE related_entity = %s AND effective_date <= %s`,
		quote(schema.LedgerEntry.TableName()), pb.Add(shortName), pb.Add(reportDate))
	if fund != "" {
		sqlStr += fmt.Sprintf(` AND related_fund = %s`, pb.Add(fund))
	}
	sqlStr += ` ORDER BY effective_date`

	rows, err := store.QueryRows(ctx, h.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	flows := make([]metrics.LedgerFlow, 0, len(rows))
	for _, row := range rows {
		flows = append(flows, flowFromRow(row))
	}
	return flows, nil
}

// latestEndingBalance returns the most recent PCAP ending balance for the
// LP on or before the report date, with the snapshot's date.
func (h *Handler) latestEndingBalance(ctx context.Context, shortName, reportDate string) (*float64, *string, error) {
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT pcap_date, amount FROM %s
		 WHERE lp_short_name = %s AND field = %s AND pcap_date <= %s
		 ORDER BY pcap_date DESC LIMIT 1`,
		quote(schema.PCAPEntry.TableName()),
		pb.Add(shortName), pb.Add(pcapFieldEndingBalance), pb.Add(reportDate))
	row, err := store.QueryRow(ctx, h.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	amount := toFloat(row["amount"])
	date, _ := row["pcap_date"].(string)
	return &amount, &date, nil
}

// pcapFlows loads PCAP rows for one field up to the report date, as
// synthesized cash flows labelled with the given activity.
func (h *Handler) pcapFlows(ctx context.Context, shortName, field, activity, reportDate string) ([]metrics.LedgerFlow, error) {
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		`SELECT pcap_date, amount FROM %s
		 WHERE lp_short_name = %s AND field = %s AND pcap_date <= %s
		 ORDER BY pcap_date`,
		quote(schema.PCAPEntry.TableName()),
		pb.Add(shortName), pb.Add(field), pb.Add(reportDate))
	rows, err := store.QueryRows(ctx, h.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	flows := make([]metrics.LedgerFlow, 0, len(rows))
	for _, row := range rows {
		date, _ := row["pcap_date"].(string)
		flows = append(flows, metrics.LedgerFlow{
			EffectiveDate: date,
			Activity:      activity,
			Amount:        toFloat(row["amount"]),
		})
	}
	return flows, nil
}

// irrResult is the assembled IRR view for one LP as of a report date.
type irrResult struct {
	Flows              []metrics.LedgerFlow
	IRR                *float64
	PCAPDate           *string
	ChronologyAdjusted bool
	SnapshotDataIssue  bool
}

// computeIRR assembles the LP's cash-flow series and solves for XIRR.
//
// Contributions come from ledger capital calls when present; otherwise
// from PCAP Transfers rows, then PCAP Capital Calls rows, since older
// positions only exist as quarter-end snapshots. Distributions come from
// the ledger, and the latest PCAP ending balance closes the series as the
// terminal value. Contributions are negated to the investor's sign
// convention.
func (h *Handler) computeIRR(ctx context.Context, shortName, reportDate string) (irrResult, error) {
	var result irrResult

	ledger, err := h.ledgerFlows(ctx, shortName, "", reportDate)
	if err != nil {
		return result, err
	}

	var contributions []metrics.LedgerFlow
	for _, f := range ledger {
		if f.Activity == activityCapitalCall {
			f.Amount = -math.Abs(f.Amount)
			contributions = append(contributions, f)
		}
	}

	snapshotSourced := false
	if len(contributions) == 0 {
		contributions, err = h.pcapFlows(ctx, shortName, pcapFieldTransfers, activityTransferContribution, reportDate)
		if err != nil {
			return result, err
		}
		if len(contributions) == 0 {
			contributions, err = h.pcapFlows(ctx, shortName, pcapFieldCapitalCalls, activityPCAPCapitalCall, reportDate)
			if err != nil {
				return result, err
			}
		}
		for i := range contributions {
			contributions[i].Amount = -math.Abs(contributions[i].Amount)
		}
		snapshotSourced = len(contributions) > 0
	}

	var distributions []metrics.LedgerFlow
	for _, f := range ledger {
		if f.Activity == activityLPDistribution {
			distributions = append(distributions, f)
		}
	}

	balance, pcapDate, err := h.latestEndingBalance(ctx, shortName, reportDate)
	if err != nil {
		return result, err
	}
	result.PCAPDate = pcapDate

	flows := append(append([]metrics.LedgerFlow{}, contributions...), distributions...)
	if balance != nil && pcapDate != nil {
		flows = append(flows, metrics.LedgerFlow{
			EffectiveDate: *pcapDate,
			Activity:      activityPCAPEndingBalance,
			Amount:        *balance,
		})
	}
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].EffectiveDate < flows[j].EffectiveDate
	})
	result.Flows = flows

	if len(contributions) == 0 {
		return result, nil
	}

	// Snapshot-dated contributions can postdate real distributions. Shift
	// them to just before the earliest distribution so the series starts
	// with an outflow and XIRR stays solvable. The reported flows keep
	// their stored dates.
	adjusted := make([]irr.CashFlow, 0, len(flows))
	firstContribution := earliestDate(contributions)
	firstDistribution := earliestDate(distributions)
	shiftTo := ""
	if firstDistribution != "" && firstDistribution <= firstContribution {
		result.ChronologyAdjusted = true
		result.SnapshotDataIssue = snapshotSourced
		if d, err := time.Parse(schema.DateLayout, firstDistribution); err == nil {
			shiftTo = d.AddDate(0, 0, -1).Format(schema.DateLayout)
		}
	}
	for _, f := range flows {
		date := f.EffectiveDate
		if shiftTo != "" && f.Amount < 0 && date >= firstDistribution {
			date = shiftTo
		}
		d, err := time.Parse(schema.DateLayout, date)
		if err != nil {
			continue
		}
		adjusted = append(adjusted, irr.CashFlow{Date: d, Amount: f.Amount})
	}
	sort.SliceStable(adjusted, func(i, j int) bool {
		return adjusted[i].Date.Before(adjusted[j].Date)
	})

	if rate, err := irr.XIRR(adjusted); err == nil {
		result.IRR = &rate
	}
	return result, nil
}

func earliestDate(flows []metrics.LedgerFlow) string {
	earliest := ""
	for _, f := range flows {
		if earliest == "" || f.EffectiveDate < earliest {
			earliest = f.EffectiveDate
		}
	}
	return earliest
}

func flowFromRow(row map[string]any) metrics.LedgerFlow {
	var sub *string
	if s, ok := row["sub_activity"].(string); ok {
		sub = &s
	}
	str := func(k string) string {
		s, _ := row[k].(string)
		return s
	}
	return metrics.LedgerFlow{
		EffectiveDate: str("effective_date"),
		Activity:      str("activity"),
		SubActivity:   sub,
		Amount:        toFloat(row["amount"]),
		EntityFrom:    str("entity_from"),
		EntityTo:      str("entity_to"),
		RelatedFund:   str("related_fund"),
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
