package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"lptrack/internal/metrics"
	"lptrack/internal/schema"
)

// LPDetails is the analytics view for one LP as of a report date. Funds
// stay generic records so the console renders them with the same grid it
// uses everywhere; each carries a nested "metrics" object.
type LPDetails struct {
	LP                schema.Record        `json:"lp_details"`
	Funds             []schema.Record      `json:"funds"`
	Totals            *metrics.FundMetrics `json:"totals"`
	IRR               *float64             `json:"irr"`
	PCAPReportDate    *string              `json:"pcap_report_date"`
	SnapshotDataIssue bool                 `json:"irr_snapshot_data_issue"`
	ChronologyIssue   bool                 `json:"irr_chronology_issue"`
}

// IRRCashFlows is the dated cash-flow series behind an LP's IRR.
type IRRCashFlows struct {
	CashFlows          []metrics.LedgerFlow `json:"cash_flows"`
	IRR                *float64             `json:"irr"`
	PCAPDate           *string              `json:"pcap_date"`
	ChronologyAdjusted bool                 `json:"chronology_adjusted"`
	SnapshotDataIssue  bool                 `json:"snapshot_data_issue"`
}

// LPs fetches every LP lookup record.
func (c *Client) LPs(ctx context.Context) ([]schema.Record, error) {
	var records []schema.Record
	if err := c.do(ctx, "lps", http.MethodGet, c.baseURL+"/api/lps", nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []schema.Record{}
	}
	return records, nil
}

// LPDetails fetches the metrics view for one LP. reportDate is YYYY-MM-DD
// and may be empty, in which case the service uses today.
func (c *Client) LPDetails(ctx context.Context, shortName, reportDate string) (*LPDetails, error) {
	u := fmt.Sprintf("%s/api/lp/%s", c.baseURL, url.PathEscape(shortName))
	if reportDate != "" {
		u += "?report_date=" + url.QueryEscape(reportDate)
	}
	var details LPDetails
	if err := c.do(ctx, "lp-details", http.MethodGet, u, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// IRRCashFlows fetches the cash-flow series behind an LP's IRR.
func (c *Client) IRRCashFlows(ctx context.Context, shortName, reportDate string) (*IRRCashFlows, error) {
	u := fmt.Sprintf("%s/api/lp/%s/irr-cash-flows", c.baseURL, url.PathEscape(shortName))
	if reportDate != "" {
		u += "?report_date=" + url.QueryEscape(reportDate)
	}
	var flows IRRCashFlows
	if err := c.do(ctx, "irr-cash-flows", http.MethodGet, u, nil, &flows); err != nil {
		return nil, err
	}
	return &flows, nil
}
