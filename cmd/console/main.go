package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"lptrack/internal/client"
	"lptrack/internal/config"
	"lptrack/internal/console"
	"lptrack/internal/editor"
	"lptrack/internal/export"
	"lptrack/internal/schema"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	cl := client.New(client.Config{
		BaseURL: cfg.Client.BaseURL,
		Timeout: cfg.Client.Timeout(),
	}, log)

	repl := &repl{
		ctrl:   console.New(cl, log),
		client: cl,
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
	}
	repl.run(context.Background())
}

type repl struct {
	ctrl   *console.Controller
	client *client.Client
	in     *bufio.Scanner
	out    io.Writer
}

func (r *repl) run(ctx context.Context) {
	fmt.Fprintf(r.out, "Record console. Type 'help' for commands.\n")
	r.ctrl.Refresh(ctx)
	r.showListing()

	for {
		fmt.Fprintf(r.out, "%s> ", r.ctrl.Entity())
		if !r.in.Scan() {
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			r.help()
		case "use":
			r.use(ctx, args)
		case "list", "refresh":
			r.ctrl.Refresh(ctx)
			r.showListing()
		case "add":
			r.add(ctx)
		case "edit":
			r.edit(ctx, args)
		case "del":
			r.del(ctx, args)
		case "export":
			r.ctrl.ExportTable(ctx)
			r.showStatus()
		case "export-all":
			r.ctrl.ExportAll(ctx)
			r.showStatus()
		case "lps":
			r.lps(ctx)
		case "lp":
			r.lpDetails(ctx, args)
		case "irr-csv":
			r.irrCSV(ctx, args)
		default:
			fmt.Fprintf(r.out, "Unknown command %q. Type 'help'.\n", cmd)
		}
	}
}

func (r *repl) help() {
	fmt.Fprint(r.out, `Commands:
  use <lplookup|lpfund|pcap|ledger>   switch table
  list                                show the active table
  add                                 create a record
  edit <id>                           edit a record
  del <id>                            delete a record (asks first)
  export                              export the active table to CSV
  export-all                          export every table to CSV
  lps                                 list LPs
  lp <short_name> [report_date]       LP metrics as of report date
  irr-csv <short_name> [report_date]  write IRR cash flows to CSV
  refresh                             re-fetch the listing
  quit
`)
}

func (r *repl) use(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: use <lplookup|lpfund|pcap|ledger>")
		return
	}
	t, err := schema.Parse(args[0])
	if err != nil {
		fmt.Fprintf(r.out, "unknown table %q\n", args[0])
		return
	}
	r.ctrl.SwitchEntity(ctx, t)
	r.showListing()
}

func (r *repl) showListing() {
	if msg := r.ctrl.Err(); msg != "" {
		fmt.Fprintln(r.out, msg)
		return
	}
	grid := editor.BuildGrid(r.ctrl.Entity(), r.ctrl.Listing())
	editor.WriteGrid(r.out, grid)
}

func (r *repl) showStatus() {
	if msg := r.ctrl.Err(); msg != "" {
		fmt.Fprintln(r.out, msg)
		return
	}
	if s := r.ctrl.ExportStatus(); s != "" {
		fmt.Fprintln(r.out, s)
	}
}

// fillForm prompts per field. Enter keeps the shown value; "-" clears it.
func (r *repl) fillForm(creating bool) bool {
	kind, draft := r.ctrl.Session()
	if kind == console.SessionIdle {
		return false
	}
	form := editor.BuildForm(r.ctrl.Entity(), draft, creating)
	editor.WriteForm(r.out, form)
	fmt.Fprintln(r.out, "Enter keeps the value, '-' clears it, '.' aborts.")

	for _, f := range form.Fields {
		fmt.Fprintf(r.out, "  %s [%s]: ", f.Name, f.Value)
		if !r.in.Scan() {
			return false
		}
		text := strings.TrimSpace(r.in.Text())
		switch text {
		case "":
			continue
		case ".":
			r.ctrl.Cancel()
			fmt.Fprintln(r.out, "Aborted.")
			return false
		case "-":
			r.ctrl.SetField(f.Name, nil)
		default:
			r.ctrl.SetField(f.Name, editor.ParseInput(f.Kind, text))
		}
	}
	return true
}

func (r *repl) add(ctx context.Context) {
	r.ctrl.BeginCreate()
	r.submitLoop(ctx, true)
}

func (r *repl) edit(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: edit <id>")
		return
	}
	if _, err := r.ctrl.BeginEdit(args[0]); err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.submitLoop(ctx, false)
}

// submitLoop prompts, saves, and on failure re-prompts with the draft the
// controller kept, so the operator can correct fields instead of retyping
// the whole record. '.' during the prompts abandons the draft.
func (r *repl) submitLoop(ctx context.Context, creating bool) {
	for {
		if !r.fillForm(creating) {
			return
		}
		if err := r.ctrl.Save(ctx); err != nil {
			fmt.Fprintln(r.out, r.ctrl.Err())
			fmt.Fprintln(r.out, "Draft kept. Correct the fields or '.' to abort.")
			continue
		}
		r.showListing()
		return
	}
}

func (r *repl) del(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: del <id>")
		return
	}
	err := r.ctrl.Delete(ctx, args[0], func(rec schema.Record) bool {
		fmt.Fprintf(r.out, "Delete %v? (y/N): ", args[0])
		if !r.in.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(r.in.Text()))
		return answer == "y" || answer == "yes"
	})
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.showListing()
}

func (r *repl) lps(ctx context.Context) {
	records, err := r.client.LPs(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Failed to load LPs: %v\n", err)
		return
	}
	grid := editor.BuildGrid(schema.LPLookup, records)
	editor.WriteGrid(r.out, grid)
}

func (r *repl) lpDetails(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(r.out, "usage: lp <short_name> [report_date]")
		return
	}
	reportDate := ""
	if len(args) == 2 {
		reportDate = args[1]
	}
	details, err := r.client.LPDetails(ctx, args[0], reportDate)
	if err != nil {
		fmt.Fprintf(r.out, "Failed to load LP details: %v\n", err)
		return
	}

	fmt.Fprintf(r.out, "LP: %v\n", details.LP["short_name"])
	if details.Totals != nil {
		t := details.Totals
		fmt.Fprintf(r.out, "  Total Commitment:            %s\n", money(t.TotalCommitment.Value))
		fmt.Fprintf(r.out, "  Total Capital Called:        %s\n", money(t.TotalCapitalCalled.Value))
		fmt.Fprintf(r.out, "  Total Capital Distribution:  %s\n", money(t.TotalCapitalDistribution.Value))
		fmt.Fprintf(r.out, "  Total Income Distribution:   %s\n", money(t.TotalIncomeDistribution.Value))
		fmt.Fprintf(r.out, "  Total Distribution:          %s\n", money(t.TotalDistribution.Value))
		fmt.Fprintf(r.out, "  Remaining Capital (cash):    %s\n", money(t.RemainingCapital.CashBasedValue))
		if t.RemainingCapital.NAVBasedValue != nil {
			fmt.Fprintf(r.out, "  Remaining Capital (NAV):     %s\n", money(*t.RemainingCapital.NAVBasedValue))
		}
	}
	if details.IRR != nil {
		fmt.Fprintf(r.out, "  IRR:                         %.2f%%\n", *details.IRR*100)
	} else {
		fmt.Fprintf(r.out, "  IRR:                         N/A\n")
	}
	if details.PCAPReportDate != nil {
		fmt.Fprintf(r.out, "  PCAP Report Date:            %s\n", *details.PCAPReportDate)
	}
	if details.SnapshotDataIssue {
		fmt.Fprintln(r.out, "  Note: contributions come from a PCAP snapshot dated after early distributions.")
	}
	if details.ChronologyIssue {
		fmt.Fprintln(r.out, "  Note: flow dates were adjusted to keep the IRR solvable.")
	}
	for _, fund := range details.Funds {
		fmt.Fprintf(r.out, "  Fund: %v (%v)\n", fund["fund_name"], fund["status"])
	}
}

func (r *repl) irrCSV(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(r.out, "usage: irr-csv <short_name> [report_date]")
		return
	}
	reportDate := ""
	if len(args) == 2 {
		reportDate = args[1]
	}
	flows, err := r.client.IRRCashFlows(ctx, args[0], reportDate)
	if err != nil {
		fmt.Fprintf(r.out, "Failed to load IRR cash flows: %v\n", err)
		return
	}
	if len(flows.CashFlows) == 0 {
		fmt.Fprintln(r.out, "No cash flows available to download.")
		return
	}

	name := fmt.Sprintf("irr_cash_flows_%s.csv", args[0])
	f, err := os.Create(name)
	if err != nil {
		fmt.Fprintf(r.out, "Failed to write %s: %v\n", name, err)
		return
	}
	defer f.Close()
	if err := export.WriteCashFlows(f, flows.CashFlows); err != nil {
		fmt.Fprintf(r.out, "Failed to write %s: %v\n", name, err)
		return
	}
	fmt.Fprintf(r.out, "Wrote %d cash flows to %s\n", len(flows.CashFlows), name)
}

func money(v float64) string {
	return fmt.Sprintf("$%.0f", v)
}
