package journal

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

var orgFuncs = template.FuncMap{
	"pct":     func(x float64) string { return fmt.Sprintf("%.2f%%", x*100) },
	"date":    func(t time.Time) string { return t.Format("2006-01-02") },
	"shortID": shortID,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// RunOrgTemplate renders a RunRecord as an Org-mode entry.
const RunOrgTemplate = `** BACKTEST: {{.Instruments}} ({{shortID .RunID}})
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:INSTRUMENTS: {{.Instruments}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:START_BAL:   {{.InitialBalance}}
:WEEKLY:      {{.WeeklyBudget}}
:END_BAL:     {{.FinalBalance}}
:INVESTED:    {{.TotalInvested}}
:NET_PL:      {{.TotalProfit}}
:RETURN_PCT:  {{pct .TotalReturn}}
:ANNUAL_PCT:  {{pct .AnnualReturn}}
:VOLATILITY:  {{pct .Volatility}}
:SHARPE:      {{printf "%.2f" .SharpeRatio}}
:MAX_DD_PCT:  {{pct .MaxDrawdown}}
:TRADES:      {{.Trades}}
:WIN_RATE:    {{pct .WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:
`

// FormatRunOrg renders one backtest run.
func FormatRunOrg(r RunRecord) string {
	var buf bytes.Buffer
	if err := runOrg.Execute(&buf, r); err != nil {
		return fmt.Sprintf("** BACKTEST: %s (render failed: %v)\n", r.RunID, err)
	}
	return buf.String()
}

// FormatRunsOrg renders runs separated by blank lines.
func FormatRunsOrg(runs []RunRecord) string {
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatRunOrg(r))
	}
	return b.String()
}

// FormatOrdersOrg renders live orders as an Org table.
func FormatOrdersOrg(orders []OrderRecord) string {
	if len(orders) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("| Time | Cycle | Instrument | Budget | Price | Qty | Status | Order / Error |\n")
	b.WriteString("|------+-------+------------+--------+-------+-----+--------+---------------|\n")
	for _, o := range orders {
		detail := o.OrderID
		if o.Error != "" {
			detail = o.Error
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d | %s | %s |\n",
			o.Time.UTC().Format(time.RFC3339), shortID(o.CycleID), o.Instrument,
			o.Budget, o.Price, o.Quantity, o.Status, strings.ReplaceAll(detail, "|", "/"))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
