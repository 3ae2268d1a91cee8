package integrity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ledgerline/ledgerctl/internal/balance"
)

// CheckName identifies one integrity check.
type CheckName string

// Checks performed by the validator. An event can trigger more than one.
const (
	CheckParseFailure        CheckName = "parse_failure"
	CheckMissingIdentifier   CheckName = "missing_id"
	CheckDuplicateIdentifier CheckName = "duplicate_id"
	CheckMalformedRecord     CheckName = "malformed_record"
	CheckMalformedAmount     CheckName = "malformed_amount"
	CheckNegativeAmount      CheckName = "negative_amount"
	CheckMissingTimestamp    CheckName = "missing_timestamp"
	CheckMalformedTimestamp  CheckName = "malformed_timestamp"
	CheckFutureTimestamp     CheckName = "future_timestamp"
)

// Issue is one reportable finding keyed by source file and event identifier.
type Issue struct {
	File    string    `json:"file"`
	EventID string    `json:"event_id,omitempty"`
	Check   CheckName `json:"check"`
	Detail  string    `json:"detail"`
}

// Summary aggregates finding counts for machine consumption.
type Summary struct {
	FilesScanned         int `json:"files_scanned"`
	EventsScanned        int `json:"events_scanned"`
	FilesWithParseErrors int `json:"files_with_errors"`
	EventsWithIssues     int `json:"events_with_errors"`
	DuplicateIdentifiers int `json:"duplicate_ids"`
	MalformedAmounts     int `json:"malformed_amounts"`
	NegativeAmounts      int `json:"negative_amounts"`
	FutureTimestamps     int `json:"future_events"`
}

// Report is the structured result of one validation run. It is purely
// diagnostic: the engine never acts on it.
type Report struct {
	GeneratedAt time.Time
	EventsRoot  string
	Summary     Summary
	Issues      []Issue
	Balances    balance.Balances
}

const (
	reportTitleConstant            = "# Ledger Integrity Report"
	reportNoBalancesLineConstant   = "- No valid events yet."
	reportNoBreakdownLineConstant  = "- No account breakdown available."
	reportNoIssuesLineConstant     = "- No integrity issues detected."
	reportBalanceAmountPlaces      = 2
	reportGeneratedAtLineTemplate  = "- Generated at: `%s`"
	reportEventsRootLineTemplate   = "- Event root: `%s`"
	reportSummaryCountLineTemplate = "- %s: **%d**"
	reportCurrencyLineTemplate     = "- **%s**: `%s`"
	reportAccountHeaderTemplate    = "- **%s**"
	reportAccountAmountTemplate    = "  - %s: `%s`"
	reportIssueLineTemplate        = "- `%s` (%s) %s"
	reportIssueEventLineTemplate   = "- `%s` (%s) id `%s`: %s"
)

// RenderMarkdown produces the human-readable report artifact content.
func RenderMarkdown(report Report) string {
	var lines []string

	lines = append(lines,
		reportTitleConstant,
		"",
		fmt.Sprintf(reportGeneratedAtLineTemplate, report.GeneratedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf(reportEventsRootLineTemplate, report.EventsRoot),
		"",
		"## Summary",
		fmt.Sprintf(reportSummaryCountLineTemplate, "Files scanned", report.Summary.FilesScanned),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Events scanned", report.Summary.EventsScanned),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Files with errors", report.Summary.FilesWithParseErrors),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Events with errors", report.Summary.EventsWithIssues),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Duplicate IDs", report.Summary.DuplicateIdentifiers),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Malformed amounts", report.Summary.MalformedAmounts),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Negative amounts", report.Summary.NegativeAmounts),
		fmt.Sprintf(reportSummaryCountLineTemplate, "Future-dated events", report.Summary.FutureTimestamps),
		"",
	)

	lines = append(lines, "## Balances by Currency")
	currencyTotals := report.Balances.CurrencyTotals()
	if len(currencyTotals) == 0 {
		lines = append(lines, reportNoBalancesLineConstant)
	} else {
		for _, currency := range report.Balances.SortedCurrencies() {
			lines = append(lines, fmt.Sprintf(reportCurrencyLineTemplate, currency, currencyTotals[currency].StringFixed(reportBalanceAmountPlaces)))
		}
	}
	lines = append(lines, "")

	lines = append(lines, "## Balances by Account")
	grouped := report.Balances.GroupedByCurrency()
	if len(grouped) == 0 {
		lines = append(lines, reportNoBreakdownLineConstant)
	} else {
		accountTotals := make(map[string]map[string]string)
		for currency, accounts := range grouped {
			for account, total := range accounts {
				if accountTotals[account] == nil {
					accountTotals[account] = make(map[string]string)
				}
				accountTotals[account][currency] = total.StringFixed(reportBalanceAmountPlaces)
			}
		}
		accounts := make([]string, 0, len(accountTotals))
		for account := range accountTotals {
			accounts = append(accounts, account)
		}
		sort.Strings(accounts)
		for _, account := range accounts {
			lines = append(lines, fmt.Sprintf(reportAccountHeaderTemplate, account))
			currencies := make([]string, 0, len(accountTotals[account]))
			for currency := range accountTotals[account] {
				currencies = append(currencies, currency)
			}
			sort.Strings(currencies)
			for _, currency := range currencies {
				lines = append(lines, fmt.Sprintf(reportAccountAmountTemplate, currency, accountTotals[account][currency]))
			}
		}
	}
	lines = append(lines, "")

	lines = append(lines, "## Detected Issues")
	if len(report.Issues) == 0 {
		lines = append(lines, reportNoIssuesLineConstant)
	} else {
		for _, issue := range report.Issues {
			if len(issue.EventID) > 0 {
				lines = append(lines, fmt.Sprintf(reportIssueEventLineTemplate, issue.File, issue.Check, issue.EventID, issue.Detail))
				continue
			}
			lines = append(lines, fmt.Sprintf(reportIssueLineTemplate, issue.File, issue.Check, issue.Detail))
		}
	}
	lines = append(lines, "")

	return strings.Join(lines, "\n")
}
