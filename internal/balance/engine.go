package balance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerctl/internal/ledger"
)

// Key identifies one balance bucket.
type Key struct {
	Account  string
	Currency string
}

// Balances maps (account, currency) pairs to signed totals.
type Balances map[Key]decimal.Decimal

// Compute replays the event set into balances. The computation is pure,
// deterministic, and order-independent: every applicable event contributes a
// fixed delta per (account, currency) bucket, so replay order never changes
// the result.
//
// Per-kind effects: revenue adds the amount to the account, spend subtracts
// it, transfer subtracts from the source account and adds to the destination
// named by meta.to_account (skipped entirely when the destination is
// missing), and meta events carry no balance effect. Transfers net to zero
// across the affected accounts; revenue and spend do not, which models money
// entering or leaving the system versus moving within it.
//
// Events sharing an identifier contribute once: only the first occurrence by
// id is summed, later occurrences are left for the integrity validator to
// report. Events whose amount is negative violate the magnitude invariant and
// are excluded from balances (the validator reports those too).
func Compute(events []ledger.Event) Balances {
	balances := make(Balances)
	seenIdentifiers := make(map[string]struct{})

	for _, event := range events {
		if len(event.ID) > 0 {
			if _, alreadySeen := seenIdentifiers[event.ID]; alreadySeen {
				continue
			}
			seenIdentifiers[event.ID] = struct{}{}
		}

		if event.Amount.IsNegative() {
			continue
		}

		switch event.Kind {
		case ledger.KindRevenue:
			balances.add(event.Account, event.Currency, event.Amount)
		case ledger.KindSpend:
			balances.add(event.Account, event.Currency, event.Amount.Neg())
		case ledger.KindTransfer:
			destinationAccount, destinationPresent := event.TransferDestination()
			if !destinationPresent {
				continue
			}
			balances.add(event.Account, event.Currency, event.Amount.Neg())
			balances.add(destinationAccount, event.Currency, event.Amount)
		default:
			// meta and unknown kinds carry no balance effect
		}
	}

	return balances
}

func (balances Balances) add(account string, currency string, delta decimal.Decimal) {
	key := Key{Account: account, Currency: currency}
	balances[key] = balances[key].Add(delta)
}

// GroupedByCurrency reorganizes the balances as currency -> account -> total.
func (balances Balances) GroupedByCurrency() map[string]map[string]decimal.Decimal {
	grouped := make(map[string]map[string]decimal.Decimal)
	for key, total := range balances {
		accounts, currencyPresent := grouped[key.Currency]
		if !currencyPresent {
			accounts = make(map[string]decimal.Decimal)
			grouped[key.Currency] = accounts
		}
		accounts[key.Account] = total
	}
	return grouped
}

// CurrencyTotals sums the balances per currency across all accounts.
func (balances Balances) CurrencyTotals() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for key, total := range balances {
		totals[key.Currency] = totals[key.Currency].Add(total)
	}
	return totals
}

// SortedCurrencies returns the currencies present in the balances in sorted order.
func (balances Balances) SortedCurrencies() []string {
	currencySet := make(map[string]struct{})
	for key := range balances {
		currencySet[key.Currency] = struct{}{}
	}
	currencies := make([]string, 0, len(currencySet))
	for currency := range currencySet {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}
