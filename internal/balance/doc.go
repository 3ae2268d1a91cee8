// Package balance derives account balances from the full event set. Balances
// are a pure function of the events: they are rebuilt from scratch on every
// invocation and never persisted as a source of truth.
package balance
