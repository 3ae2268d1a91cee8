// Package ledger defines the canonical event model shared by every command,
// along with the tolerant record codec and the normalizer that unifies the
// historical event schemas behind a single Event type.
package ledger
