// Package rollup assembles the daily operations digest. It locates the most
// recent wallet snapshot, spending telemetry report, and ledger integrity
// report and writes a single dated Markdown index pointing at them, tolerating
// whichever artifacts have not been produced yet.
package rollup
