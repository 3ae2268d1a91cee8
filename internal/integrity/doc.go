// Package integrity validates the full event set and reports anomalies:
// duplicate identifiers, malformed or negative amounts, future-dated or
// unparseable timestamps, and codec-level parse failures. The validator is
// read-only and never fails a run for findings; a non-zero issue count is
// informational output for the caller to act on.
package integrity
