// Package store discovers and reads event files from the on-disk event tree
// and provides the canonical append operation. Reads are stateless: every
// load performs a full directory scan and no derived state is cached between
// invocations.
package store
