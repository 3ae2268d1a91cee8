// Package layout relocates stray and legacy event files into the canonical
// events/<UTC-date>/<id> tree. It is the only mutating, non-append operation
// in the engine: it moves files, never rewrites their events, and never
// overwrites an existing canonical file. Running it twice with no new stray
// files produces no further changes.
package layout
