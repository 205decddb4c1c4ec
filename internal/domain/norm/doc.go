// Package norm contains the legal-act reference model: the Act and
// ActReference value types, the structural tree of an act, and the
// canonical URN encoding used as cache and lookup key everywhere else.
//
// Everything in this package is pure: construction and encoding never
// perform network or disk I/O, and identical inputs always produce
// identical canonical identifiers.
package norm
