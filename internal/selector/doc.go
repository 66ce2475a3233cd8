// Package selector picks the variant index for a visitor.
//
// A visitor carrying a valid variant cookie keeps the variant it was given
// before (sticky selection). Everyone else, including visitors whose cookie
// is non-numeric or points past the end of the current list, gets a uniform
// draw over [0, n).
package selector
