// Package variants fetches the list of candidate page URLs for the A/B test.
//
// The list is fetched fresh on every call and decoded against an explicit
// schema: the response must be a JSON object whose "variants" member is a
// non-empty array of strings.
package variants
