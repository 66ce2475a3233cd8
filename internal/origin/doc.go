// Package origin retrieves the HTML document of the selected variant.
// Fetches are single attempts; repeated failures against one host trip a
// per-host circuit breaker so later requests fail fast.
package origin
