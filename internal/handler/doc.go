// Package handler implements the variant request handler.
// It runs the per-request pipeline: fetch the variant list, pick a variant,
// fetch its page, rewrite the markup and tag the response with the variant cookie.
package handler
