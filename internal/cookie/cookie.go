// Package cookie records the selected variant on the outgoing response.
package cookie

import (
	"net/http"
	"strconv"
	"strings"
)

// Writer sets the variant cookie. The zero Path and MaxAge produce a bare
// session cookie, "variant=<index>".
type Writer struct {
	Name   string
	Path   string
	MaxAge int
}

// NewWriter returns a Writer for name, defaulting to "variant".
func NewWriter(name, path string, maxAge int) *Writer {
	if name == "" {
		name = "variant"
	}
	return &Writer{Name: name, Path: path, MaxAge: maxAge}
}

// Cookie builds the cookie for index.
func (w *Writer) Cookie(index int) *http.Cookie {
	return &http.Cookie{
		Name:   w.Name,
		Value:  strconv.Itoa(index),
		Path:   w.Path,
		MaxAge: w.MaxAge,
	}
}

// Apply replaces any Set-Cookie for the variant cookie in h with one for
// index. Other headers, including unrelated Set-Cookie values, are kept.
func (w *Writer) Apply(h http.Header, index int) {
	existing := h.Values("Set-Cookie")
	var kept []string
	for _, v := range existing {
		if !w.sets(v) {
			kept = append(kept, v)
		}
	}

	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	h.Add("Set-Cookie", w.Cookie(index).String())
}

func (w *Writer) sets(setCookie string) bool {
	name, _, ok := strings.Cut(setCookie, "=")
	return ok && strings.TrimSpace(name) == w.Name
}
