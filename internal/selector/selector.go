package selector

import (
	"math/rand/v2"
	"net/http"
	"strconv"
)

// DefaultCookieName is the cookie that carries the variant index.
const DefaultCookieName = "variant"

// Rand is the random source used for non-sticky draws.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Selection is the outcome of a single selection.
type Selection struct {
	Index  int
	Sticky bool
}

type Selector struct {
	cookieName string
	rng        Rand
}

// New returns a Selector reading cookieName. A nil rng uses the
// concurrency-safe top-level math/rand/v2 source.
func New(cookieName string, rng Rand) *Selector {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if rng == nil {
		rng = globalRand{}
	}
	return &Selector{cookieName: cookieName, rng: rng}
}

func (s *Selector) CookieName() string {
	return s.cookieName
}

// Select chooses an index in [0, n) for the request. n must be positive.
func (s *Selector) Select(r *http.Request, n int) Selection {
	var value string
	if c, err := r.Cookie(s.cookieName); err == nil {
		value = c.Value
	}
	return s.fromValue(value, n)
}

// SelectFromHeader is Select over a raw Cookie header value.
func (s *Selector) SelectFromHeader(cookieHeader string, n int) Selection {
	value, _ := CookieValue(cookieHeader, s.cookieName)
	return s.fromValue(value, n)
}

func (s *Selector) fromValue(value string, n int) Selection {
	if idx, ok := parseIndex(value, n); ok {
		return Selection{Index: idx, Sticky: true}
	}
	return Selection{Index: s.rng.IntN(n)}
}

func parseIndex(value string, n int) (int, bool) {
	if value == "" {
		return 0, false
	}

	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}

	return idx, true
}

// CookieValue returns the value of name in a raw Cookie header, using the
// same lenient parsing net/http applies to inbound requests.
func CookieValue(header, name string) (string, bool) {
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}
