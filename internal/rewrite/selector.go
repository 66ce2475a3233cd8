package rewrite

import (
	"fmt"
	"slices"
	"strings"
)

// compound is a selector of the form tag#id.class1.class2, any part optional.
type compound struct {
	tag     string
	id      string
	classes []string
}

func parseCompound(s string) (compound, error) {
	var c compound
	s = strings.TrimSpace(s)
	if s == "" {
		return c, fmt.Errorf("empty selector")
	}
	if strings.ContainsAny(s, " \t\n>+~[]:,()\"'") {
		return c, fmt.Errorf("selector %q: only tag, #id and .class are supported when streaming", s)
	}

	i := strings.IndexAny(s, "#.")
	if i < 0 {
		i = len(s)
	}
	c.tag = strings.ToLower(s[:i])
	if c.tag == "*" {
		c.tag = ""
	}
	rest := s[i:]

	for rest != "" {
		kind := rest[0]
		rest = rest[1:]
		j := strings.IndexAny(rest, "#.")
		if j < 0 {
			j = len(rest)
		}
		name := rest[:j]
		rest = rest[j:]
		if name == "" {
			return c, fmt.Errorf("selector %q: empty %q component", s, string(kind))
		}

		switch kind {
		case '#':
			if c.id != "" && c.id != name {
				return c, fmt.Errorf("selector %q: more than one id", s)
			}
			c.id = name
		case '.':
			c.classes = append(c.classes, name)
		}
	}

	return c, nil
}

// matches expects a lower-cased tag name, as the tokenizer reports it.
func (c compound) matches(tag, id, class string) bool {
	if c.tag != "" && c.tag != tag {
		return false
	}
	if c.id != "" && c.id != id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(class)
		for _, want := range c.classes {
			if !slices.Contains(have, want) {
				return false
			}
		}
	}
	return true
}
