package rewrite

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DOMEngine parses the whole document before rewriting it.
type DOMEngine struct {
	rules []domRule
}

type domRule struct {
	matcher cascadia.Selector
	actions []Action
}

func NewDOMEngine(rules []Rule) (*DOMEngine, error) {
	compiled := make([]domRule, 0, len(rules))
	for _, r := range rules {
		m, err := cascadia.Compile(r.Selector)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", r.Selector, err)
		}
		compiled = append(compiled, domRule{matcher: m, actions: r.Actions})
	}
	return &DOMEngine{rules: compiled}, nil
}

type domElement struct {
	sel *goquery.Selection
}

func (e domElement) SetInnerContent(text string) {
	e.sel.SetText(text)
}

func (e domElement) SetAttribute(name, value string) {
	e.sel.SetAttr(name, value)
}

func (e *DOMEngine) Transform(dst io.Writer, src io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	for _, r := range e.rules {
		doc.FindMatcher(r.matcher).Each(func(_ int, s *goquery.Selection) {
			el := domElement{sel: s}
			for _, act := range r.actions {
				act(el)
			}
		})
	}

	return html.Render(dst, doc.Get(0))
}
