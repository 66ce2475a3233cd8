package rewrite

import (
	"errors"
	"io"
	"slices"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StreamEngine rewrites HTML token by token without building a tree.
type StreamEngine struct {
	rules []streamRule
}

type streamRule struct {
	sel     compound
	actions []Action
}

func NewStreamEngine(rules []Rule) (*StreamEngine, error) {
	compiled := make([]streamRule, 0, len(rules))
	for _, r := range rules {
		sel, err := parseCompound(r.Selector)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, streamRule{sel: sel, actions: r.Actions})
	}
	return &StreamEngine{rules: compiled}, nil
}

type streamElement struct {
	tok          *html.Token
	inner        *string
	attrsChanged bool
}

func (e *streamElement) SetInnerContent(text string) {
	e.inner = &text
}

func (e *streamElement) SetAttribute(name, value string) {
	e.attrsChanged = true
	for i := range e.tok.Attr {
		if e.tok.Attr[i].Namespace == "" && e.tok.Attr[i].Key == name {
			e.tok.Attr[i].Val = value
			return
		}
	}
	e.tok.Attr = append(e.tok.Attr, html.Attribute{Key: name, Val: value})
}

// Transform copies src to dst, rewriting matched elements. Bytes outside
// matched elements are written exactly as read.
func (e *StreamEngine) Transform(dst io.Writer, src io.Reader) error {
	w := &errWriter{w: dst}
	z := html.NewTokenizer(src)
	var skip *skipState

	for w.err == nil {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return z.Err()
		}

		isTag := tt == html.StartTagToken || tt == html.EndTagToken || tt == html.SelfClosingTagToken
		if !isTag {
			if skip == nil {
				w.Write(z.Raw())
			}
			continue
		}

		// Token lower-cases the buffer in place, so keep the original bytes.
		raw := slices.Clone(z.Raw())
		tok := z.Token()

		if skip != nil {
			switch skip.consume(tt, tok) {
			case skipContinue:
				continue
			case skipClosed:
				skip = nil
				w.Write(raw)
				continue
			case skipImplied:
				skip = nil
			}
		}

		if tt == html.EndTagToken {
			w.Write(raw)
			continue
		}

		el := e.apply(&tok)
		if el == nil {
			w.Write(raw)
			continue
		}

		if el.attrsChanged {
			io.WriteString(w, tok.String())
		} else {
			w.Write(raw)
		}

		// A trailing slash does not close a non-void element in HTML, so
		// <p/>text</p> still has content to replace.
		if el.inner == nil || isVoid(tok.DataAtom) {
			continue
		}
		io.WriteString(w, html.EscapeString(*el.inner))
		skip = &skipState{target: tok.Data}
	}

	return w.err
}

// apply runs every matching rule against tok. It returns nil when none match.
func (e *StreamEngine) apply(tok *html.Token) *streamElement {
	var id, class string
	for _, a := range tok.Attr {
		switch a.Key {
		case "id":
			id = a.Val
		case "class":
			class = a.Val
		}
	}

	var el *streamElement
	for _, r := range e.rules {
		if !r.sel.matches(tok.Data, id, class) {
			continue
		}
		if el == nil {
			el = &streamElement{tok: tok}
		}
		for _, act := range r.actions {
			act(el)
		}
	}
	return el
}

type skipResult int

const (
	skipContinue skipResult = iota // still inside the replaced element
	skipClosed                     // token is the element's own end tag
	skipImplied                    // element ended before token; process token normally
)

// skipState drops the original children of an element whose content was replaced.
type skipState struct {
	target string
	open   []string
}

func (s *skipState) consume(tt html.TokenType, tok html.Token) skipResult {
	switch tt {
	case html.StartTagToken, html.SelfClosingTagToken:
		if len(s.open) == 0 && impliesEnd(s.target, tok.Data) {
			return skipImplied
		}
		if tt == html.StartTagToken && !isVoid(tok.DataAtom) {
			s.open = append(s.open, tok.Data)
		}
	case html.EndTagToken:
		if i := lastIndex(s.open, tok.Data); i >= 0 {
			s.open = s.open[:i]
			return skipContinue
		}
		if tok.Data == s.target || (isHeading(s.target) && isHeading(tok.Data)) {
			return skipClosed
		}
		// closes an ancestor of the replaced element
		return skipImplied
	}
	return skipContinue
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// impliesEnd reports whether a start tag implicitly closes target.
func impliesEnd(target, tag string) bool {
	switch target {
	case "p":
		switch tag {
		case "address", "article", "aside", "blockquote", "details", "div", "dl",
			"fieldset", "figcaption", "figure", "footer", "form", "h1", "h2", "h3",
			"h4", "h5", "h6", "header", "hgroup", "hr", "main", "menu", "nav", "ol",
			"p", "pre", "section", "table", "ul":
			return true
		}
	case "li", "option", "dt", "dd", "a":
		return tag == target
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return isHeading(tag)
	}
	return false
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
