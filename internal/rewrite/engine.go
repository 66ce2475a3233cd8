package rewrite

import (
	"fmt"
	"io"
)

const (
	EngineStream = "stream"
	EngineDOM    = "dom"
)

// Engine rewrites the HTML read from src into dst.
type Engine interface {
	Transform(dst io.Writer, src io.Reader) error
}

// New builds the named engine over rules.
func New(kind string, rules []Rule) (Engine, error) {
	switch kind {
	case EngineStream, "":
		e, err := NewStreamEngine(rules)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineDOM:
		e, err := NewDOMEngine(rules)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown rewrite engine %q", kind)
	}
}
