package rewrite

// Element is the mutable view of a matched element handed to actions.
type Element interface {
	// SetInnerContent replaces the element's children with text.
	// The text is escaped, never interpreted as markup.
	SetInnerContent(text string)
	SetAttribute(name, value string)
}

type Action func(Element)

type Rule struct {
	Selector string
	Actions  []Action
}

func SetInnerContent(text string) Action {
	return func(e Element) { e.SetInnerContent(text) }
}

func SetAttribute(name, value string) Action {
	return func(e Element) { e.SetAttribute(name, value) }
}

// DefaultRules returns the landing-page rewrites served on every variant.
func DefaultRules() []Rule {
	return []Rule{
		{Selector: "title", Actions: []Action{SetInnerContent("Hello World!")}},
		{Selector: "h1#title", Actions: []Action{SetInnerContent("Hello!")}},
		{Selector: "p#description", Actions: []Action{SetInnerContent("Happy hacking.")}},
		{Selector: "a#url", Actions: []Action{
			SetInnerContent("Check out my Github"),
			SetAttribute("href", "https://github.com/KaiPrince"),
		}},
	}
}
