// Package rewrite applies a declarative table of element rewrites to HTML.
//
// A Rule pairs a CSS selector with actions. Actions only see the Element
// capability (set inner content, set attribute), so the same table runs on
// either engine:
//
//   - StreamEngine tokenizes the body as it arrives and copies untouched
//     markup byte for byte. Selectors are limited to compound
//     tag/#id/.class forms.
//   - DOMEngine parses the whole document with goquery and accepts any CSS
//     selector cascadia understands. Output is re-serialised.
//
// Elements that match no rule, and documents where nothing matches, pass
// through unchanged. A missing match is never an error.
package rewrite
