// Package pyast wraps tree-sitter's Python grammar with the small set of
// queries the validator and normalizer need. Parsers are pooled: a
// sitter.Parser is not safe for concurrent use, so every Parse borrows one.
package pyast

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var parserPool = sync.Pool{
	New: func() interface{} {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	},
}

// Tree is a parsed Python module together with its source bytes.
type Tree struct {
	src  []byte
	tree *sitter.Tree
}

// Parse parses src. Syntax problems do not produce an error (tree-sitter
// always returns a tree); use SyntaxError to inspect them. An error is
// returned only when the parser itself fails, e.g. on cancellation.
func Parse(ctx context.Context, src string) (*Tree, error) {
	p := parserPool.Get().(*sitter.Parser)
	defer parserPool.Put(p)

	b := []byte(src)
	tree, err := p.ParseCtx(ctx, nil, b)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	return &Tree{src: b, tree: tree}, nil
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// Root returns the module node.
func (t *Tree) Root() *sitter.Node { return t.tree.RootNode() }

// Source returns the parsed bytes.
func (t *Tree) Source() []byte { return t.src }

// Text returns the source text covered by n.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(t.src[n.StartByte():n.EndByte()])
}

// SyntaxError describes the first syntax problem found in a tree.
type SyntaxError struct {
	Line   int // 1-based
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError at line %d: %s", e.Line, e.Reason)
}

// SyntaxError returns the first ERROR or MISSING node in document order. A
// tree without either is checked for constructs the grammar accepts but
// Python 3 rejects. It returns nil when the module parses cleanly.
func (t *Tree) SyntaxError() *SyntaxError {
	root := t.Root()
	if !root.HasError() {
		return t.strictError()
	}
	var found *SyntaxError
	walkAll(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		switch {
		case n.IsMissing():
			found = &SyntaxError{
				Line:   int(n.StartPoint().Row) + 1,
				Reason: fmt.Sprintf("expected '%s'", n.Type()),
			}
			return false
		case n.Type() == "ERROR":
			found = &SyntaxError{
				Line:   int(n.StartPoint().Row) + 1,
				Reason: describeError(t, n),
			}
			return false
		}
		// Only descend into subtrees that contain the problem.
		return n.HasError()
	})
	if found == nil {
		// HasError was set but no node was isolated; report the module start.
		found = &SyntaxError{Line: int(root.StartPoint().Row) + 1, Reason: "invalid syntax"}
	}
	return found
}

func describeError(t *Tree, n *sitter.Node) string {
	text := strings.TrimSpace(t.Text(n))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return "invalid syntax"
	}
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return fmt.Sprintf("invalid syntax near %q", text)
}

// walkAll visits every node, named or not, in document order. fn returning
// false skips the node's children.
func walkAll(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkAll(n.Child(i), fn)
	}
}

// Walk visits every named node under n (n included) in document order.
// fn returning false skips the node's children.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), fn)
	}
}

// TopLevel returns the module's direct statements, with decorated
// definitions unwrapped to the definition they decorate.
func (t *Tree) TopLevel() []*sitter.Node {
	root := t.Root()
	out := make([]*sitter.Node, 0, root.NamedChildCount())
	for i := 0; i < int(root.NamedChildCount()); i++ {
		out = append(out, Unwrap(root.NamedChild(i)))
	}
	return out
}

// Unwrap returns the definition inside a decorated_definition, or n itself.
func Unwrap(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "decorated_definition" {
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return n
}

// ClassNames returns the names of the top-level classes.
func (t *Tree) ClassNames() []string {
	var names []string
	for _, n := range t.TopLevel() {
		if n.Type() != "class_definition" {
			continue
		}
		names = append(names, t.Text(n.ChildByFieldName("name")))
	}
	return names
}

// FunctionNames returns the names of every function or method in the module.
func (t *Tree) FunctionNames() []string {
	var names []string
	Walk(t.Root(), func(n *sitter.Node) bool {
		if n.Type() == "function_definition" {
			names = append(names, t.Text(n.ChildByFieldName("name")))
		}
		return true
	})
	return names
}

// StringBody returns the text of a string literal node without its prefix
// letters and quotes. Interpolations in f-strings are kept verbatim.
func (t *Tree) StringBody(n *sitter.Node) string {
	s := t.Text(n)
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) {
			s = strings.TrimPrefix(s, q)
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}
