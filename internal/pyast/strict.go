package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// The tree-sitter grammar is more permissive than CPython: it keeps Python 2
// statements and does not enforce indentation levels or a few target and
// argument rules. strictError rejects those.
func (t *Tree) strictError() *SyntaxError {
	var found *SyntaxError
	Walk(t.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		found = t.checkNode(n)
		return found == nil
	})
	return found
}

func (t *Tree) checkNode(n *sitter.Node) *SyntaxError {
	switch n.Type() {
	case "print_statement":
		return errorAt(n, "Missing parentheses in call to 'print'")
	case "exec_statement":
		return errorAt(n, "Missing parentheses in call to 'exec'")
	case "module":
		return t.checkSuite(n, 0, -1)
	case "block":
		header := -1
		if p := n.Parent(); p != nil && t.startsLine(p) {
			header = int(p.StartPoint().Column)
		}
		return t.checkSuite(n, -1, header)
	case "delete_statement":
		return checkDelete(n)
	case "argument_list":
		return checkArguments(n)
	}
	return nil
}

func errorAt(n *sitter.Node, reason string) *SyntaxError {
	return &SyntaxError{Line: int(n.StartPoint().Row) + 1, Reason: reason}
}

// checkSuite verifies that every statement of a suite starting its own line
// sits on one column. want is that column when already known (0 for the
// module); header is the column of the owning compound statement, which the
// suite must be indented past.
func (t *Tree) checkSuite(n *sitter.Node, want, header int) *SyntaxError {
	var prev *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		stmt := n.NamedChild(i)
		if stmt.Type() == "comment" || !t.startsLine(stmt) {
			continue
		}
		col := int(stmt.StartPoint().Column)
		switch {
		case want < 0:
			if header >= 0 && col <= header {
				return errorAt(stmt, "expected an indented block")
			}
			want = col
		case col < want:
			return errorAt(stmt, "unindent does not match any outer indentation level")
		case col > want:
			if prev != nil && endsWithBlock(prev) {
				return errorAt(stmt, "unindent does not match any outer indentation level")
			}
			return errorAt(stmt, "unexpected indent")
		}
		prev = stmt
	}
	return nil
}

// endsWithBlock reports whether n's last descendant chain reaches a block,
// i.e. a following line dedents out of it.
func endsWithBlock(n *sitter.Node) bool {
	for n != nil {
		if n.Type() == "block" {
			return true
		}
		count := int(n.NamedChildCount())
		if count == 0 {
			return false
		}
		n = n.NamedChild(count - 1)
	}
	return false
}

// startsLine reports whether only whitespace precedes n on its line.
func (t *Tree) startsLine(n *sitter.Node) bool {
	for i := int(n.StartByte()) - 1; i >= 0; i-- {
		switch t.src[i] {
		case ' ', '\t', '\f':
			continue
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}

func checkDelete(n *sitter.Node) *SyntaxError {
	var bad *sitter.Node
	var visit func(*sitter.Node)
	visit = func(x *sitter.Node) {
		if bad != nil {
			return
		}
		switch x.Type() {
		case "call":
			bad = x
		case "expression_list", "tuple", "list", "parenthesized_expression", "pattern_list", "tuple_pattern", "list_pattern":
			for i := 0; i < int(x.NamedChildCount()); i++ {
				visit(x.NamedChild(i))
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		visit(n.NamedChild(i))
	}
	if bad != nil {
		return errorAt(bad, "cannot delete function call")
	}
	return nil
}

// checkArguments enforces argument order: positional arguments before
// keywords, and no *iterable after **mapping.
func checkArguments(n *sitter.Node) *SyntaxError {
	var keyword, mapping bool
	for i := 0; i < int(n.NamedChildCount()); i++ {
		arg := n.NamedChild(i)
		switch arg.Type() {
		case "comment":
		case "keyword_argument":
			keyword = true
		case "dictionary_splat":
			mapping = true
		case "list_splat":
			if mapping {
				return errorAt(arg, "iterable argument unpacking follows keyword argument unpacking")
			}
		default:
			if mapping {
				return errorAt(arg, "positional argument follows keyword argument unpacking")
			}
			if keyword {
				return errorAt(arg, "positional argument follows keyword argument")
			}
		}
	}
	return nil
}
