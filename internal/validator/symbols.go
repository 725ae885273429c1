package validator

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"robospec/internal/apisurface"
	"robospec/internal/isaaclab"
	"robospec/internal/pyast"
)

// CheckSymbols returns one error per distinct mdp.<name> access whose name
// is not in surface, in order of first appearance. Only the segment right
// after the alias is checked: mdp.Cfg.Nested validates Cfg alone.
// Unparseable code yields nil; the parse check reports it.
func CheckSymbols(code string, surface apisurface.Surface) []string {
	tree, err := pyast.Parse(context.Background(), code)
	if err != nil {
		return nil
	}
	defer tree.Close()
	if tree.SyntaxError() != nil {
		return nil
	}
	return checkSymbols(tree, surface)
}

func checkSymbols(tree *pyast.Tree, surface apisurface.Surface) []string {
	var errs []string
	seen := make(map[string]bool)

	pyast.Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Type() != "attribute" {
			return true
		}
		obj := n.ChildByFieldName("object")
		if obj == nil || obj.Type() != "identifier" || tree.Text(obj) != isaaclab.Alias {
			return true
		}
		name := tree.Text(n.ChildByFieldName("attribute"))
		if name == "" || seen[name] {
			return true
		}
		seen[name] = true
		if surface.Has(name) {
			return true
		}

		msg := fmt.Sprintf("%s: %s.%s.", UnknownSymbolPrefix, isaaclab.Alias, name)
		if best, ok := surface.Closest(name, apisurface.DefaultCutoff); ok {
			msg += fmt.Sprintf(" Did you mean: %s.%s?", isaaclab.Alias, best)
		}
		errs = append(errs, msg)
		return true
	})
	return errs
}
