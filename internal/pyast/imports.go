package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Binding is one name bound by an import statement.
type Binding struct {
	// Module is the dotted module the statement refers to. For
	// "from a.b import c" it is "a.b".
	Module string
	// Name is the imported member for from-imports, empty otherwise.
	Name string
	// Local is the name bound in the importing scope.
	Local string
}

// Path returns the fully qualified dotted path of the bound object.
func (b Binding) Path() string {
	if b.Name == "" {
		return b.Module
	}
	return b.Module + "." + b.Name
}

// IsImport reports whether n is an import or from-import statement.
func IsImport(n *sitter.Node) bool {
	switch n.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return true
	}
	return false
}

// ImportModule returns the module an import statement refers to. Plain
// imports naming several modules return the first one.
func (t *Tree) ImportModule(n *sitter.Node) string {
	switch n.Type() {
	case "import_from_statement":
		return t.Text(n.ChildByFieldName("module_name"))
	case "import_statement":
		if b := t.Bindings(n); len(b) > 0 {
			return b[0].Module
		}
	}
	return ""
}

// ImportModules returns every module referenced by an import statement.
func (t *Tree) ImportModules(n *sitter.Node) []string {
	switch n.Type() {
	case "import_from_statement":
		return []string{t.Text(n.ChildByFieldName("module_name"))}
	case "import_statement":
		var mods []string
		for _, b := range t.Bindings(n) {
			mods = append(mods, b.Module)
		}
		return mods
	}
	return nil
}

// Bindings lists the names an import statement binds.
func (t *Tree) Bindings(n *sitter.Node) []Binding {
	var out []Binding
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "dotted_name":
				mod := t.Text(c)
				out = append(out, Binding{Module: mod, Local: firstSegment(mod)})
			case "aliased_import":
				out = append(out, Binding{
					Module: t.Text(c.ChildByFieldName("name")),
					Local:  t.Text(c.ChildByFieldName("alias")),
				})
			}
		}
	case "import_from_statement":
		modNode := n.ChildByFieldName("module_name")
		mod := t.Text(modNode)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if modNode != nil && c.StartByte() == modNode.StartByte() {
				continue
			}
			switch c.Type() {
			case "dotted_name":
				name := t.Text(c)
				out = append(out, Binding{Module: mod, Name: name, Local: name})
			case "aliased_import":
				out = append(out, Binding{
					Module: mod,
					Name:   t.Text(c.ChildByFieldName("name")),
					Local:  t.Text(c.ChildByFieldName("alias")),
				})
			}
		}
	}
	return out
}

func firstSegment(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}

// Imports returns every import statement in the module, nested ones
// included, in document order.
func (t *Tree) Imports() []*sitter.Node {
	var out []*sitter.Node
	Walk(t.Root(), func(n *sitter.Node) bool {
		if IsImport(n) {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}
