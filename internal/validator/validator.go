// Package validator checks generated Isaac Lab environment configs for the
// structural contract the framework needs to load them. It never executes
// the code; all checks run on the tree-sitter parse tree.
package validator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"robospec/internal/apisurface"
	"robospec/internal/isaaclab"
	"robospec/internal/logging"
	"robospec/internal/pyast"
)

// Error messages for the structural checks.
const (
	ErrMissingEnvCfg     = "Missing environment config class: no class with 'EnvCfg' in name found"
	ErrMissingRewardsCfg = "Missing rewards config: no class with 'RewardsCfg' in name found"
	ErrMissingPostInit   = "Missing __post_init__ method"
	ErrMissingImports    = "Missing Isaac Lab imports: no imports from 'isaaclab' or 'omni.isaac' found"
	ErrLiteralNucleusDir = "Literal ISAACLAB_NUCLEUS_DIR string found; use the pre-built robot config " +
		"(e.g. CARTPOLE_CFG.replace(prim_path='{ENV_REGEX_NS}/Robot')) instead"

	// UnknownSymbolPrefix starts every whitelist error.
	UnknownSymbolPrefix = "Unknown MDP function"

	WarnTaskMDPImport = "Task-specific mdp import found (isaaclab_tasks.*.mdp). " +
		"Use 'import isaaclab.envs.mdp as mdp' for external configs."
)

// Verdict is the result of one validation. Valid is true iff Errors is empty.
type Verdict struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// HasUnknownSymbol reports whether any error came from the whitelist check.
func (v Verdict) HasUnknownSymbol() bool {
	for _, e := range v.Errors {
		if strings.HasPrefix(e, UnknownSymbolPrefix) {
			return true
		}
	}
	return false
}

func (v *Verdict) fail(msg string) {
	v.Errors = append(v.Errors, msg)
}

// SymbolSource supplies the approved API surface.
type SymbolSource interface {
	Load() apisurface.Surface
}

// Validator runs the ordered structural checks. It is safe for concurrent use.
type Validator struct {
	symbols SymbolSource
}

// New returns a Validator. A nil source disables the whitelist check.
func New(symbols SymbolSource) *Validator {
	return &Validator{symbols: symbols}
}

// Validate checks code and returns a fresh Verdict. A parse failure returns
// a single error and skips every other check.
func (v *Validator) Validate(code string) Verdict {
	verdict := v.validate(code)
	verdict.Valid = len(verdict.Errors) == 0
	logging.ValidatorDebug("validated %d bytes: %d errors, %d warnings", len(code), len(verdict.Errors), len(verdict.Warnings))
	return verdict
}

func (v *Validator) validate(code string) Verdict {
	var verdict Verdict

	tree, err := pyast.Parse(context.Background(), code)
	if err != nil {
		verdict.fail(fmt.Sprintf("SyntaxError at line 1: %v", err))
		return verdict
	}
	defer tree.Close()

	if se := tree.SyntaxError(); se != nil {
		verdict.fail(se.Error())
		return verdict
	}

	classes := tree.ClassNames()
	if !anyContains(classes, isaaclab.EnvCfgMarker) {
		verdict.fail(ErrMissingEnvCfg)
	}
	if !anyContains(classes, isaaclab.RewardsCfgMarker) {
		verdict.fail(ErrMissingRewardsCfg)
	}

	hasPostInit := false
	for _, name := range tree.FunctionNames() {
		if name == isaaclab.PostInitHook {
			hasPostInit = true
			break
		}
	}
	if !hasPostInit {
		verdict.fail(ErrMissingPostInit)
	}

	if !hasRootImport(tree) {
		verdict.fail(ErrMissingImports)
	}

	if v.symbols != nil {
		if surface := v.symbols.Load(); !surface.Empty() {
			verdict.Errors = append(verdict.Errors, checkSymbols(tree, surface)...)
		}
	}

	if hasLiteralNucleusDir(tree) {
		verdict.fail(ErrLiteralNucleusDir)
	}

	if hasTaskMDPAlias(tree) {
		verdict.Warnings = append(verdict.Warnings, WarnTaskMDPImport)
	}

	verdict.Warnings = append(verdict.Warnings, weightWarnings(tree)...)
	return verdict
}

func anyContains(names []string, marker string) bool {
	for _, n := range names {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return false
}

func hasRootImport(tree *pyast.Tree) bool {
	for _, imp := range tree.Imports() {
		for _, mod := range tree.ImportModules(imp) {
			if isaaclab.ReferencesRoot(mod) {
				return true
			}
		}
	}
	return false
}

func hasLiteralNucleusDir(tree *pyast.Tree) bool {
	found := false
	pyast.Walk(tree.Root(), func(n *sitter.Node) bool {
		if found {
			return false
		}
		if n.Type() == "string" {
			if strings.HasPrefix(tree.StringBody(n), isaaclab.ReservedPathToken+"/") {
				found = true
			}
			return false
		}
		return true
	})
	return found
}

// hasTaskMDPAlias reports whether the alias is bound to a task-scoped mdp
// module, either as "import isaaclab_tasks...mdp as mdp" or
// "from isaaclab_tasks... import mdp".
func hasTaskMDPAlias(tree *pyast.Tree) bool {
	for _, imp := range tree.Imports() {
		for _, b := range tree.Bindings(imp) {
			if b.Local == isaaclab.Alias && isaaclab.IsTaskMDP(b.Path()) {
				return true
			}
		}
	}
	return false
}

func weightWarnings(tree *pyast.Tree) []string {
	var warnings []string
	pyast.Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Type() != "keyword_argument" || tree.Text(n.ChildByFieldName("name")) != "weight" {
			return true
		}
		value := n.ChildByFieldName("value")
		if value == nil {
			return true
		}
		literal, sign := value, ""
		if value.Type() == "unary_operator" && tree.Text(value.ChildByFieldName("operator")) == "-" {
			literal, sign = value.ChildByFieldName("argument"), "-"
		}
		if literal == nil || (literal.Type() != "integer" && literal.Type() != "float") {
			return true
		}
		text := tree.Text(literal)
		if mag, ok := parseNumber(text); ok && mag > isaaclab.WeightThreshold {
			warnings = append(warnings, fmt.Sprintf("Unusually large reward weight: %s%s", sign, text))
		}
		return true
	})
	return warnings
}

// parseNumber parses a Python int or float literal into its magnitude.
func parseNumber(lit string) (float64, bool) {
	s := strings.ReplaceAll(lit, "_", "")
	if strings.HasSuffix(s, "j") || strings.HasSuffix(s, "J") {
		return 0, false // complex literals carry no usable weight
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return math.Abs(float64(i)), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return math.Abs(f), true
	}
	return 0, false
}
