// Package normalizer rewrites the mechanical defects generators keep making
// in Isaac Lab env configs: task-scoped mdp imports, a missing robot config
// import and inline robot definitions. It needs no network and is a no-op for
// categories it does not know.
package normalizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"robospec/internal/category"
	"robospec/internal/isaaclab"
	"robospec/internal/logging"
	"robospec/internal/pyast"
)

// Fix notes.
const (
	NoteLiteralNucleusDir = "Warning: literal ISAACLAB_NUCLEUS_DIR string found in code"
)

// importRewrite is one shape of task-scoped mdp import.
type importRewrite struct {
	re   *regexp.Regexp
	note string
}

// Each pattern captures the statement's indent and consumes its trailing
// newline so a deleted statement leaves no blank line behind. A plain import
// only matches when it binds nothing but the alias.
var importRewrites = []importRewrite{
	{
		re:   regexp.MustCompile(`(?m)^([ \t]*)import[ \t]+isaaclab_tasks\.\S+\.mdp[ \t]+as[ \t]+mdp[ \t]*(?:#[^\n]*)?(?:\n|$)`),
		note: "Replaced task-specific mdp import with isaaclab.envs.mdp",
	},
	{
		re:   regexp.MustCompile(`(?m)^([ \t]*)from[ \t]+isaaclab_tasks\.\S+\.mdp[ \t]+import[ \t]*\([^)]*\)[^\n]*\n?`),
		note: "Replaced task-specific from-import mdp block with isaaclab.envs.mdp",
	},
	{
		re:   regexp.MustCompile(`(?m)^([ \t]*)from[ \t]+isaaclab_tasks\.\S+\.mdp[ \t]+import[ \t]+[^\n(]+\n?`),
		note: "Replaced task-specific from-import mdp line with isaaclab.envs.mdp",
	},
	{
		re:   regexp.MustCompile(`(?m)^([ \t]*)from[ \t]+isaaclab_tasks\.\S+[ \t]+import[ \t]+mdp[ \t]*(?:#[^\n]*)?(?:\n|$)`),
		note: "Replaced task-specific mdp module import with isaaclab.envs.mdp",
	},
}

var literalNucleusDir = regexp.MustCompile(`["']` + isaaclab.ReservedPathToken + `/`)

// Normalizer applies the category-driven rewrites. It is safe for
// concurrent use.
type Normalizer struct {
	table *category.Table
}

// New returns a Normalizer over table; nil means category.Default().
func New(table *category.Table) *Normalizer {
	if table == nil {
		table = category.Default()
	}
	return &Normalizer{table: table}
}

// Normalize rewrites code for category cat and lists the fixes it applied.
// Unknown categories return the input unchanged with no fixes. Running
// Normalize on its own output leaves the code unchanged.
func (n *Normalizer) Normalize(code, cat string) (string, []string) {
	md, err := n.table.Lookup(cat)
	if err != nil {
		logging.NormalizerDebug("skipping normalization: %v", err)
		return code, nil
	}

	var fixes []string
	result := code

	for _, rw := range importRewrites {
		var changed bool
		result, changed = canonicalizeImports(result, rw.re)
		if changed {
			fixes = append(fixes, rw.note)
		}
	}

	if !strings.Contains(result, md.Robot.Name) {
		if injected, ok := injectRobotImport(result, md.Robot.Import); ok {
			result = injected
			fixes = append(fixes, fmt.Sprintf("Injected robot config import: %s", md.Robot.Name))
		}
	}

	if replaced, count := replaceRobotAssignments(result, md.Robot); count > 0 {
		result = replaced
		fixes = append(fixes, fmt.Sprintf("Replaced inline robot definition with %s.replace()", md.Robot.Name))
	}

	if literalNucleusDir.MatchString(result) {
		fixes = append(fixes, NoteLiteralNucleusDir)
	}

	logging.NormalizerDebug("normalized for %s: %d fixes", cat, len(fixes))
	return result, fixes
}

// canonicalizeImports rewrites every match of re to the core mdp import, or
// deletes it when the core import is already present elsewhere.
func canonicalizeImports(code string, re *regexp.Regexp) (string, bool) {
	changed := false
	pos := 0
	for pos <= len(code) {
		loc := re.FindStringSubmatchIndex(code[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		indent := code[pos+loc[2] : pos+loc[3]]

		repl := ""
		if !strings.Contains(code[:start]+code[end:], isaaclab.CoreMDPImport) {
			repl = indent + isaaclab.CoreMDPImport
			if strings.HasSuffix(code[start:end], "\n") {
				repl += "\n"
			}
		}
		code = code[:start] + repl + code[end:]
		pos = start + len(repl)
		changed = true
		if repl == "" && start == end {
			break
		}
	}
	return code, changed
}

// injectRobotImport inserts line after the last clean top-level import of a
// non task-scoped isaaclab module. It reports false when there is no anchor.
func injectRobotImport(code, line string) (string, bool) {
	tree, err := pyast.Parse(context.Background(), code)
	if err != nil {
		return code, false
	}
	defer tree.Close()

	var anchor *sitter.Node
	for _, stmt := range tree.TopLevel() {
		if !pyast.IsImport(stmt) || stmt.HasError() {
			continue
		}
		if isaaclab.IsAnchorModule(tree.ImportModule(stmt)) {
			anchor = stmt
		}
	}
	if anchor == nil {
		return code, false
	}

	// Insert at the end of the anchor's last line so trailing comments stay
	// with their statement.
	at := int(anchor.EndByte())
	if nl := strings.IndexByte(code[at:], '\n'); nl >= 0 {
		at += nl
	} else {
		at = len(code)
	}
	return code[:at] + "\n\n" + line + code[at:], true
}
