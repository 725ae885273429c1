// Package knowledge assembles the reference material sent with every
// generation and repair prompt.
//
// Selection is deterministic: every API reference file, the robot
// specifications, the reward patterns and the example configs the category
// table names for the task, in that order. Missing files are skipped.
package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"robospec/internal/category"
	"robospec/internal/logging"
)

// APIReferenceFiles are read from <dir>/api_reference for every category.
var APIReferenceFiles = []string{
	"mdp_rewards.md",
	"mdp_observations.md",
	"mdp_actions.md",
	"mdp_terminations.md",
	"mdp_events.md",
}

// Section headers.
const (
	HeaderAPI      = "=== ISAAC LAB API REFERENCE ===\n"
	HeaderRobots   = "=== ROBOT SPECIFICATIONS ===\n"
	HeaderPatterns = "=== REWARD ENGINEERING PATTERNS ===\n"
	HeaderExamples = "=== WORKING EXAMPLE CONFIGURATIONS ==="
	examplesNote   = "Follow these patterns exactly. These are real, working Isaac Lab configs.\n"
)

// Builder reads a knowledge directory laid out as
//
//	api_reference/*.md
//	robots.json
//	reward_patterns.md
//	examples/*.py
type Builder struct {
	dir   string
	table *category.Table
}

// NewBuilder returns a Builder over dir. A nil table means category.Default().
func NewBuilder(dir string, table *category.Table) *Builder {
	if table == nil {
		table = category.Default()
	}
	return &Builder{dir: dir, table: table}
}

// Dir returns the knowledge directory.
func (b *Builder) Dir() string { return b.dir }

// BuildContext returns the prompt context for a category. Unknown
// categories get the shared sections without examples.
func (b *Builder) BuildContext(cat string) (string, error) {
	var sections []string

	sections = append(sections, HeaderAPI)
	for _, name := range APIReferenceFiles {
		text, ok, err := b.read("api_reference", name)
		if err != nil {
			return "", err
		}
		if ok {
			sections = append(sections, "--- "+name+" ---", text, "")
		}
	}

	if text, ok, err := b.read("robots.json"); err != nil {
		return "", err
	} else if ok {
		sections = append(sections, HeaderRobots, text, "")
	}

	if text, ok, err := b.read("reward_patterns.md"); err != nil {
		return "", err
	} else if ok {
		sections = append(sections, HeaderPatterns, text, "")
	}

	var examples []string
	if md, err := b.table.Lookup(cat); err == nil {
		examples = md.Examples
	} else {
		logging.KnowledgeDebug("no examples for %s: %v", cat, err)
	}
	if len(examples) > 0 {
		sections = append(sections, HeaderExamples, examplesNote)
		for _, name := range examples {
			text, ok, err := b.read("examples", name)
			if err != nil {
				return "", err
			}
			if ok {
				sections = append(sections, "--- "+name+" ---", "```python", text, "```\n")
			}
		}
	}

	out := strings.Join(sections, "\n")
	logging.KnowledgeDebug("built context for %s: %d bytes", cat, len(out))
	return out, nil
}

// read returns the file under dir, reporting false when it does not exist.
func (b *Builder) read(parts ...string) (string, bool, error) {
	path := filepath.Join(append([]string{b.dir}, parts...)...)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read knowledge file %s: %w", path, err)
	}
	return string(data), true, nil
}
