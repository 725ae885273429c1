// Package category holds the static per-category facts: training framework,
// canonical robot config, agent entry points and approved MDP functions.
package category

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var embedded []byte

// ErrUnknown is returned by Lookup for a category not in the table.
var ErrUnknown = errors.New("unknown task category")

// Robot describes the pre-built robot config a category must use.
type Robot struct {
	Import     string `yaml:"import"`     // import line, e.g. "from isaaclab_assets.robots.cartpole import CARTPOLE_CFG"
	Name       string `yaml:"name"`       // object name, e.g. CARTPOLE_CFG
	Derivation string `yaml:"derivation"` // scene field value, e.g. CARTPOLE_CFG.replace(prim_path=...)
}

// Agents holds agent config entry points per RL framework. Empty means the
// framework is not supported for the category.
type Agents struct {
	RLGames string `yaml:"rl_games,omitempty"`
	RSLRL   string `yaml:"rsl_rl,omitempty"`
	SKRL    string `yaml:"skrl,omitempty"`
}

// Approved lists the MDP functions a category's configs should use.
type Approved struct {
	Rewards      []string `yaml:"rewards"`
	Observations []string `yaml:"observations"`
	Terminations []string `yaml:"terminations"`
	Events       []string `yaml:"events"`
	Actions      []string `yaml:"actions"`
	Commands     []string `yaml:"commands"`
}

// Section is one named group of approved functions.
type Section struct {
	Name  string
	Names []string
}

// Sections returns the approved groups in manager order.
func (a Approved) Sections() []Section {
	return []Section{
		{"rewards", a.Rewards},
		{"observations", a.Observations},
		{"terminations", a.Terminations},
		{"events", a.Events},
		{"actions", a.Actions},
		{"commands", a.Commands},
	}
}

// All returns every approved name.
func (a Approved) All() []string {
	var out []string
	for _, s := range a.Sections() {
		out = append(out, s.Names...)
	}
	return out
}

// Metadata is the read-only description of one category.
type Metadata struct {
	Key           string   `yaml:"-"`
	Framework     string   `yaml:"framework"`
	MaxIterations int      `yaml:"max_iterations"`
	EpisodeLength float64  `yaml:"episode_length_s"`
	TaskID        string   `yaml:"task_id"` // may contain {robot}
	Robot         Robot    `yaml:"robot"`
	Agents        Agents   `yaml:"agents"`
	Approved      Approved `yaml:"approved"`
	Examples      []string `yaml:"examples"`
}

// Table maps category keys to metadata.
type Table struct {
	categories map[string]Metadata
	robots     map[string]string
}

type tableFile struct {
	Robots     map[string]string   `yaml:"robots"`
	Categories map[string]Metadata `yaml:"categories"`
}

// Default returns the table compiled into the binary.
func Default() *Table {
	t, err := Parse(embedded)
	if err != nil {
		panic(err) // embedded asset is validated by tests
	}
	return t
}

// Load reads a category table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a category table and checks required fields.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse category table: %w", err)
	}
	t := &Table{categories: make(map[string]Metadata, len(f.Categories)), robots: f.Robots}
	for key, md := range f.Categories {
		md.Key = key
		if md.Robot.Name == "" || md.Robot.Import == "" || md.Robot.Derivation == "" {
			return nil, fmt.Errorf("category %s: robot import, name and derivation are required", key)
		}
		if !strings.Contains(md.Robot.Import, md.Robot.Name) || !strings.Contains(md.Robot.Derivation, md.Robot.Name) {
			return nil, fmt.Errorf("category %s: robot import and derivation must reference %s", key, md.Robot.Name)
		}
		t.categories[key] = md
	}
	return t, nil
}

// Lookup returns the metadata for key, or ErrUnknown.
func (t *Table) Lookup(key string) (Metadata, error) {
	md, ok := t.categories[key]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %q", ErrUnknown, key)
	}
	return md, nil
}

// Keys returns the category keys in lexical order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.categories))
	for k := range t.categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RobotLabel returns the display label used in task ids for a robot key.
func (t *Table) RobotLabel(robot string) string {
	if label, ok := t.robots[robot]; ok {
		return label
	}
	return "Robot"
}

// Robots returns the known robot keys in lexical order.
func (t *Table) Robots() []string {
	keys := make([]string, 0, len(t.robots))
	for k := range t.robots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
