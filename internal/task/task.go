// Package task describes the structured request a config is generated from.
package task

import (
	"fmt"
	"regexp"
	"strings"

	"robospec/internal/category"
)

// MaxEpisodeLength is the longest episode, in seconds, a spec may request.
const MaxEpisodeLength = 20.0

// DefaultNumEnvs is the parallel environment count used when a spec sets none.
const DefaultNumEnvs = 4096

// Spec is a structured task description.
type Spec struct {
	Category      string   `yaml:"category" json:"category"`
	Robot         string   `yaml:"robot" json:"robot"`
	Description   string   `yaml:"description" json:"description"`
	Objectives    []string `yaml:"objectives" json:"objectives"`
	Constraints   []string `yaml:"constraints" json:"constraints"`
	Difficulty    string   `yaml:"difficulty" json:"difficulty"`
	EpisodeLength float64  `yaml:"episode_length_s" json:"episode_length_s"`
	NumEnvs       int      `yaml:"num_envs" json:"num_envs"`
	Notes         string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Normalize fills defaults from the category table: a missing or too long
// episode falls back to the category default, difficulty to "medium" and
// NumEnvs to 4096. The category must exist.
func (s Spec) Normalize(tbl *category.Table) (Spec, error) {
	md, err := tbl.Lookup(s.Category)
	if err != nil {
		return s, err
	}
	if s.Robot == "" {
		return s, fmt.Errorf("task spec: robot is required")
	}
	if s.EpisodeLength <= 0 || s.EpisodeLength > MaxEpisodeLength {
		s.EpisodeLength = md.EpisodeLength
		if s.EpisodeLength == 0 {
			s.EpisodeLength = 5.0
		}
	}
	if s.Difficulty == "" {
		s.Difficulty = "medium"
	}
	if s.NumEnvs <= 0 {
		s.NumEnvs = DefaultNumEnvs
	}
	return s, nil
}

var nonModuleChars = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeModuleName turns name into a valid Python module name.
func SanitizeModuleName(name string) string {
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	name = nonModuleChars.ReplaceAllString(name, "")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// Name derives the module name for a spec, e.g. franka_panda_reach.
func Name(s Spec) string {
	cat := s.Category
	if i := strings.IndexByte(cat, '_'); i >= 0 {
		cat = cat[i+1:]
	}
	return SanitizeModuleName(s.Robot + "_" + cat)
}

// ID derives the gymnasium task id, e.g. RoboSpec-Reach-Franka-v0.
func ID(tbl *category.Table, s Spec) string {
	md, err := tbl.Lookup(s.Category)
	if err != nil || md.TaskID == "" {
		return "RoboSpec-Custom-v0"
	}
	return strings.ReplaceAll(md.TaskID, "{robot}", tbl.RobotLabel(s.Robot))
}
