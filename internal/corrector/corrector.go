// Package corrector replaces MDP names that generators are known to invent
// with the real Isaac Lab names.
package corrector

import (
	"fmt"
	"regexp"

	"robospec/internal/isaaclab"
	"robospec/internal/logging"
)

// Rule maps an invented name to the real one.
type Rule struct {
	Wrong string
	Right string
}

// Table is the fixed substitution table, applied in order. No Right name
// appears as a Wrong name, which keeps Correct idempotent.
var Table = []Rule{
	{"joint_pos_l2", "joint_pos_target_l2"},
	{"joint_pos_l1", "joint_deviation_l1"},
	{"joint_vel_l2_asset", "joint_vel_l2"},
	{"action_rate_l2_norm", "action_rate_l2"},
	{"track_lin_vel_xy", "track_lin_vel_xy_exp"},
	{"track_ang_vel_z", "track_ang_vel_z_exp"},
	{"base_lin_vel_z_l2", "lin_vel_z_l2"},
	{"base_ang_vel_xy_l2", "ang_vel_xy_l2"},
	{"position_error_tanh", "position_command_error_tanh"},
	{"position_error", "position_command_error"},
	{"joint_pos_target_l1", "joint_pos_target_l2"},
	{"action_rate_l1", "action_rate_l2"},
	{"feet_air_time_biped_reward", "feet_air_time"},
}

type compiledRule struct {
	Rule
	re          *regexp.Regexp
	replacement string
}

var compiled = compile(Table)

func compile(rules []Rule) []compiledRule {
	out := make([]compiledRule, len(rules))
	for i, r := range rules {
		out[i] = compiledRule{
			Rule:        r,
			re:          regexp.MustCompile(`\b` + isaaclab.Alias + `\.` + regexp.QuoteMeta(r.Wrong) + `\b`),
			replacement: isaaclab.Alias + "." + r.Right,
		}
	}
	return out
}

// Correct applies every table rule to code. All occurrences of a wrong name
// are replaced; the returned notes list each rule that fired.
func Correct(code string) (string, []string) {
	var notes []string
	for _, r := range compiled {
		if !r.re.MatchString(code) {
			continue
		}
		code = r.re.ReplaceAllLiteralString(code, r.replacement)
		notes = append(notes, fmt.Sprintf("%s.%s -> %s.%s", isaaclab.Alias, r.Wrong, isaaclab.Alias, r.Right))
		logging.CorrectorDebug("corrected %s.%s -> %s.%s", isaaclab.Alias, r.Wrong, isaaclab.Alias, r.Right)
	}
	return code, notes
}
