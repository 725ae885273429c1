package normalizer

import (
	"context"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"robospec/internal/category"
	"robospec/internal/isaaclab"
	"robospec/internal/logging"
	"robospec/internal/pyast"
)

// span is a byte range of code to replace.
type span struct {
	start, end int
}

// replaceRobotAssignments rewrites eligible class-body robot assignments to
// "robot: ArticulationCfg = <derivation>". The parse tree gives each
// assignment's exact extent; a broken tree falls back to a text scan.
func replaceRobotAssignments(code string, robot category.Robot) (string, int) {
	tree, err := pyast.Parse(context.Background(), code)
	if err != nil {
		return code, 0
	}
	var spans []span
	if tree.Root().HasError() {
		logging.NormalizerDebug("parse tree has errors; scanning robot assignments as text")
		spans = scanRobotAssignments(code, robot)
	} else {
		spans = treeRobotAssignments(tree, robot)
	}
	tree.Close()

	if len(spans) == 0 {
		return code, 0
	}
	repl := isaaclab.RobotField + ": ArticulationCfg = " + robot.Derivation

	// Apply back to front so earlier offsets stay valid.
	sort.Slice(spans, func(i, j int) bool { return spans[i].start > spans[j].start })
	for _, s := range spans {
		code = code[:s.start] + repl + code[s.end:]
	}
	return code, len(spans)
}

func treeRobotAssignments(tree *pyast.Tree, robot category.Robot) []span {
	var spans []span
	pyast.Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Type() != "class_definition" {
			return true
		}
		body := n.ChildByFieldName("body")
		if body == nil {
			return false
		}
		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
				continue
			}
			assign := stmt.NamedChild(0)
			if assign.Type() != "assignment" {
				continue
			}
			left := assign.ChildByFieldName("left")
			if left == nil || left.Type() != "identifier" || tree.Text(left) != isaaclab.RobotField {
				continue
			}
			right := assign.ChildByFieldName("right")
			if right == nil || !isPlaceholderValue(tree, right) {
				continue
			}
			if !eligible(tree.Text(right), robot) {
				continue
			}
			spans = append(spans, span{int(assign.StartByte()), int(assign.EndByte())})
		}
		// Nested classes are visited by the walk itself.
		return true
	})
	return spans
}

// isPlaceholderValue reports whether the value is a constructor call or the
// MISSING sentinel.
func isPlaceholderValue(tree *pyast.Tree, n *sitter.Node) bool {
	switch n.Type() {
	case "call":
		return true
	case "identifier":
		return tree.Text(n) == isaaclab.MissingSentinel
	}
	return false
}

func eligible(value string, robot category.Robot) bool {
	return !strings.Contains(value, ".replace(") && !strings.Contains(value, robot.Name)
}

var (
	robotLine = regexp.MustCompile(`(?m)^[ \t]+(robot)[ \t]*(?::[ \t]*[\w.]+[ \t]*)?=[ \t]*`)
	callStart = regexp.MustCompile(`^[A-Za-z_][\w.]*[ \t]*\(`)
)

// scanRobotAssignments is the text fallback for broken trees. It finds
// indented robot assignments and measures each value with a bracket counter
// that skips string literals and comments. Unterminated values are left
// alone.
func scanRobotAssignments(code string, robot category.Robot) []span {
	var spans []span
	for _, m := range robotLine.FindAllStringSubmatchIndex(code, -1) {
		stmtStart, valueStart := m[2], m[1]
		valueEnd, ok := valueExtent(code, valueStart)
		if !ok {
			continue
		}
		value := code[valueStart:valueEnd]
		if !callStart.MatchString(value) && strings.TrimSpace(value) != isaaclab.MissingSentinel {
			continue
		}
		if !eligible(value, robot) {
			continue
		}
		spans = append(spans, span{stmtStart, valueEnd})
	}
	return spans
}

// valueExtent returns the end of the expression starting at start: the
// first newline (or comment) at bracket depth zero, with trailing blanks
// trimmed. It reports false when brackets never balance.
func valueExtent(code string, start int) (int, bool) {
	depth := 0
	i := start
	for i < len(code) {
		c := code[i]
		switch {
		case c == '#':
			if depth == 0 {
				return trimRight(code, start, i), true
			}
			nl := strings.IndexByte(code[i:], '\n')
			if nl < 0 {
				return 0, false
			}
			i += nl
			continue
		case c == '"' || c == '\'':
			end, ok := skipString(code, i)
			if !ok {
				return 0, false
			}
			i = end
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return 0, false
			}
		case c == '\n':
			if depth == 0 {
				return trimRight(code, start, i), true
			}
		}
		i++
	}
	if depth != 0 {
		return 0, false
	}
	return trimRight(code, start, len(code)), true
}

// skipString returns the index just past the string literal opening at i.
func skipString(code string, i int) (int, bool) {
	q := code[i]
	if strings.HasPrefix(code[i:], strings.Repeat(string(q), 3)) {
		delim := strings.Repeat(string(q), 3)
		end := strings.Index(code[i+3:], delim)
		if end < 0 {
			return 0, false
		}
		return i + 3 + end + 3, true
	}
	for j := i + 1; j < len(code); j++ {
		switch code[j] {
		case '\\':
			j++
		case q:
			return j + 1, true
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

func trimRight(code string, start, end int) int {
	for end > start && (code[end-1] == ' ' || code[end-1] == '\t' || code[end-1] == '\r') {
		end--
	}
	return end
}
