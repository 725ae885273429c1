package generator

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"robospec/internal/category"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var (
	systemPrompt   = mustRead("prompts/system.txt")
	generatePrompt = mustParse("generate", "prompts/generate.txt")
	repairPrompt   = mustParse("repair", "prompts/repair.txt")
)

func mustRead(name string) string {
	data, err := promptFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("generator: missing prompt %s: %v", name, err))
	}
	return string(data)
}

func mustParse(name, file string) *template.Template {
	return template.Must(template.New(name).
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(mustRead(file)))
}

// ApprovedHeader opens the per-category approved functions block.
const ApprovedHeader = "APPROVED FUNCTIONS FOR THIS TASK (use ONLY these):"

// FormatApproved renders the approved functions block for a category, one
// line per non-empty section. It returns "" when nothing is approved.
func FormatApproved(a category.Approved) string {
	lines := []string{ApprovedHeader}
	for _, s := range a.Sections() {
		if len(s.Names) == 0 {
			continue
		}
		qualified := make([]string, len(s.Names))
		for i, n := range s.Names {
			qualified[i] = "mdp." + n
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", title(s.Name), strings.Join(qualified, ", ")))
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
