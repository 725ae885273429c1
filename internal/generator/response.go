package generator

import (
	"regexp"
	"strings"
)

// File is one file of a model response.
type File struct {
	Name    string
	Content string
}

var (
	fileMarker = regexp.MustCompile(`###\s*FILE:\s*`)
	fenceOpen  = regexp.MustCompile("(?m)^```(?:python|bash|sh)?\\s*\\n?")
	fenceClose = regexp.MustCompile("(?m)\\n?```\\s*$")
)

// StripCodeFences removes markdown code fences and surrounding space.
func StripCodeFences(code string) string {
	code = fenceOpen.ReplaceAllString(code, "")
	code = fenceClose.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}

// ParseResponse splits a response on "### FILE: name" markers. Text before
// the first marker is dropped. A response without markers is taken whole as
// <taskName>_env_cfg.py.
func ParseResponse(response, taskName string) []File {
	parts := fileMarker.Split(response, -1)
	if len(parts) <= 1 {
		return []File{{Name: taskName + "_env_cfg.py", Content: StripCodeFences(response)}}
	}

	files := make([]File, 0, len(parts)-1)
	for _, part := range parts[1:] {
		name, content, _ := strings.Cut(strings.TrimSpace(part), "\n")
		files = append(files, File{
			Name:    strings.TrimRight(strings.TrimSpace(name), ":"),
			Content: StripCodeFences(content),
		})
	}
	return files
}

// ExtractEnvCfg returns the first file whose name mentions env_cfg, or the
// whole fence-stripped response when none does.
func ExtractEnvCfg(response, taskName string) string {
	for _, f := range ParseResponse(response, taskName) {
		if strings.Contains(strings.ToLower(f.Name), "env_cfg") {
			return f.Content
		}
	}
	return StripCodeFences(response)
}
