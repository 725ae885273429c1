// Package packaging writes an accepted or best-effort config as an
// installable Isaac Lab task package.
package packaging

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"robospec/internal/category"
	"robospec/internal/isaaclab"
	"robospec/internal/logging"
	"robospec/internal/pyast"
	"robospec/internal/repair"
	"robospec/internal/task"
)

// FallbackEnvCfgClass is used when the code declares no EnvCfg class.
const FallbackEnvCfgClass = "EnvCfg"

// File names inside a package directory.
const (
	InitFile       = "__init__.py"
	TrainFile      = "train.py"
	ValidationFile = "VALIDATION.md"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Package is the set of files for one task.
type Package struct {
	TaskName    string
	TaskID      string
	EnvCfgClass string
	EnvCfg      string // <task>_env_cfg.py
	Init        string // __init__.py
	Train       string // train.py, empty for categories without a training setup
	Report      string // VALIDATION.md
}

// CfgModule is the env config module name without extension.
func (p *Package) CfgModule() string { return p.TaskName + "_env_cfg" }

// Files maps file names to contents.
func (p *Package) Files() map[string]string {
	files := map[string]string{
		p.CfgModule() + ".py": p.EnvCfg,
		InitFile:             p.Init,
		ValidationFile:       p.Report,
	}
	if p.Train != "" {
		files[TrainFile] = p.Train
	}
	return files
}

// FindEnvCfgClass returns the first top-level class whose name contains
// EnvCfg, or FallbackEnvCfgClass.
func FindEnvCfgClass(ctx context.Context, code string) string {
	tree, err := pyast.Parse(ctx, code)
	if err != nil {
		return FallbackEnvCfgClass
	}
	defer tree.Close()
	for _, name := range tree.ClassNames() {
		if strings.Contains(name, isaaclab.EnvCfgMarker) {
			return name
		}
	}
	return FallbackEnvCfgClass
}

type initData struct {
	TaskID      string
	CfgModule   string
	EnvCfgClass string
	Agents      category.Agents
}

type trainData struct {
	TaskID        string
	TaskName      string
	CfgModule     string
	EnvCfgClass   string
	Framework     string
	NumEnvs       int
	MaxIterations int
}

type reportData struct {
	TaskID         string
	Category       string
	State          repair.State
	RunID          string
	RepairRequests int
	Errors         []string
	Warnings       []string
	Fixes          []string
	Corrections    []string
}

// Build renders the package for spec from the outcome of a repair run.
func Build(ctx context.Context, tbl *category.Table, spec task.Spec, out *repair.Outcome) (*Package, error) {
	if tbl == nil {
		tbl = category.Default()
	}
	p := &Package{
		TaskName:    task.Name(spec),
		TaskID:      task.ID(tbl, spec),
		EnvCfgClass: FindEnvCfgClass(ctx, out.Code),
		EnvCfg:      ensureNewline(out.Code),
	}

	md, mdErr := tbl.Lookup(spec.Category)
	var agents category.Agents
	if mdErr == nil {
		agents = md.Agents
	}

	var err error
	p.Init, err = execute("init.py.tmpl", initData{
		TaskID:      p.TaskID,
		CfgModule:   p.CfgModule(),
		EnvCfgClass: p.EnvCfgClass,
		Agents:      agents,
	})
	if err != nil {
		return nil, err
	}

	if mdErr == nil && md.Framework != "" {
		numEnvs := spec.NumEnvs
		if numEnvs <= 0 {
			numEnvs = task.DefaultNumEnvs
		}
		p.Train, err = execute("train.py.tmpl", trainData{
			TaskID:        p.TaskID,
			TaskName:      p.TaskName,
			CfgModule:     p.CfgModule(),
			EnvCfgClass:   p.EnvCfgClass,
			Framework:     md.Framework,
			NumEnvs:       numEnvs,
			MaxIterations: md.MaxIterations,
		})
		if err != nil {
			return nil, err
		}
	}

	p.Report, err = execute("validation.md.tmpl", reportData{
		TaskID:         p.TaskID,
		Category:       out.Category,
		State:          out.State,
		RunID:          out.RunID,
		RepairRequests: out.RepairRequests,
		Errors:         out.Verdict.Errors,
		Warnings:       out.Verdict.Warnings,
		Fixes:          out.Fixes,
		Corrections:    out.Corrections,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Write stores the package under root/<task name> and returns that directory.
func (p *Package) Write(root string) (string, error) {
	dir := filepath.Join(root, p.TaskName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create package dir: %w", err)
	}
	for name, content := range p.Files() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	logging.Packaging("wrote %s (%s) to %s", p.TaskID, p.EnvCfgClass, dir)
	return dir, nil
}

func execute(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
