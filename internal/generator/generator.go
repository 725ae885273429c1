// Package generator turns task specs and repair requests into model prompts
// and model responses into config code.
package generator

import (
	"context"
	"errors"
	"fmt"

	"robospec/internal/category"
	"robospec/internal/llm"
	"robospec/internal/logging"
	"robospec/internal/repair"
	"robospec/internal/task"
)

// Sampling temperatures for first drafts and repairs.
const (
	GenerateTemperature = 0.2
	RepairTemperature   = 0.1
)

// Generator implements repair.Generator on top of an llm.Client.
type Generator struct {
	client llm.Client
	table  *category.Table
}

var _ repair.Generator = (*Generator)(nil)

// New returns a Generator. A nil table means category.Default().
func New(client llm.Client, table *category.Table) *Generator {
	if table == nil {
		table = category.Default()
	}
	return &Generator{client: client, table: table}
}

type generateData struct {
	task.Spec
	TaskName string
	Approved string
}

// Prompts builds the system and user prompts for a first draft.
func (g *Generator) Prompts(spec task.Spec, knowledge string) (system, user string, err error) {
	spec, err = spec.Normalize(g.table)
	if err != nil {
		return "", "", err
	}
	md, _ := g.table.Lookup(spec.Category)

	user, err = render(generatePrompt, generateData{
		Spec:     spec,
		TaskName: task.Name(spec),
		Approved: FormatApproved(md.Approved),
	})
	if err != nil {
		return "", "", err
	}
	return withKnowledge(knowledge), user, nil
}

// Generate asks the model for a first draft and returns the env_cfg code.
func (g *Generator) Generate(ctx context.Context, spec task.Spec, knowledge string) (string, error) {
	if g.client == nil {
		return "", errors.New("generator: no LLM client")
	}
	system, user, err := g.Prompts(spec, knowledge)
	if err != nil {
		return "", err
	}
	logging.Generator("generating %s for %s (%d context bytes)", spec.Category, spec.Robot, len(knowledge))

	resp, err := g.client.Complete(ctx, system, user, llm.WithTemperature(GenerateTemperature))
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", spec.Category, err)
	}
	return ExtractEnvCfg(resp, task.Name(spec)), nil
}

// RepairPrompts builds the system and user prompts for a repair request.
func (g *Generator) RepairPrompts(req repair.RepairRequest) (system, user string, err error) {
	user, err = render(repairPrompt, req)
	if err != nil {
		return "", "", err
	}
	return withKnowledge(req.Context), user, nil
}

// Repair asks the model to fix req.Code and returns the fence-stripped reply.
func (g *Generator) Repair(ctx context.Context, req repair.RepairRequest) (string, error) {
	if g.client == nil {
		return "", errors.New("generator: no LLM client")
	}
	system, user, err := g.RepairPrompts(req)
	if err != nil {
		return "", err
	}
	logging.GeneratorDebug("repair attempt %d with %d errors", req.Attempt, len(req.Errors))

	resp, err := g.client.Complete(ctx, system, user, llm.WithTemperature(RepairTemperature))
	if err != nil {
		return "", fmt.Errorf("repair attempt %d: %w", req.Attempt, err)
	}
	return StripCodeFences(resp), nil
}

func withKnowledge(knowledge string) string {
	if knowledge == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + knowledge
}
