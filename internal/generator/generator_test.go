package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robospec/internal/category"
	"robospec/internal/llm"
	"robospec/internal/repair"
	"robospec/internal/task"
)

type call struct {
	system, user string
	opts         llm.CallOptions
}

type scriptedClient struct {
	reply string
	err   error
	calls []call
}

func (c *scriptedClient) Complete(_ context.Context, system, user string, opts ...llm.Option) (string, error) {
	var o llm.CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	c.calls = append(c.calls, call{system, user, o})
	return c.reply, c.err
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"python fence", "```python\nx = 1\n```", "x = 1"},
		{"bare fence", "```\nx = 1\n```\n", "x = 1"},
		{"no fence", "  x = 1  \n", "x = 1"},
		{"inner lines kept", "```python\na = 1\n\nb = 2\n```", "a = 1\n\nb = 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestParseResponse(t *testing.T) {
	resp := "Here you go.\n### FILE: cartpole_env_cfg.py\n```python\nx = 1\n```\n### FILE: __init__.py:\n```python\nimport gymnasium\n```\n"
	want := []File{
		{Name: "cartpole_env_cfg.py", Content: "x = 1"},
		{Name: "__init__.py", Content: "import gymnasium"},
	}
	if diff := cmp.Diff(want, ParseResponse(resp, "cartpole")); diff != "" {
		t.Errorf("ParseResponse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseWithoutMarkers(t *testing.T) {
	files := ParseResponse("```python\nx = 1\n```", "cartpole_cartpole")
	require.Len(t, files, 1)
	assert.Equal(t, File{Name: "cartpole_cartpole_env_cfg.py", Content: "x = 1"}, files[0])
}

func TestExtractEnvCfg(t *testing.T) {
	resp := "### FILE: README.md\nnotes\n### FILE: reach_env_cfg.py\n```python\ny = 2\n```"
	assert.Equal(t, "y = 2", ExtractEnvCfg(resp, "reach"))

	resp = "### FILE: README.md\nnotes only"
	assert.Equal(t, "### FILE: README.md\nnotes only", ExtractEnvCfg(resp, "reach"))
}

func TestFormatApproved(t *testing.T) {
	got := FormatApproved(category.Approved{
		Rewards:      []string{"is_alive", "action_l2"},
		Terminations: []string{"time_out"},
	})
	want := ApprovedHeader + "\n  Rewards: mdp.is_alive, mdp.action_l2\n  Terminations: mdp.time_out"
	assert.Equal(t, want, got)
	assert.Empty(t, FormatApproved(category.Approved{}))
}

func TestGenerate(t *testing.T) {
	client := &scriptedClient{reply: "### FILE: cartpole_cartpole_env_cfg.py\n```python\nclass CartpoleEnvCfg: pass\n```"}
	g := New(client, nil)

	code, err := g.Generate(context.Background(), task.Spec{
		Category:   "classic_cartpole",
		Robot:      "cartpole",
		Objectives: []string{"balance the pole", "stay centered"},
	}, "KNOWLEDGE")
	require.NoError(t, err)
	assert.Equal(t, "class CartpoleEnvCfg: pass", code)

	require.Len(t, client.calls, 1)
	c := client.calls[0]
	assert.True(t, strings.HasSuffix(c.system, "\n\nKNOWLEDGE"))
	assert.Contains(t, c.user, "Category: classic_cartpole")
	assert.Contains(t, c.user, "Objectives: balance the pole, stay centered")
	assert.Contains(t, c.user, "Episode length (s): 5")
	assert.Contains(t, c.user, "### FILE: cartpole_cartpole_env_cfg.py")
	assert.Contains(t, c.user, ApprovedHeader)
	assert.Contains(t, c.user, "mdp.is_alive")
	assert.InDelta(t, GenerateTemperature, c.opts.Temperature, 1e-9)
}

func TestGenerateUnknownCategory(t *testing.T) {
	client := &scriptedClient{}
	_, err := New(client, nil).Generate(context.Background(), task.Spec{Category: "juggling", Robot: "x"}, "")
	assert.ErrorIs(t, err, category.ErrUnknown)
	assert.Empty(t, client.calls)
}

func TestRepair(t *testing.T) {
	client := &scriptedClient{reply: "```python\nfixed = True\n```"}
	g := New(client, nil)

	out, err := g.Repair(context.Background(), repair.RepairRequest{
		Code:          "broken = True",
		Errors:        []string{"Missing __post_init__ method", "Unknown MDP function: mdp.fake"},
		Context:       "CTX",
		WhitelistHint: repair.WhitelistHintHeader + "is_alive, time_out",
		Attempt:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed = True", out)

	require.Len(t, client.calls, 1)
	c := client.calls[0]
	assert.True(t, strings.HasSuffix(c.system, "\n\nCTX"))
	assert.Contains(t, c.user, "- Missing __post_init__ method\n- Unknown MDP function: mdp.fake\n")
	assert.Contains(t, c.user, repair.WhitelistHintHeader+"is_alive, time_out")
	assert.Contains(t, c.user, "broken = True")
	assert.InDelta(t, RepairTemperature, c.opts.Temperature, 1e-9)
}

func TestRepairWithoutHint(t *testing.T) {
	client := &scriptedClient{reply: "x"}
	_, err := New(client, nil).Repair(context.Background(), repair.RepairRequest{Code: "c", Errors: []string{"e"}})
	require.NoError(t, err)
	assert.NotContains(t, client.calls[0].user, "AVAILABLE MDP FUNCTIONS")
	assert.Equal(t, systemPrompt, client.calls[0].system)
}

func TestClientErrorsPropagate(t *testing.T) {
	boom := errors.New("503")
	g := New(&scriptedClient{err: boom}, nil)
	_, err := g.Repair(context.Background(), repair.RepairRequest{Attempt: 2})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "repair attempt 2")
}
