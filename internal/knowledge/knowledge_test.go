package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func knowledgeDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "api_reference", "mdp_rewards.md"), "### mdp.is_alive")
	writeFile(t, filepath.Join(dir, "api_reference", "mdp_events.md"), "### mdp.reset_joints_by_offset")
	writeFile(t, filepath.Join(dir, "robots.json"), `{"cartpole": {}}`)
	writeFile(t, filepath.Join(dir, "reward_patterns.md"), "keep weights small")
	writeFile(t, filepath.Join(dir, "examples", "cartpole_env_cfg.py"), "class CartpoleEnvCfg: pass")
	writeFile(t, filepath.Join(dir, "examples", "anymal_d_flat_env_cfg.py"), "class AnymalDFlatEnvCfg: pass")
	return dir
}

func TestBuildContextOrder(t *testing.T) {
	b := NewBuilder(knowledgeDir(t), nil)

	got, err := b.BuildContext("classic_cartpole")
	require.NoError(t, err)

	order := []string{
		HeaderAPI,
		"--- mdp_rewards.md ---\n### mdp.is_alive",
		"--- mdp_events.md ---",
		HeaderRobots,
		HeaderPatterns,
		HeaderExamples,
		"--- cartpole_env_cfg.py ---\n```python\nclass CartpoleEnvCfg: pass\n```",
	}
	last := -1
	for _, want := range order {
		idx := strings.Index(got, want)
		require.GreaterOrEqual(t, idx, 0, "missing %q", want)
		assert.Greater(t, idx, last, "%q out of order", want)
		last = idx
	}
	assert.NotContains(t, got, "mdp_observations.md", "missing files are skipped")
	assert.NotContains(t, got, "AnymalDFlatEnvCfg", "other categories' examples excluded")
}

func TestBuildContextDeterministic(t *testing.T) {
	b := NewBuilder(knowledgeDir(t), nil)
	first, err := b.BuildContext("locomotion_flat")
	require.NoError(t, err)
	second, err := b.BuildContext("locomotion_flat")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "AnymalDFlatEnvCfg")
}

func TestUnknownCategoryHasNoExamples(t *testing.T) {
	got, err := NewBuilder(knowledgeDir(t), nil).BuildContext("juggling")
	require.NoError(t, err)
	assert.Contains(t, got, HeaderAPI)
	assert.NotContains(t, got, HeaderExamples)
}

func TestEmptyDirectory(t *testing.T) {
	got, err := NewBuilder(t.TempDir(), nil).BuildContext("classic_cartpole")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, HeaderAPI))
	assert.NotContains(t, got, HeaderRobots)
}
