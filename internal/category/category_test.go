package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robospec/internal/apisurface"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()
	assert.Equal(t, []string{"classic_cartpole", "locomotion_flat", "locomotion_rough", "manipulation_reach"}, tbl.Keys())

	md, err := tbl.Lookup("classic_cartpole")
	require.NoError(t, err)
	assert.Equal(t, "classic_cartpole", md.Key)
	assert.Equal(t, "rl_games", md.Framework)
	assert.Equal(t, 200, md.MaxIterations)
	assert.Equal(t, "CARTPOLE_CFG", md.Robot.Name)
	assert.Equal(t, `CARTPOLE_CFG.replace(prim_path="{ENV_REGEX_NS}/Robot")`, md.Robot.Derivation)
	assert.Equal(t, "from isaaclab_assets.robots.cartpole import CARTPOLE_CFG  # isort:skip", md.Robot.Import)
	assert.Empty(t, md.Approved.Commands)

	flat, err := tbl.Lookup("locomotion_flat")
	require.NoError(t, err)
	assert.Empty(t, flat.Agents.RLGames)
	assert.Equal(t, 20.0, flat.EpisodeLength)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("underwater_basket_weaving")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestRobotLabel(t *testing.T) {
	tbl := Default()
	assert.Equal(t, "Anymal-D", tbl.RobotLabel("anymal_d"))
	assert.Equal(t, "Robot", tbl.RobotLabel("spot"))
	assert.Equal(t, []string{"anymal_d", "cartpole", "franka_panda"}, tbl.Robots())
}

func TestApprovedFunctionsAreOnTheSurface(t *testing.T) {
	surface := apisurface.New(apisurface.Options{UseEmbedded: true}).Load()
	tbl := Default()
	for _, key := range tbl.Keys() {
		md, err := tbl.Lookup(key)
		require.NoError(t, err)
		for _, name := range md.Approved.All() {
			assert.True(t, surface.Has(name), "%s: %s", key, name)
		}
	}
}

func TestParseRejectsIncompleteRobot(t *testing.T) {
	tests := map[string]string{
		"missing name": `
categories:
  x:
    robot:
      import: from a import B
      derivation: B.replace()
`,
		"derivation ignores name": `
categories:
  x:
    robot:
      import: from a import B
      name: B
      derivation: C.replace()
`,
		"bad yaml": "categories: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  custom:
    framework: rsl_rl
    robot:
      import: from my_assets import MY_CFG
      name: MY_CFG
      derivation: MY_CFG.replace(prim_path="{ENV_REGEX_NS}/Robot")
`), 0644))

	tbl, err := Load(path)
	require.NoError(t, err)
	md, err := tbl.Lookup("custom")
	require.NoError(t, err)
	assert.Equal(t, "rsl_rl", md.Framework)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
