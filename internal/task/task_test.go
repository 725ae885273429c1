package task

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robospec/internal/category"
)

func TestSanitizeModuleName(t *testing.T) {
	tests := map[string]string{
		"franka-panda-reach": "franka_panda_reach",
		"my task name":       "my_task_name",
		"FrankaReach":        "frankareach",
		"task@#$name!":       "taskname",
		"3d_task":            "_3d_task",
		"My-Task 2!":         "my_task_2",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeModuleName(in), in)
	}
}

func TestNameAndID(t *testing.T) {
	tbl := category.Default()
	tests := []struct {
		cat, robot, name, id string
	}{
		{"manipulation_reach", "franka_panda", "franka_panda_reach", "RoboSpec-Reach-Franka-v0"},
		{"classic_cartpole", "cartpole", "cartpole_cartpole", "RoboSpec-Cartpole-v0"},
		{"locomotion_flat", "anymal_d", "anymal_d_flat", "RoboSpec-Velocity-Flat-Anymal-D-v0"},
		{"locomotion_rough", "anymal_d", "anymal_d_rough", "RoboSpec-Velocity-Rough-Anymal-D-v0"},
		{"custom_thing", "spot", "spot_thing", "RoboSpec-Custom-v0"},
	}
	for _, tt := range tests {
		t.Run(tt.cat, func(t *testing.T) {
			s := Spec{Category: tt.cat, Robot: tt.robot}
			assert.Equal(t, tt.name, Name(s))
			assert.False(t, strings.Contains(Name(s), "-"))
			assert.Equal(t, tt.id, ID(tbl, s))
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	tbl := category.Default()

	s, err := Spec{Category: "locomotion_flat", Robot: "anymal_d", EpisodeLength: 45}.Normalize(tbl)
	require.NoError(t, err)
	assert.Equal(t, 20.0, s.EpisodeLength)
	assert.Equal(t, "medium", s.Difficulty)
	assert.Equal(t, 4096, s.NumEnvs)

	s, err = Spec{Category: "classic_cartpole", Robot: "cartpole", EpisodeLength: 8, NumEnvs: 64}.Normalize(tbl)
	require.NoError(t, err)
	assert.Equal(t, 8.0, s.EpisodeLength)
	assert.Equal(t, 64, s.NumEnvs)

	s, err = Spec{Category: "classic_cartpole", Robot: "cartpole"}.Normalize(tbl)
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.EpisodeLength)

	_, err = Spec{Category: "nope", Robot: "cartpole"}.Normalize(tbl)
	assert.ErrorIs(t, err, category.ErrUnknown)

	_, err = Spec{Category: "classic_cartpole"}.Normalize(tbl)
	assert.Error(t, err)
}
