// Package isaaclab holds the naming conventions of the Isaac Lab framework
// that generated environment configs must follow.
package isaaclab

import "strings"

const (
	// Alias is the local name bound to the core MDP namespace.
	Alias = "mdp"

	// CoreMDPModule is the canonical MDP namespace.
	CoreMDPModule = "isaaclab.envs.mdp"

	// CoreMDPImport is the only accepted way to bind Alias.
	CoreMDPImport = "import isaaclab.envs.mdp as mdp"

	// TasksNamespace prefixes the task-scoped packages whose mdp modules
	// must not be imported by generated configs.
	TasksNamespace = "isaaclab_tasks"

	// ReservedPathToken must be referenced as a variable, never inlined in a
	// string literal.
	ReservedPathToken = "ISAACLAB_NUCLEUS_DIR"

	EnvCfgMarker     = "EnvCfg"
	RewardsCfgMarker = "RewardsCfg"
	PostInitHook     = "__post_init__"

	// RobotField is the scene field holding the articulation config.
	RobotField = "robot"

	// MissingSentinel is the placeholder value for unset config fields.
	MissingSentinel = "MISSING"

	// WeightThreshold is the absolute reward weight above which a warning is
	// raised.
	WeightThreshold = 10.0
)

// RootNamespaces are the import fragments that identify Isaac Lab code.
var RootNamespaces = []string{"isaaclab", "omni.isaac"}

// ReferencesRoot reports whether a dotted module name belongs to Isaac Lab.
func ReferencesRoot(module string) bool {
	for _, ns := range RootNamespaces {
		if strings.Contains(module, ns) {
			return true
		}
	}
	return false
}

// IsTaskScoped reports whether module lives under the task namespace.
func IsTaskScoped(module string) bool {
	return module == TasksNamespace || strings.HasPrefix(module, TasksNamespace+".")
}

// IsCoreModule reports whether module is a core (non task-scoped) Isaac Lab module.
func IsCoreModule(module string) bool {
	return (module == "isaaclab" || strings.HasPrefix(module, "isaaclab.")) && !IsTaskScoped(module)
}

// IsTaskMDP reports whether module is an isaaclab_tasks.*.mdp namespace.
func IsTaskMDP(module string) bool {
	return IsTaskScoped(module) && (strings.HasSuffix(module, "."+Alias))
}

// IsAnchorModule reports whether module may anchor an injected robot import:
// anything under the isaaclab prefix (isaaclab_assets included) except the
// task namespace.
func IsAnchorModule(module string) bool {
	return strings.HasPrefix(module, "isaaclab") && !strings.HasPrefix(module, TasksNamespace)
}
