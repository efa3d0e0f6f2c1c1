package clusters

import (
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/canonical"
)

func levelControlDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:     LevelControl,
		Cluster:  matter.ClusterLevelControl,
		Requires: []string{OnOff},
		Defaults: attribute.Patch{
			"currentLevel": nil,
			"minLevel":     canonical.MinLevel,
			"maxLevel":     canonical.MaxLevel,
		},
		Project: projectLevelControl,
	}
}

// projectLevelControl reports the brightness while the light is on. Home
// Assistant drops the brightness attribute when a light turns off, so the
// level is null whenever on_off is false or brightness is missing.
func projectLevelControl(in behavior.Input) (attribute.Patch, error) {
	on := in.Snapshot.State == homeassistant.StateOn
	if h, ok := in.Dependency(OnOff); ok {
		if v, ok := h.Get("onOff"); ok {
			on, _ = v.(bool)
		}
	}

	var level any
	if brightness, ok := in.Snapshot.Number(homeassistant.AttrBrightness); ok && on {
		level = canonical.Level(brightness)
	}
	return attribute.Patch{
		"currentLevel": level,
		"minLevel":     canonical.MinLevel,
		"maxLevel":     canonical.MaxLevel,
	}, nil
}
