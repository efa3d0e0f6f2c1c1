package clusters

import (
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
)

func onOffDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:     OnOff,
		Cluster:  matter.ClusterOnOff,
		Defaults: attribute.Patch{"onOff": false},
		Project: func(in behavior.Input) (attribute.Patch, error) {
			return attribute.Patch{"onOff": in.Snapshot.State == homeassistant.StateOn}, nil
		},
	}
}
