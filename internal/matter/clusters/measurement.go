package clusters

import (
	"github.com/nerrad567/gray-logic-matterhub/internal/matter"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/attribute"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/behavior"
	"github.com/nerrad567/gray-logic-matterhub/internal/matter/canonical"
)

func temperatureDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:    TemperatureMeasurement,
		Cluster: matter.ClusterTemperatureMeasurement,
		Defaults: attribute.Patch{
			"measuredValue":    nil,
			"minMeasuredValue": canonical.MinTemperature,
			"maxMeasuredValue": canonical.MaxTemperature,
		},
		Project: func(in behavior.Input) (attribute.Patch, error) {
			var measured any
			if v, ok := in.Snapshot.NumericState(); ok {
				if t, ok := canonical.Temperature(v, in.Snapshot.Unit()); ok {
					measured = t
				}
			}
			return attribute.Patch{"measuredValue": measured}, nil
		},
	}
}

func humidityDescriptor() behavior.Descriptor {
	return behavior.Descriptor{
		Name:    RelativeHumidityMeasurement,
		Cluster: matter.ClusterRelativeHumidityMeasurement,
		Defaults: attribute.Patch{
			"measuredValue":    nil,
			"minMeasuredValue": uint16(0),
			"maxMeasuredValue": canonical.MaxHumidity,
		},
		Project: func(in behavior.Input) (attribute.Patch, error) {
			var measured any
			if v, ok := in.Snapshot.NumericState(); ok {
				if h, ok := canonical.Humidity(v); ok {
					measured = h
				}
			}
			return attribute.Patch{"measuredValue": measured}, nil
		},
	}
}
