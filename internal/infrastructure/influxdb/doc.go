// Package influxdb records attribute telemetry in InfluxDB v2.
//
// Every numeric or boolean attribute change the bridge applies becomes a
// point in the matter_attribute measurement, tagged by endpoint, entity,
// cluster and attribute. That gives a time series of what Matter
// controllers were shown, independent of Home Assistant's own recorder.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAttributeChange(influxdb.AttributeChange{
//	    Endpoint: 3, EntityID: "light.kitchen",
//	    Cluster: "level_control", Attribute: "currentLevel", Value: uint8(127),
//	})
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Failed batches are reported through SetOnError; connection and health
// check errors are returned directly.
package influxdb
